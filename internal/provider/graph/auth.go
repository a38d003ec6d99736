package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// graphScope is the OAuth2 scope for application-permission Graph calls.
const graphScope = "https://graph.microsoft.com/.default"

// tokenExpiryBuffer shortens the cached lifetime so a token never lapses
// mid-request.
const tokenExpiryBuffer = 5 * time.Minute

// tokenCache holds one OAuth2 client-credentials access token and refreshes
// it on demand. Safe for concurrent use; at most one refresh runs at a time.
type tokenCache struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func newTokenCache(tokenURL, clientID, clientSecret string, httpClient *http.Client) *tokenCache {
	return &tokenCache{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
	}
}

// Token returns the cached access token, acquiring a fresh one when none is
// held or the held one is within the expiry buffer.
func (tc *tokenCache) Token() (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.valid() {
		return tc.accessToken, nil
	}

	resp, err := tc.requestToken()
	if err != nil {
		return "", err
	}
	tc.accessToken = resp.AccessToken
	tc.expiresAt = time.Now().Add(time.Duration(resp.ExpiresIn)*time.Second - tokenExpiryBuffer)
	return tc.accessToken, nil
}

func (tc *tokenCache) valid() bool {
	return tc.accessToken != "" && time.Now().Before(tc.expiresAt)
}

// requestToken performs the client_credentials grant against the token
// endpoint.
func (tc *tokenCache) requestToken() (*tokenResponse, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {tc.clientID},
		"client_secret": {tc.clientSecret},
		"scope":         {graphScope},
	}

	req, err := http.NewRequest(http.MethodPost, tc.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &tokenResp, nil
}
