// Package graph implements a Provider that delivers notifications via the
// Microsoft Graph sendMail API using OAuth2 client credentials.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dsw-integrations/email-submitter/internal/email"
	"github.com/dsw-integrations/email-submitter/internal/provider"
)

// Config holds the settings for creating a Graph Provider. The sender
// mailbox is taken from the composed message, so only the OAuth2 client
// credentials are configured here.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Provider sends notifications through the Graph API. Each Send is exactly
// one delivery attempt; transient-failure retry policy is deliberately out
// of scope for the dispatch pipeline.
type Provider struct {
	graphURLBase string
	httpClient   *http.Client
	token        *tokenCache
}

// New creates a Graph Provider with the given configuration.
func New(cfg Config) *Provider {
	tokenURL := fmt.Sprintf(
		"https://login.microsoftonline.com/%s/oauth2/v2.0/token",
		cfg.TenantID,
	)
	client := &http.Client{Timeout: 30 * time.Second}

	return &Provider{
		graphURLBase: "https://graph.microsoft.com/v1.0",
		httpClient:   client,
		token:        newTokenCache(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
	}
}

// newWithOverrides creates a Provider with custom URLs and HTTP client,
// used for testing.
func newWithOverrides(cfg Config, graphURLBase, tokenURL string, client *http.Client) *Provider {
	return &Provider{
		graphURLBase: graphURLBase,
		httpClient:   client,
		token:        newTokenCache(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
	}
}

// Send delivers a composed notification via the Graph API, sending from the
// mailbox named in the message.
func (g *Provider) Send(ctx context.Context, msg *email.Email) error {
	bodyJSON, err := json.Marshal(buildSendMailRequest(msg))
	if err != nil {
		return provider.Errf(provider.KindProtocol, "failed to marshal request body: %w", err)
	}

	token, err := g.token.Token()
	if err != nil {
		return provider.Errf(provider.KindAuth, "failed to get access token: %w", err)
	}

	sendURL := fmt.Sprintf("%s/users/%s/sendMail", g.graphURLBase, msg.From)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(bodyJSON))
	if err != nil {
		return provider.Errf(provider.KindProtocol, "failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return provider.Errf(provider.KindConnect, "Graph API request failed: %w", err)
	}
	defer resp.Body.Close()

	// HTTP 202 Accepted is success for sendMail.
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return nil
	}

	detail := errorDetail(resp.Body)
	kind := provider.KindProtocol
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		kind = provider.KindAuth
	}
	return provider.Errf(kind, "Graph API error (HTTP %d): %s", resp.StatusCode, detail)
}

// Name returns the provider name.
func (g *Provider) Name() string {
	return "msgraph"
}

// errorDetail extracts the error message from a Graph API error response
// body, falling back to the raw body text.
func errorDetail(body io.Reader) string {
	raw, _ := io.ReadAll(body)

	var errResp graphErrorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(raw)
}
