package api

import (
	"log/slog"
	"strings"

	"github.com/dsw-integrations/email-submitter/internal/config"
)

// Authorizer checks inbound bearer tokens against the configured token set.
type Authorizer struct {
	security config.SecurityConfig
}

// NewAuthorizer creates an Authorizer for the given security settings.
// When security is disabled, every request is authorized.
func NewAuthorizer(security config.SecurityConfig) *Authorizer {
	return &Authorizer{security: security}
}

// Authorize verifies an Authorization header value. The token must be
// presented with the "Bearer " prefix and be a member of the configured
// token set.
func (a *Authorizer) Authorize(header string) bool {
	if !a.security.Enabled {
		slog.Debug("security disabled, authorized directly")
		return true
	}

	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		slog.Debug("invalid token: missing or without Bearer prefix")
		return false
	}
	return a.security.HasToken(token)
}
