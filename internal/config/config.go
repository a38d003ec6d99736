// Package config implements the service configuration model: a YAML document
// resolved in two phases. Phase one validates that every required path exists
// and reports all missing paths at once; phase two materializes an immutable,
// typed Config, substituting built-in defaults for any optional path that is
// absent. A reload produces a whole new Config value, never a mutation.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// EnvConfig names the environment variable pointing at the config file.
	EnvConfig = "SUBMISSION_CONFIG"

	// DefaultPath is used when EnvConfig is not set.
	DefaultPath = "/app/config.yml"
)

// Config holds the complete resolved application configuration.
type Config struct {
	Mail     MailConfig
	Security SecurityConfig
	Logging  LoggingConfig
	HTTP     HTTPConfig
	Provider ProviderConfig
}

// MailConfig holds the SMTP sender and transport settings.
type MailConfig struct {
	// Name is the sender display name, also used in the subject prefix
	// and the body signature.
	Name  string
	Email string
	Host  string
	Port  int

	// Security selects the transport security mode: "ssl" for implicit
	// TLS, "starttls" for an explicit upgrade, anything else means plain.
	// The value is lower-cased during resolution.
	Security string

	AuthEnabled bool
	Username    string
	Password    string
}

// SecurityConfig holds the inbound authorization settings.
type SecurityConfig struct {
	Enabled bool
	tokens  map[string]struct{}
}

// HasToken reports whether the given bearer token is among the configured
// valid tokens.
func (s SecurityConfig) HasToken(token string) bool {
	_, ok := s.tokens[token]
	return ok
}

// TokenCount returns the number of distinct configured tokens.
func (s SecurityConfig) TokenCount() int {
	return len(s.tokens)
}

// LoggingConfig holds logging settings. Format is "json" or "text".
type LoggingConfig struct {
	Level  string
	Format string
}

// HTTPConfig holds the ingestion listener settings.
type HTTPConfig struct {
	Listen string
	TLS    TLSConfig
}

// TLSConfig holds the optional TLS settings for the ingestion listener.
// When Enabled is true and no files are given, a self-signed certificate
// is generated at startup.
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// ProviderConfig selects the delivery backend and carries backend-specific
// credentials. Name is one of "smtp", "ses", "msgraph", "stdout".
type ProviderConfig struct {
	Name  string
	SES   SESConfig
	Graph GraphConfig
}

// SESConfig holds AWS SES delivery settings.
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// GraphConfig holds Microsoft Graph delivery settings.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// MissingConfigurationError reports every required path absent from the
// configuration document.
type MissingConfigurationError struct {
	Missing []string
}

func (e *MissingConfigurationError) Error() string {
	return "missing configuration: " + strings.Join(e.Missing, ", ")
}

// requiredPaths must exist literally in the document; defaults never
// substitute for them.
var requiredPaths = [][]string{
	{"mail", "email"},
	{"mail", "host"},
	{"mail", "port"},
	{"mail", "security"},
	{"mail", "authEnabled"},
}

// defaults enumerates the built-in value for every recognized leaf.
var defaults = map[string]any{
	"mail": map[string]any{
		"name":        "DSW Notifier",
		"email":       "",
		"host":        "",
		"port":        25,
		"security":    "plain",
		"authEnabled": true,
		"username":    "",
		"password":    "",
	},
	"security": map[string]any{
		"enabled": false,
		"tokens":  []string{},
	},
	"logging": map[string]any{
		"level":  "info",
		"format": "json",
	},
	"http": map[string]any{
		"listen": ":8080",
		"tls": map[string]any{
			"enabled":   false,
			"cert_file": "",
			"key_file":  "",
		},
	},
	"provider": map[string]any{
		"name": "smtp",
		"ses": map[string]any{
			"region":            "",
			"access_key_id":     "",
			"secret_access_key": "",
		},
		"graph": map[string]any{
			"tenant_id":     "",
			"client_id":     "",
			"client_secret": "",
		},
	},
}

// Load reads the configuration file named by the SUBMISSION_CONFIG
// environment variable, falling back to DefaultPath.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfig)
	if path == "" {
		path = DefaultPath
	}
	return LoadFromFile(path)
}

// LoadFromFile reads and resolves the configuration document at path.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse resolves a raw YAML configuration document. Validation runs to
// completion before any settings value is materialized, so a successful
// return guarantees no required field silently observed a default.
func Parse(data []byte) (*Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	r := resolver{doc: doc}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r.materialize(), nil
}

// Default returns the configuration materialized entirely from built-in
// defaults. It is used when no configuration file could be loaded.
func Default() *Config {
	r := resolver{}
	return r.materialize()
}

// resolver walks the raw document path-wise. The instant a segment is
// missing or the current node is not a keyed mapping, lookup falls back to
// the built-in default for that path.
type resolver struct {
	doc map[string]any
}

func (r resolver) validate() error {
	var missing []string
	for _, path := range requiredPaths {
		if !r.has(path...) {
			missing = append(missing, strings.Join(path, "."))
		}
	}
	if len(missing) > 0 {
		return &MissingConfigurationError{Missing: missing}
	}
	return nil
}

func (r resolver) has(path ...string) bool {
	var node any = r.doc
	for _, segment := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return false
		}
		node, ok = m[segment]
		if !ok {
			return false
		}
	}
	return true
}

func (r resolver) getDefault(path ...string) any {
	var node any = defaults
	for _, segment := range path {
		node = node.(map[string]any)[segment]
	}
	return node
}

func (r resolver) getOrDefault(path ...string) any {
	var node any = r.doc
	for _, segment := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return r.getDefault(path...)
		}
		node, ok = m[segment]
		if !ok {
			return r.getDefault(path...)
		}
	}
	return node
}

func (r resolver) stringAt(path ...string) string {
	if v, ok := r.getOrDefault(path...).(string); ok {
		return v
	}
	return r.getDefault(path...).(string)
}

func (r resolver) intAt(path ...string) int {
	if v, ok := r.getOrDefault(path...).(int); ok {
		return v
	}
	return r.getDefault(path...).(int)
}

func (r resolver) boolAt(path ...string) bool {
	if v, ok := r.getOrDefault(path...).(bool); ok {
		return v
	}
	return r.getDefault(path...).(bool)
}

func (r resolver) tokensAt(path ...string) map[string]struct{} {
	set := make(map[string]struct{})
	raw, ok := r.getOrDefault(path...).([]any)
	if !ok {
		return set
	}
	for _, item := range raw {
		if token, ok := item.(string); ok {
			set[token] = struct{}{}
		}
	}
	return set
}

func (r resolver) materialize() *Config {
	return &Config{
		Mail: MailConfig{
			Name:        r.stringAt("mail", "name"),
			Email:       r.stringAt("mail", "email"),
			Host:        r.stringAt("mail", "host"),
			Port:        r.intAt("mail", "port"),
			Security:    strings.ToLower(r.stringAt("mail", "security")),
			AuthEnabled: r.boolAt("mail", "authEnabled"),
			Username:    r.stringAt("mail", "username"),
			Password:    r.stringAt("mail", "password"),
		},
		Security: SecurityConfig{
			Enabled: r.boolAt("security", "enabled"),
			tokens:  r.tokensAt("security", "tokens"),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(r.stringAt("logging", "level")),
			Format: strings.ToLower(r.stringAt("logging", "format")),
		},
		HTTP: HTTPConfig{
			Listen: r.stringAt("http", "listen"),
			TLS: TLSConfig{
				Enabled:  r.boolAt("http", "tls", "enabled"),
				CertFile: r.stringAt("http", "tls", "cert_file"),
				KeyFile:  r.stringAt("http", "tls", "key_file"),
			},
		},
		Provider: ProviderConfig{
			Name: strings.ToLower(r.stringAt("provider", "name")),
			SES: SESConfig{
				Region:          r.stringAt("provider", "ses", "region"),
				AccessKeyID:     r.stringAt("provider", "ses", "access_key_id"),
				SecretAccessKey: r.stringAt("provider", "ses", "secret_access_key"),
			},
			Graph: GraphConfig{
				TenantID:     r.stringAt("provider", "graph", "tenant_id"),
				ClientID:     r.stringAt("provider", "graph", "client_id"),
				ClientSecret: r.stringAt("provider", "graph", "client_secret"),
			},
		},
	}
}

// NewSecurityConfig builds a SecurityConfig from a token list, collapsing
// duplicates. It exists for tests and programmatic construction.
func NewSecurityConfig(enabled bool, tokens []string) SecurityConfig {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return SecurityConfig{Enabled: enabled, tokens: set}
}
