// Package smtp implements the Provider delivering notifications over the
// SMTP protocol, with implicit TLS, STARTTLS upgrade, or plaintext transport
// and optional authentication.
package smtp

import (
	"context"
	"crypto/tls"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/dsw-integrations/email-submitter/internal/email"
	"github.com/dsw-integrations/email-submitter/internal/mailer"
	"github.com/dsw-integrations/email-submitter/internal/provider"
)

// sendTimeout bounds one whole delivery attempt under a single deadline:
// connect, secure, authenticate, and transmit all share it.
const sendTimeout = 10 * time.Second

// SecurityMode is the resolved transport security behavior.
type SecurityMode int

const (
	// ModePlain keeps the whole exchange in plaintext.
	ModePlain SecurityMode = iota
	// ModeSSL wraps the connection in TLS before any protocol exchange.
	ModeSSL
	// ModeSTARTTLS starts in plaintext and upgrades the connection
	// before continuing.
	ModeSTARTTLS
)

// ResolveSecurity maps a security mode string to a SecurityMode. The mapping
// is total: "ssl" and "starttls" select their modes, every other value
// (including empty) means plain. There is no error case.
func ResolveSecurity(mode string) SecurityMode {
	switch mode {
	case "ssl":
		return ModeSSL
	case "starttls":
		return ModeSTARTTLS
	default:
		return ModePlain
	}
}

// Config holds the SMTP transport settings.
type Config struct {
	Host        string
	Port        int
	Security    string
	AuthEnabled bool
	Username    string
	Password    string
}

// Provider delivers notifications over SMTP. It is stateless between calls
// and safe for concurrent use; every Send opens and releases its own
// connection.
type Provider struct {
	cfg Config
}

// New creates an SMTP Provider with the given transport settings.
func New(cfg Config) *Provider {
	return &Provider{cfg: cfg}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "smtp"
}

// Send performs one delivery attempt: connect, secure, optionally
// authenticate, transmit, release. The connection is closed on every exit
// path; any failure is returned as a DeliveryError tagged with the stage
// that failed. There is no retry and no partial-success state.
func (p *Provider) Send(ctx context.Context, msg *email.Email) error {
	addr := net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port))

	// One deadline bounds the whole attempt, dialing included.
	deadline := time.Now().Add(sendTimeout)
	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return provider.Errf(provider.KindConnect, "failed to connect to %s: %w", addr, err)
	}
	_ = conn.SetDeadline(deadline)

	mode := ResolveSecurity(p.cfg.Security)

	if mode == ModeSSL {
		tlsConn := tls.Client(conn, p.tlsConfig())
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return provider.Errf(provider.KindTLS, "TLS negotiation failed: %w", err)
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, p.cfg.Host)
	if err != nil {
		conn.Close()
		return provider.Errf(provider.KindProtocol, "failed to open SMTP session: %w", err)
	}
	defer client.Close()

	if mode == ModeSTARTTLS {
		if err := client.StartTLS(p.tlsConfig()); err != nil {
			return provider.Errf(provider.KindTLS, "STARTTLS upgrade failed: %w", err)
		}
	}

	if p.cfg.AuthEnabled {
		auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return provider.Errf(provider.KindAuth, "authentication failed: %w", err)
		}
	}

	return p.transmit(client, msg)
}

// transmit sends the composed message to exactly the one recipient.
func (p *Provider) transmit(client *smtp.Client, msg *email.Email) error {
	if err := client.Mail(msg.From); err != nil {
		return provider.Errf(provider.KindProtocol, "failed to set sender: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return provider.Errf(provider.KindProtocol, "failed to set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return provider.Errf(provider.KindProtocol, "failed to open data stream: %w", err)
	}
	if _, err := mailer.BuildMIME(msg).WriteTo(writer); err != nil {
		_ = writer.Close()
		return provider.Errf(provider.KindProtocol, "failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return provider.Errf(provider.KindProtocol, "message rejected: %w", err)
	}

	// Quit errors are non-fatal: the message was already accepted and some
	// servers close the connection right after DATA.
	_ = client.Quit()
	return nil
}

func (p *Provider) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: p.cfg.Host}
}
