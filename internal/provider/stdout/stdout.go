// Package stdout implements a dry-run Provider that prints notifications to
// standard output instead of delivering them.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dsw-integrations/email-submitter/internal/email"
)

// Provider prints notification messages to stdout in a human-readable
// format. It is meant for local development and configuration dry runs.
type Provider struct {
	writer io.Writer
}

// New creates a stdout Provider writing to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a stdout Provider writing to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send prints the notification and always reports success.
func (p *Provider) Send(_ context.Context, msg *email.Email) error {
	var b strings.Builder

	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "From: %s <%s>\n", msg.FromName, msg.From)
	fmt.Fprintf(&b, "To: %s\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	b.WriteString("Body:\n")
	b.WriteString(msg.TextBody + "\n")

	if len(msg.Attachments) > 0 {
		names := make([]string, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			names = append(names, fmt.Sprintf("%s (%s, %s)", att.Filename(), att.ContentType, formatSize(len(att.Content))))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(names, ", "))
	}

	b.WriteString("========================================\n")

	_, _ = fmt.Fprint(p.writer, b.String())
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
