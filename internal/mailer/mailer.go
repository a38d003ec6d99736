// Package mailer composes notification messages: it wraps the routed body
// text in the service template, derives the subject from the sender name,
// and builds the MIME representation delivered by the transport backends.
package mailer

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"

	"github.com/dsw-integrations/email-submitter/internal/config"
	"github.com/dsw-integrations/email-submitter/internal/email"
)

const bodySeparator = "____________________________________________________"

// Compose builds a notification message from the routed body text and
// attachments. The body is wrapped in the fixed service template; the
// subject is derived from the configured sender name. Attachment order is
// preserved.
func Compose(mail config.MailConfig, recipient, bodyText string, attachments []email.Attachment) *email.Email {
	return &email.Email{
		FromName:    mail.Name,
		From:        mail.Email,
		To:          recipient,
		Subject:     fmt.Sprintf("[%s] Notification", mail.Name),
		TextBody:    wrapBody(mail.Name, bodyText),
		Attachments: attachments,
	}
}

func wrapBody(senderName, bodyText string) string {
	var b strings.Builder
	b.WriteString("Hello,\nthere is a notification from DSW:\n\n")
	b.WriteString(bodyText)
	b.WriteString("\n\n")
	b.WriteString(bodySeparator)
	b.WriteString("\nHave a nice day!\n")
	b.WriteString(senderName)
	b.WriteString("\n")
	return b.String()
}

// BuildMIME renders a composed message as a MIME multipart message: one
// plain-text UTF-8 body part first, then each attachment base64-encoded with
// its declared content type and a derived "document<ext>" file name.
func BuildMIME(e *email.Email) *gomail.Message {
	m := gomail.NewMessage(gomail.SetCharset("UTF-8"))
	m.SetAddressHeader("From", e.From, e.FromName)
	m.SetHeader("To", e.To)
	m.SetHeader("Subject", e.Subject)
	m.SetHeader("Message-ID", messageID(e.From))
	m.SetBody("text/plain", e.TextBody)

	for _, att := range e.Attachments {
		content := att.Content
		m.Attach(att.Filename(),
			gomail.SetHeader(map[string][]string{"Content-Type": {att.ContentType}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		)
	}
	return m
}

// messageID generates a unique Message-ID scoped to the sender's domain.
func messageID(from string) string {
	domain := "localhost"
	if _, d, found := strings.Cut(from, "@"); found && d != "" {
		domain = d
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
