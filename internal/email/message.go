// Package email defines the core notification message model shared by the
// composer and the delivery providers.
package email

import "mime"

// Attachment represents a submitted document carried along with a
// notification. It keeps the content type and character encoding declared
// by the submitter, untouched.
type Attachment struct {
	ContentType string
	Encoding    string
	Content     []byte
}

// Filename derives the attachment file name from its content type, using a
// pinned table for common types and the system MIME table otherwise.
// Unrecognized types fall back to ".txt".
func (a Attachment) Filename() string {
	return "document" + extensionFor(a.ContentType)
}

// Email is a fully composed notification message, ready for delivery: one
// plain-text body followed by the attachments in their original order.
type Email struct {
	FromName    string
	From        string
	To          string
	Subject     string
	TextBody    string
	Attachments []Attachment
}

// commonExtensions pins the extension for frequent submission types; the
// system MIME table varies by host and may sort surprising entries first
// (text/plain can resolve to .asc or .conf via /etc/mime.types).
var commonExtensions = map[string]string{
	"text/plain":       ".txt",
	"text/html":        ".html",
	"text/csv":         ".csv",
	"text/xml":         ".xml",
	"application/json": ".json",
	"application/pdf":  ".pdf",
	"application/xml":  ".xml",
}

func extensionFor(contentType string) string {
	if ext, ok := commonExtensions[contentType]; ok {
		return ext
	}
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ".txt"
	}
	return exts[0]
}
