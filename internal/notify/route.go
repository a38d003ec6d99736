// Package notify implements the notification pipeline: routing an inbound
// submission by its declared content type, composing the message, and
// dispatching it through a delivery provider.
package notify

import (
	"encoding/json"

	"github.com/dsw-integrations/email-submitter/internal/email"
	"github.com/dsw-integrations/email-submitter/internal/parser"
	"github.com/dsw-integrations/email-submitter/internal/provider"
)

// contentTypeJSON is the single content type routed as a structured payload.
// The caller's declared content type is authoritative; no sniffing.
const contentTypeJSON = "application/json"

// missingField substitutes for any field absent from a structured payload.
const missingField = "?"

// Route decides between structured and opaque handling of a submission.
//
// For application/json payloads it decodes the document, renders a summary
// line with a project deep link, and produces no attachments. Decode or
// parse failures are returned as decode-kind delivery errors.
//
// For anything else the intro message passes through unchanged and the raw
// payload becomes a single attachment with its content type and encoding
// preserved exactly.
func Route(contentType, encoding string, data []byte, introMessage string) (string, []email.Attachment, error) {
	if contentType != contentTypeJSON {
		attachment := email.Attachment{
			ContentType: contentType,
			Encoding:    encoding,
			Content:     data,
		}
		return introMessage, []email.Attachment{attachment}, nil
	}

	text, err := parser.DecodeText(data, encoding)
	if err != nil {
		return "", nil, &provider.DeliveryError{Kind: provider.KindDecode, Err: err}
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return "", nil, provider.Errf(provider.KindDecode, "failed to parse submission document: %w", err)
	}

	name := stringField(doc, "questionnaireName")
	baseURL := stringField(nestedMap(doc, "config"), "clientUrl")
	uuid := stringField(doc, "questionnaireUuid")

	body := introMessage + "\n\n" +
		`Project "` + name + `" (link: ` + baseURL + "/projects/" + uuid + ")"
	return body, nil, nil
}

// stringField reads a string field from doc, falling back to "?" when the
// field is absent or not a string.
func stringField(doc map[string]any, key string) string {
	if doc != nil {
		if value, ok := doc[key].(string); ok {
			return value
		}
	}
	return missingField
}

// nestedMap reads a nested object from doc; a missing or non-object value
// yields nil so field lookups on it fall back as well.
func nestedMap(doc map[string]any, key string) map[string]any {
	if doc == nil {
		return nil
	}
	nested, _ := doc[key].(map[string]any)
	return nested
}
