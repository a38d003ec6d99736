package notify

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dsw-integrations/email-submitter/internal/provider"
)

func TestRoute_StructuredPayload(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"questionnaireName": "Survey1",
		"questionnaireUuid": "abc-123",
		"config": {"clientUrl": "https://dsw.example"}
	}`)

	body, attachments, err := Route("application/json", "utf-8", payload, "New submission")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "New submission\n\nProject \"Survey1\" (link: https://dsw.example/projects/abc-123)"
	if body != want {
		t.Errorf("body: got %q, want %q", body, want)
	}
	if len(attachments) != 0 {
		t.Errorf("attachments: got %d, want 0", len(attachments))
	}
}

func TestRoute_StructuredPayloadMissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "all fields missing",
			payload: `{}`,
			want:    "intro\n\nProject \"?\" (link: ?/projects/?)",
		},
		{
			name:    "name missing",
			payload: `{"questionnaireUuid":"u1","config":{"clientUrl":"https://x"}}`,
			want:    "intro\n\nProject \"?\" (link: https://x/projects/u1)",
		},
		{
			name:    "nested url missing",
			payload: `{"questionnaireName":"N","questionnaireUuid":"u1","config":{}}`,
			want:    "intro\n\nProject \"N\" (link: ?/projects/u1)",
		},
		{
			name:    "config not an object",
			payload: `{"questionnaireName":"N","questionnaireUuid":"u1","config":"flat"}`,
			want:    "intro\n\nProject \"N\" (link: ?/projects/u1)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			body, attachments, err := Route("application/json", "utf-8", []byte(tt.payload), "intro")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if body != tt.want {
				t.Errorf("body: got %q, want %q", body, tt.want)
			}
			if len(attachments) != 0 {
				t.Errorf("attachments: got %d, want 0", len(attachments))
			}
		})
	}
}

func TestRoute_OpaquePayload(t *testing.T) {
	t.Parallel()

	data := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xFF}
	body, attachments, err := Route("application/pdf", "utf-8", data, "See attached")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if body != "See attached" {
		t.Errorf("body: got %q, want pass-through intro", body)
	}
	if len(attachments) != 1 {
		t.Fatalf("attachments: got %d, want 1", len(attachments))
	}
	att := attachments[0]
	if att.ContentType != "application/pdf" {
		t.Errorf("ContentType: got %q, want %q", att.ContentType, "application/pdf")
	}
	if att.Encoding != "utf-8" {
		t.Errorf("Encoding: got %q, want %q", att.Encoding, "utf-8")
	}
	if !bytes.Equal(att.Content, data) {
		t.Errorf("Content: got %v, want original bytes %v", att.Content, data)
	}
}

func TestRoute_EmptyIntroOpaque(t *testing.T) {
	t.Parallel()

	body, attachments, err := Route("text/csv", "utf-8", []byte("a,b"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "" {
		t.Errorf("body: got %q, want empty", body)
	}
	if len(attachments) != 1 {
		t.Errorf("attachments: got %d, want 1", len(attachments))
	}
}

func TestRoute_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, _, err := Route("application/json", "utf-8", []byte("{not json"), "intro")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var de *provider.DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %T: %v", err, err)
	}
	if de.Kind != provider.KindDecode {
		t.Errorf("Kind: got %q, want %q", de.Kind, provider.KindDecode)
	}
}

func TestRoute_InvalidUTF8UnderDeclaredCharset(t *testing.T) {
	t.Parallel()

	// 0xFF can never appear in UTF-8 text; the submission must fail as a
	// decode error rather than deliver a replacement-character body.
	payload := append([]byte(`{"questionnaireName":"`), 0xFF)
	payload = append(payload, []byte(`","questionnaireUuid":"u","config":{"clientUrl":"c"}}`)...)
	_, _, err := Route("application/json", "utf-8", payload, "intro")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var de *provider.DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %T: %v", err, err)
	}
	if de.Kind != provider.KindDecode {
		t.Errorf("Kind: got %q, want %q", de.Kind, provider.KindDecode)
	}
}

func TestRoute_UnsupportedEncoding(t *testing.T) {
	t.Parallel()

	_, _, err := Route("application/json", "klingon-8", []byte(`{}`), "intro")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var de *provider.DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeliveryError, got %T: %v", err, err)
	}
	if de.Kind != provider.KindDecode {
		t.Errorf("Kind: got %q, want %q", de.Kind, provider.KindDecode)
	}
	if !strings.Contains(err.Error(), "decode") {
		t.Errorf("error text %q should name the decode kind", err.Error())
	}
}

func TestRoute_JSONContentTypeNeverAttaches(t *testing.T) {
	t.Parallel()

	payloads := []string{`{}`, `{"questionnaireName":"x"}`, `{"config":{"clientUrl":"u"}}`}
	for _, payload := range payloads {
		_, attachments, err := Route("application/json", "utf-8", []byte(payload), "i")
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", payload, err)
		}
		if len(attachments) != 0 {
			t.Errorf("payload %q: got %d attachments, want 0", payload, len(attachments))
		}
	}
}
