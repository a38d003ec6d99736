package parser

import "testing"

func TestParseContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		header       string
		wantType     string
		wantEncoding string
	}{
		{
			name:         "bare type",
			header:       "application/json",
			wantType:     "application/json",
			wantEncoding: "utf-8",
		},
		{
			name:         "explicit charset",
			header:       "application/json; charset=iso-8859-1",
			wantType:     "application/json",
			wantEncoding: "iso-8859-1",
		},
		{
			name:         "charset without space",
			header:       "text/plain;charset=utf-16",
			wantType:     "text/plain",
			wantEncoding: "utf-16",
		},
		{
			name:         "quoted charset",
			header:       `application/xml; charset="windows-1250"`,
			wantType:     "application/xml",
			wantEncoding: "windows-1250",
		},
		{
			name:         "upper case is normalized",
			header:       "Application/JSON; Charset=UTF-8",
			wantType:     "application/json",
			wantEncoding: "utf-8",
		},
		{
			name:         "other parameters are ignored",
			header:       "multipart/form-data; boundary=xyz",
			wantType:     "multipart/form-data",
			wantEncoding: "utf-8",
		},
		{
			name:         "empty charset falls back",
			header:       "application/pdf; charset=",
			wantType:     "application/pdf",
			wantEncoding: "utf-8",
		},
		{
			name:         "empty header",
			header:       "",
			wantType:     "",
			wantEncoding: "utf-8",
		},
		{
			name:         "surrounding whitespace",
			header:       "  application/pdf ; charset=latin1 ",
			wantType:     "application/pdf",
			wantEncoding: "latin1",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gotType, gotEncoding := ParseContentType(tt.header)
			if gotType != tt.wantType {
				t.Errorf("mediaType: got %q, want %q", gotType, tt.wantType)
			}
			if gotEncoding != tt.wantEncoding {
				t.Errorf("encoding: got %q, want %q", gotEncoding, tt.wantEncoding)
			}
		})
	}
}

func TestDecodeText_UTF8Passthrough(t *testing.T) {
	t.Parallel()

	got, err := DecodeText([]byte("Grüße"), "utf-8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Grüße" {
		t.Errorf("got %q, want %q", got, "Grüße")
	}
}

func TestDecodeText_EmptyEncodingDefaults(t *testing.T) {
	t.Parallel()

	got, err := DecodeText([]byte("plain"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "plain" {
		t.Errorf("got %q, want %q", got, "plain")
	}
}

func TestDecodeText_Latin1(t *testing.T) {
	t.Parallel()

	// 0xE9 is "é" in ISO 8859-1.
	got, err := DecodeText([]byte{'c', 'a', 'f', 0xE9}, "iso-8859-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "café" {
		t.Errorf("got %q, want %q", got, "café")
	}
}

func TestDecodeText_InvalidUTF8(t *testing.T) {
	t.Parallel()

	invalid := []byte{'a', 0xFF, 'b'}
	for _, encoding := range []string{"utf-8", "", "ascii"} {
		if _, err := DecodeText(invalid, encoding); err == nil {
			t.Errorf("DecodeText(%q): expected error for invalid bytes, got nil", encoding)
		}
	}
}

func TestDecodeText_UnknownEncoding(t *testing.T) {
	t.Parallel()

	_, err := DecodeText([]byte("data"), "klingon-8")
	if err == nil {
		t.Fatal("expected error for unknown encoding, got nil")
	}
}
