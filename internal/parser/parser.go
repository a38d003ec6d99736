// Package parser provides pure parsing of the inbound submission headers:
// content-type splitting with charset resolution, and charset-aware decoding
// of payload bytes into text.
package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

// DefaultEncoding is used whenever the Content-Type header carries no usable
// charset parameter.
const DefaultEncoding = "utf-8"

// ParseContentType splits a Content-Type header value into the media type and
// the character encoding. The media type is lower-cased with any parameters
// stripped. The encoding comes from an explicit charset= parameter when one
// is present (quotes removed), otherwise DefaultEncoding.
func ParseContentType(header string) (mediaType, encoding string) {
	segments := strings.Split(strings.ToLower(header), ";")
	mediaType = strings.TrimSpace(segments[0])
	encoding = DefaultEncoding

	for _, segment := range segments[1:] {
		segment = strings.TrimSpace(segment)
		if value, found := strings.CutPrefix(segment, "charset="); found {
			value = strings.Trim(value, `"'`)
			if value != "" {
				encoding = value
			}
			return mediaType, encoding
		}
	}
	return mediaType, encoding
}

// DecodeText decodes raw payload bytes into a string using the given
// character encoding. UTF-8 and plain ASCII pass through after validation;
// other encodings are resolved through the IANA/WHATWG index. Bytes that do
// not form valid text under the declared encoding are an error, never
// replaced silently.
func DecodeText(data []byte, encoding string) (string, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("payload is not valid %s text", DefaultEncoding)
		}
		return string(data), nil
	}

	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return "", fmt.Errorf("unsupported encoding %q: %w", encoding, err)
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode payload as %q: %w", encoding, err)
	}
	return string(decoded), nil
}
