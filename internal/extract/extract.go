// Package extract normalizes document payloads into plain text for
// ingestion. The ingestion path makes no assumption about source format;
// this package is where format-specific handling lives.
package extract

import (
	"fmt"
	"strings"
)

// Text extracts plain text from content of the given MIME type.
// Unsupported types are rejected rather than indexed raw.
func Text(contentType string, data []byte) (string, error) {
	mime := contentType
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.TrimSpace(strings.ToLower(mime))

	switch mime {
	case "", "text/plain", "text/markdown":
		return strings.TrimSpace(string(data)), nil
	case "text/html", "application/xhtml+xml":
		return HTML(data)
	default:
		return "", fmt.Errorf("extract: unsupported content type %q", contentType)
	}
}
