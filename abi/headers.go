package abi

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Header blocks cross the guest boundary as text: alternating lines of
// name and value, each terminated by '\n'. Names repeat for multi-valued
// headers. The empty block is zero bytes.

// EncodeHeaders renders h into the textual header block form.
func EncodeHeaders(h http.Header) []byte {
	var sb strings.Builder
	for name, values := range h {
		for _, value := range values {
			sb.WriteString(name)
			sb.WriteByte('\n')
			sb.WriteString(value)
			sb.WriteByte('\n')
		}
	}
	return []byte(sb.String())
}

// DecodeHeaders parses a textual header block. The block must be valid
// UTF-8 and contain a value line for every name line.
func DecodeHeaders(data []byte) (http.Header, error) {
	if len(data) == 0 {
		return http.Header{}, nil
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("header block: invalid UTF-8")
	}

	text := string(data)
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	if len(lines)%2 != 0 {
		return nil, fmt.Errorf("header block: %d lines, want name/value pairs", len(lines))
	}

	h := http.Header{}
	for i := 0; i < len(lines); i += 2 {
		h.Add(lines[i], lines[i+1])
	}
	return h, nil
}
