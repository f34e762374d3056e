package endpoint

import (
	"fmt"
	"net/http"
	"strings"
)

// requestText renders the request line and headers the guest reads through
// read_request: HTTP/1.1 textual form, blank-line terminated.
func requestText(r *http.Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s\r\n", r.Method, r.URL.RequestURI(), r.Proto)
	if r.Host != "" {
		fmt.Fprintf(&sb, "Host: %s\r\n", r.Host)
	}
	r.Header.Write(&sb)
	sb.WriteString("\r\n")
	return sb.String()
}
