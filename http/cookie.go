package http

import (
	"net/http"
	"strings"
)

// ParseCookies concatenates the Set-Cookie entries of a response into a value
// suitable for a Cookie request header. Every entry is cut right after its first
// ';' and followed by a single space. It returns "" when no cookie was set.
func ParseCookies(header http.Header) string {
	cookies := header.Values("Set-Cookie")
	if len(cookies) == 0 {
		return ""
	}

	var buf strings.Builder
	for _, cookie := range cookies {
		if idx := strings.IndexByte(cookie, ';'); idx != -1 {
			cookie = cookie[:idx+1]
		}

		buf.WriteString(cookie)
		buf.WriteByte(' ')
	}

	return buf.String()
}
