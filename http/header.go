package http

import "strings"

// Header is a request header mapping whose keys are lower-cased and unique.
type Header map[string]string

const (
	headerUserAgent     = "user-agent"
	headerContentLength = "content-length"
	headerContentType   = "content-type"
	headerHost          = "host"

	contentTypeForm = "application/x-www-form-urlencoded"
)

// CombineHeader returns a new Header holding the default user agent and every
// entry of headers with its key lower-cased. A caller supplied user-agent, under
// any casing, overrides the default. A nil or empty input yields only the
// user-agent entry. The input is never modified.
func CombineHeader(headers map[string]string) Header {
	combined := Header{
		headerUserAgent: DefaultUserAgent(),
	}

	for key, value := range headers {
		combined[strings.ToLower(key)] = value
	}

	return combined
}

// Get returns the value stored under the lower-cased key.
func (h Header) Get(key string) string {
	return h[strings.ToLower(key)]
}

// Has reports whether the lower-cased key is present.
func (h Header) Has(key string) bool {
	_, ok := h[strings.ToLower(key)]
	return ok
}

// Clone returns a copy of h.
func (h Header) Clone() Header {
	clone := make(Header, len(h))
	for key, value := range h {
		clone[key] = value
	}

	return clone
}
