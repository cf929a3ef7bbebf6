package http

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/wesleyorama2/spidex/internal/logger"
)

// DefaultMaxLogLength caps the size of request and response dumps written at debug level.
const DefaultMaxLogLength = 64 * 1024

// ErrNilRequest indicates that a nil request reached the transport.
var ErrNilRequest = errors.New("request is nil")

// newTransport builds the transport used when no custom one is configured.
// Keep-alives are disabled so that every call owns its connection and tearing a
// call down closes its socket.
func newTransport(insecureSkipVerify bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		DisableKeepAlives:  true,
		DisableCompression: true,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // Opt-in via WithInsecureSkipVerify.
		},
	}
}

// LogTransport is an http.RoundTripper that dumps requests and responses at debug level.
type LogTransport struct {
	next         http.RoundTripper
	maxLogLength int
}

// NewLogTransport wraps next. A non-positive maxLogLength selects DefaultMaxLogLength.
func NewLogTransport(next http.RoundTripper, maxLogLength int) *LogTransport {
	if maxLogLength <= 0 {
		maxLogLength = DefaultMaxLogLength
	}

	return &LogTransport{
		next:         next,
		maxLogLength: maxLogLength,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *LogTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}

	if !logger.IsDebugLevel() {
		return t.next.RoundTrip(req)
	}

	ctx := req.Context()
	requestDump := t.dumpRequest(req)
	startTime := time.Now()

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		logger.Debugf(ctx, "Request failed: %s %s | Error: %v", req.Method, req.URL.String(), err)
		return nil, err
	}

	logger.Debugf(ctx, "%s %s [%d] %s\nRequest: %s\nResponse headers: %s",
		req.Method, req.URL.Path, resp.StatusCode, time.Since(startTime), requestDump, t.dumpResponse(resp))

	return resp, nil
}

func (t *LogTransport) dumpRequest(req *http.Request) string {
	dump, err := httputil.DumpRequestOut(req, isTextContentType(req.Header.Get("Content-Type")))
	if err != nil {
		return err.Error()
	}

	return t.truncate(dump)
}

// dumpResponse never includes the body: it is still owned by the lifecycle reader.
func (t *LogTransport) dumpResponse(resp *http.Response) string {
	dump, err := httputil.DumpResponse(resp, false)
	if err != nil {
		return err.Error()
	}

	return t.truncate(dump)
}

func (t *LogTransport) truncate(data []byte) string {
	if len(data) > t.maxLogLength {
		return string(data[:t.maxLogLength]) + "... [truncated]"
	}

	return string(data)
}

func isTextContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)

	return strings.HasPrefix(contentType, "text/") ||
		strings.Contains(contentType, "json") ||
		strings.Contains(contentType, "xml") ||
		strings.Contains(contentType, "x-www-form-urlencoded")
}
