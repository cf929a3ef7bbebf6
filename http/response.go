package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// TimingInfo stores detailed timing information for a request.
// All durations represent the time spent in each phase of the request.
type TimingInfo struct {
	// StartTime is when the transport call was issued
	StartTime time.Time

	// DNSLookupTime is the time spent looking up the DNS address
	DNSLookupTime time.Duration

	// TCPConnectTime is the time spent establishing a TCP connection
	TCPConnectTime time.Duration

	// TLSHandshakeTime is the time spent performing the TLS handshake (for HTTPS)
	TLSHandshakeTime time.Duration

	// TimeToFirstByte is the time from the last connection phase to the first response byte
	TimeToFirstByte time.Duration

	// ContentTransferTime is the time from the response headers to the end of the body
	ContentTransferTime time.Duration

	// TotalTime is the total time from request start to completion
	TotalTime time.Duration
}

// Response is the fully buffered result handed to a Callback.
type Response struct {
	// Content is the response body. For the "binary" charset it holds the raw
	// bytes, for "utf8" the bytes as received, for any other charset the body
	// decoded into UTF-8.
	Content []byte

	// StatusCode is the HTTP status code (e.g., 200, 404, 500)
	StatusCode int

	// Status is the HTTP status line text (e.g., "200 OK")
	Status string

	// Header contains the response headers
	Header http.Header

	// Charset is the normalized charset the content was produced with
	Charset string

	// Timing contains detailed timing information
	Timing TimingInfo
}

// Callback receives the response of a successful request. It runs at most once
// per request and never after an error was delivered.
type Callback func(resp *Response)

// Text returns the content as a string.
func (r *Response) Text() string {
	return string(r.Content)
}

// JSON unmarshals the content into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Content, v)
}

// Cookies returns the Set-Cookie entries of the response as a Cookie header value.
func (r *Response) Cookies() string {
	return ParseCookies(r.Header)
}

// IsSuccess returns true if the response status code is in the 2xx range
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsRedirect returns true if the response status code is in the 3xx range
func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// IsError returns true if the response status code is 4xx or 5xx
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}
