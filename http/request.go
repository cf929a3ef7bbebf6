package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BodyEncoding tells the transport how the body bytes were produced.
type BodyEncoding int

const (
	// EncodingDefault marks bodies built from strings or form data.
	EncodingDefault BodyEncoding = iota
	// EncodingBinary marks bodies passed in as raw bytes.
	EncodingBinary
)

// Options configures a single request. A nil *Options is equivalent to the zero value.
type Options struct {
	// Data is the request body: []byte is sent verbatim, map[string]string and
	// url.Values are form URL-encoded in Charset, a string is sent as is.
	Data any

	// Header holds additional request headers; keys are matched case-insensitively.
	Header map[string]string

	// Charset selects how the response body is decoded and how form data is
	// encoded. Empty means "utf8". "binary" returns the raw response bytes.
	Charset string

	// Timeout bounds the whole request and response round trip.
	Timeout time.Duration

	// RequestTimeout bounds the time until the response headers arrive.
	RequestTimeout time.Duration

	// ResponseTimeout bounds the time from the response headers to the end of the body.
	ResponseTimeout time.Duration
}

// Clone returns a copy of o whose Header map can be modified independently.
func (o *Options) Clone() *Options {
	if o == nil {
		return &Options{}
	}

	clone := *o
	if o.Header != nil {
		clone.Header = make(map[string]string, len(o.Header))
		for key, value := range o.Header {
			clone.Header[key] = value
		}
	}

	return &clone
}

// Descriptor is a transport-ready request. It is produced once per call by
// BuildRequest and is not modified afterwards.
//
// Header always carries content-length, "0" for GET. GET requests are sent
// without a body and without that header, since net/http only writes a zero
// Content-Length for methods that expect a body.
type Descriptor struct {
	Method       string
	Scheme       string
	Host         string
	Port         string
	Path         string
	Header       Header
	Body         []byte
	BodyEncoding BodyEncoding
	Charset      string
}

// URL reassembles the absolute target of the descriptor.
func (d *Descriptor) URL() string {
	host := d.Host
	if d.Port != "" {
		host = net.JoinHostPort(d.Host, d.Port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	return d.Scheme + "://" + host + d.Path
}

// IsGet reports whether the descriptor is a GET request, which never carries a body.
func (d *Descriptor) IsGet() bool {
	return d.Method == http.MethodGet
}

// BuildRequest validates rawURL and turns it, together with opts, into a Descriptor.
//
// Errors wrap ErrInvalidURL, ErrUnsupportedProtocol, ErrUnsupportedCharset or
// ErrUnsupportedData.
func BuildRequest(method, rawURL string, opts *Options) (*Descriptor, error) {
	if opts == nil {
		opts = &Options{}
	}

	target, err := url.Parse(rawURL)
	if err != nil || target.Scheme == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	scheme := strings.ToLower(target.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %s:", ErrUnsupportedProtocol, scheme)
	}

	if target.Hostname() == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	charset := NormalizeCharset(opts.Charset)
	if _, err = LookupCharset(charset); err != nil {
		return nil, err
	}

	body, bodyEncoding, err := resolveBody(opts.Data, charset)
	if err != nil {
		return nil, err
	}

	method = strings.ToUpper(method)
	header := CombineHeader(opts.Header)

	if !header.Has(headerContentLength) {
		header[headerContentLength] = strconv.Itoa(len(body))
	}

	if !header.Has(headerContentType) && method != http.MethodGet {
		header[headerContentType] = contentTypeForm
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}

	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}

	return &Descriptor{
		Method:       method,
		Scheme:       scheme,
		Host:         target.Hostname(),
		Port:         target.Port(),
		Path:         path,
		Header:       header,
		Body:         body,
		BodyEncoding: bodyEncoding,
		Charset:      charset,
	}, nil
}

func resolveBody(data any, charset string) ([]byte, BodyEncoding, error) {
	switch value := data.(type) {
	case nil:
		return []byte{}, EncodingDefault, nil
	case []byte:
		return value, EncodingBinary, nil
	case string:
		return []byte(value), EncodingDefault, nil
	case map[string]string:
		form := make(url.Values, len(value))
		for key, v := range value {
			form.Set(key, v)
		}

		return encodeForm(form, charset)
	case url.Values:
		return encodeForm(value, charset)
	default:
		return nil, EncodingDefault, fmt.Errorf("%w: %T", ErrUnsupportedData, data)
	}
}

// encodeForm percent-encodes form after transcoding keys and values into charset.
// Keys are emitted in sorted order.
func encodeForm(form url.Values, charset string) ([]byte, BodyEncoding, error) {
	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var buf bytes.Buffer
	for _, key := range keys {
		encodedKey, err := escapeInCharset(key, charset)
		if err != nil {
			return nil, EncodingDefault, err
		}

		for _, value := range form[key] {
			encodedValue, err := escapeInCharset(value, charset)
			if err != nil {
				return nil, EncodingDefault, err
			}

			if buf.Len() > 0 {
				buf.WriteByte('&')
			}

			buf.WriteString(encodedKey)
			buf.WriteByte('=')
			buf.WriteString(encodedValue)
		}
	}

	return buf.Bytes(), EncodingDefault, nil
}

func escapeInCharset(text, charset string) (string, error) {
	raw, err := Encode(text, charset)
	if err != nil {
		return "", err
	}

	return url.QueryEscape(string(raw)), nil
}

// newHTTPRequest converts the descriptor into a *http.Request bound to ctx.
// GET requests carry no body and drop the descriptor's content-length; all
// other methods send the resolved body with that length.
func (d *Descriptor) newHTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if !d.IsGet() {
		body = bytes.NewReader(d.Body)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, d.URL(), body)
	if err != nil {
		return nil, err
	}

	for key, value := range d.Header {
		switch key {
		case headerContentLength:
			if d.IsGet() {
				continue
			}

			length, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid content-length %q: %w", value, err)
			}

			req.ContentLength = length
		case headerHost:
			req.Host = value
		default:
			req.Header.Set(key, value)
		}
	}

	return req, nil
}
