package http

//go:generate $MOCKGEN -destination=mocks/round_tripper_mock.go -package=mock_http net/http RoundTripper

import (
	"context"
	"net/http"
	"sync"
)

// Client issues requests through the lifecycle controller. Each call owns its
// own timers, transport request and response; nothing but configuration is
// shared between calls.
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	transport          http.RoundTripper
	insecureSkipVerify bool
	maxLogLength       int
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// NewClient creates a new client with the given options.
//
// Example:
//
//	client := http.NewClient(
//	    http.WithInsecureSkipVerify(true),
//	)
//
//	client.Get(ctx, "https://example.com/", &http.Options{Timeout: 5 * time.Second},
//	    func(resp *http.Response) {
//	        fmt.Println(resp.StatusCode, resp.Text())
//	    },
//	).OnError(func(err error) {
//	    log.Println(err)
//	})
func NewClient(options ...ClientOption) *Client {
	client := &Client{}

	for _, option := range options {
		option(client)
	}

	if client.transport == nil {
		client.transport = newTransport(client.insecureSkipVerify)
	}

	client.transport = NewLogTransport(client.transport, client.maxLogLength)

	return client
}

// WithTransport sets the http.RoundTripper used for every request.
// Redirects are never followed, whatever the transport.
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.transport = transport
	}
}

// WithInsecureSkipVerify controls TLS certificate verification of the default
// transport. Verification is enabled unless skip is true.
// WARNING: skipping verification exposes requests to interception.
func WithInsecureSkipVerify(skip bool) ClientOption {
	return func(c *Client) {
		c.insecureSkipVerify = skip
	}
}

// WithMaxLogLength limits the size of request and response dumps logged at debug level.
func WithMaxLogLength(n int) ClientOption {
	return func(c *Client) {
		c.maxLogLength = n
	}
}

// Method issues a request with an arbitrary method token. opts and callback may be nil.
//
// The returned Call settles exactly once. On success callback is invoked with
// the buffered response before the Call settles; on failure the error is
// delivered through the Call and callback is never invoked. Build errors such as
// an invalid URL are delivered asynchronously as well.
func (c *Client) Method(ctx context.Context, method, rawURL string, opts *Options, callback Callback) *Call {
	if ctx == nil {
		ctx = context.Background()
	}

	desc, err := BuildRequest(method, rawURL, opts)
	if err != nil {
		return Failed(err)
	}

	if opts == nil {
		opts = &Options{}
	}

	if callback == nil {
		callback = func(*Response) {}
	}

	call := newCall()
	lc := newLifecycle(c.transport, desc, opts, callback, call)
	go lc.run(ctx)

	return call
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, rawURL string, opts *Options, callback Callback) *Call {
	return c.Method(ctx, http.MethodGet, rawURL, opts, callback)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, rawURL string, opts *Options, callback Callback) *Call {
	return c.Method(ctx, http.MethodPost, rawURL, opts, callback)
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, rawURL string, opts *Options, callback Callback) *Call {
	return c.Method(ctx, http.MethodPut, rawURL, opts, callback)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, rawURL string, opts *Options, callback Callback) *Call {
	return c.Method(ctx, http.MethodDelete, rawURL, opts, callback)
}

// Do issues a request and blocks until it settles.
func (c *Client) Do(ctx context.Context, method, rawURL string, opts *Options) (*Response, error) {
	var resp *Response

	err := c.Method(ctx, method, rawURL, opts, func(r *Response) {
		resp = r
	}).Wait()
	if err != nil {
		return nil, err
	}

	return resp, nil
}

var defaultClient = sync.OnceValue(func() *Client {
	return NewClient()
})

// DefaultClient returns the client used by the package-level helpers.
func DefaultClient() *Client {
	return defaultClient()
}

// Method issues a request through the default client.
func Method(ctx context.Context, method, rawURL string, opts *Options, callback Callback) *Call {
	return DefaultClient().Method(ctx, method, rawURL, opts, callback)
}

// Get issues a GET request through the default client.
func Get(ctx context.Context, rawURL string, opts *Options, callback Callback) *Call {
	return DefaultClient().Get(ctx, rawURL, opts, callback)
}

// Post issues a POST request through the default client.
func Post(ctx context.Context, rawURL string, opts *Options, callback Callback) *Call {
	return DefaultClient().Post(ctx, rawURL, opts, callback)
}

// Put issues a PUT request through the default client.
func Put(ctx context.Context, rawURL string, opts *Options, callback Callback) *Call {
	return DefaultClient().Put(ctx, rawURL, opts, callback)
}

// Delete issues a DELETE request through the default client.
func Delete(ctx context.Context, rawURL string, opts *Options, callback Callback) *Call {
	return DefaultClient().Delete(ctx, rawURL, opts, callback)
}
