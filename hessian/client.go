package hessian

import (
	"context"
	"net/http"
	"strings"

	spidex "github.com/wesleyorama2/spidex/http"
	"github.com/wesleyorama2/spidex/internal/logger"
)

const contentTypeBinary = "application/binary"

// Callback receives either the decoded result or the error of a call, never both.
type Callback func(err error, result any)

// Client sends Hessian 2.0 calls as POST requests through a spidex client.
type Client struct {
	http *spidex.Client
}

// NewClient wraps client. A nil client selects spidex.DefaultClient.
func NewClient(client *spidex.Client) *Client {
	if client == nil {
		client = spidex.DefaultClient()
	}

	return &Client{http: client}
}

// Call invokes method on the service at url with args. opts may be nil; its
// Data and Charset are replaced and a caller content-length header is dropped.
//
// callback runs exactly once. Lifecycle errors such as timeouts are passed
// through unchanged, a non-200 status, an undecodable reply or a fault reply
// are reported as *CallError. The returned handle is done once callback has run.
func (c *Client) Call(ctx context.Context, url, method string, args []any, opts *spidex.Options, callback Callback) *spidex.Call {
	if callback == nil {
		callback = func(error, any) {}
	}

	body, err := EncodeCall(method, args)
	if err != nil {
		return spidex.Failed(err).OnError(func(err error) {
			callback(err, nil)
		})
	}

	opts = envelopeOptions(opts, body)

	logger.DebugKV(ctx, "hessian call", "url", url, "method", method, "args", len(args), "bytes", len(body))

	return c.http.Post(ctx, url, opts, func(resp *spidex.Response) {
		if resp.StatusCode != http.StatusOK {
			callback(&CallError{
				Kind:       ErrStatus,
				StatusCode: resp.StatusCode,
				Content:    resp.Content,
			}, nil)

			return
		}

		result, err := DecodeReply(resp.Content)
		if err != nil {
			callback(err, nil)
			return
		}

		callback(nil, result)
	}).OnError(func(err error) {
		callback(err, nil)
	})
}

// Invoke is the blocking form of Call.
func (c *Client) Invoke(ctx context.Context, url, method string, args []any, opts *spidex.Options) (any, error) {
	var (
		result any
		err    error
	)

	c.Call(ctx, url, method, args, opts, func(callErr error, value any) {
		result, err = value, callErr
	}).Wait()

	return result, err
}

func envelopeOptions(opts *spidex.Options, body []byte) *spidex.Options {
	opts = opts.Clone()

	header := make(map[string]string, len(opts.Header)+1)
	for key, value := range opts.Header {
		switch strings.ToLower(key) {
		case "content-length", "content-type":
			continue
		default:
			header[key] = value
		}
	}

	header["content-type"] = contentTypeBinary

	opts.Header = header
	opts.Data = body
	opts.Charset = spidex.CharsetBinary

	return opts
}

// Call invokes method through a client wrapping spidex.DefaultClient.
func Call(ctx context.Context, url, method string, args []any, opts *spidex.Options, callback Callback) *spidex.Call {
	return NewClient(nil).Call(ctx, url, method, args, opts, callback)
}

// Invoke is the blocking form of Call.
func Invoke(ctx context.Context, url, method string, args []any, opts *spidex.Options) (any, error) {
	return NewClient(nil).Invoke(ctx, url, method, args, opts)
}
