package http

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/text/encoding/simplifiedchinese"

	mock_http "github.com/wesleyorama2/spidex/http/mocks"
)

// blockUntilGone parks a handler until the client goes away.
func blockUntilGone(r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(5 * time.Second):
	}
}

// outcome collects what a call delivered.
type outcome struct {
	resp      *Response
	err       error
	callbacks atomic.Int32
	errors    atomic.Int32
}

// await issues a call and reports false if it does not settle in time.
// Unlike issue it may run on any goroutine.
func await(client *Client, method, url string, opts *Options) (*outcome, bool) {
	out := &outcome{}
	call := client.Method(context.Background(), method, url, opts, func(resp *Response) {
		out.callbacks.Add(1)
		out.resp = resp
	}).OnError(func(error) {
		out.errors.Add(1)
	})

	select {
	case <-call.Done():
	case <-time.After(5 * time.Second):
		return nil, false
	}

	out.err = call.Err()

	return out, true
}

func issue(t *testing.T, client *Client, method, url string, opts *Options) *outcome {
	t.Helper()

	out, ok := await(client, method, url, opts)
	if !ok {
		t.Fatal("call did not settle")
	}

	return out
}

func TestClient_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Set-Cookie", "session=abc; Path=/")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello spider"))
	}))
	defer server.Close()

	out := issue(t, NewClient(), http.MethodGet, server.URL+"/index", nil)

	require.NoError(t, out.err)
	require.NotNil(t, out.resp)
	assert.Equal(t, int32(1), out.callbacks.Load())
	assert.Equal(t, int32(0), out.errors.Load())
	assert.Equal(t, http.StatusOK, out.resp.StatusCode)
	assert.Equal(t, "hello spider", out.resp.Text())
	assert.Equal(t, CharsetUTF8, out.resp.Charset)
	assert.Equal(t, "session=abc; ", out.resp.Cookies())
	assert.True(t, out.resp.IsSuccess())
	assert.Greater(t, out.resp.Timing.TotalTime, time.Duration(0))
	assert.False(t, out.resp.Timing.StartTime.IsZero())
}

func TestClient_PostEchoesBody(t *testing.T) {
	var gotContentType, gotUserAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotUserAgent = r.Header.Get("User-Agent")

		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	defer server.Close()

	out := issue(t, NewClient(), http.MethodPost, server.URL, &Options{Data: "a=你好", Charset: "utf8"})

	require.NoError(t, out.err)
	assert.Equal(t, "a=你好", out.resp.Text())
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, DefaultUserAgent(), gotUserAgent)
}

func TestClient_GetSendsNoBody(t *testing.T) {
	var gotLength int64
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLength = r.ContentLength
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	out := issue(t, NewClient(), http.MethodGet, server.URL, &Options{Data: "ignored"})

	require.NoError(t, out.err)
	assert.Equal(t, http.StatusNoContent, out.resp.StatusCode)
	assert.Equal(t, int64(0), gotLength)
	assert.Empty(t, gotBody)
	assert.Empty(t, out.resp.Content)
}

func TestClient_DecodesCharset(t *testing.T) {
	page, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte("<title>你好世界</title>"))
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		_, _ = w.Write(page)
	}))
	defer server.Close()

	out := issue(t, NewClient(), http.MethodGet, server.URL, &Options{Charset: "GBK"})

	require.NoError(t, out.err)
	assert.Equal(t, "<title>你好世界</title>", out.resp.Text())
	assert.Equal(t, "gbk", out.resp.Charset)
}

func TestClient_BinaryPassthrough(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0xff}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer server.Close()

	out := issue(t, NewClient(), http.MethodGet, server.URL+"/logo.png", &Options{Charset: "binary"})

	require.NoError(t, out.err)
	assert.Equal(t, png, out.resp.Content)
}

func TestClient_Timeouts(t *testing.T) {
	silent := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		blockUntilGone(r)
	})

	trickle := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		blockUntilGone(r)
	})

	tests := []struct {
		name    string
		handler http.Handler
		opts    *Options
		wantErr error
		message string
	}{
		{
			name:    "request timeout beats total timeout",
			handler: silent,
			opts:    &Options{RequestTimeout: 10 * time.Millisecond, Timeout: 100 * time.Millisecond},
			wantErr: ErrRequestTimeout,
			message: "request timeout in 10ms.",
		},
		{
			name:    "response timeout after headers",
			handler: trickle,
			opts:    &Options{ResponseTimeout: 10 * time.Millisecond, Timeout: 2 * time.Second},
			wantErr: ErrResponseTimeout,
			message: "response timeout in 10ms.",
		},
		{
			name:    "total timeout",
			handler: silent,
			opts:    &Options{Timeout: 20 * time.Millisecond},
			wantErr: ErrTimeout,
			message: "timeout in 20ms.",
		},
		{
			name:    "total timeout while streaming",
			handler: trickle,
			opts:    &Options{Timeout: 20 * time.Millisecond, RequestTimeout: time.Second},
			wantErr: ErrTimeout,
			message: "timeout in 20ms.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			out := issue(t, NewClient(), http.MethodGet, server.URL, tt.opts)

			require.ErrorIs(t, out.err, tt.wantErr)
			assert.Equal(t, tt.message, out.err.Error())

			var timeoutErr *TimeoutError
			require.ErrorAs(t, out.err, &timeoutErr)
			assert.True(t, timeoutErr.Timeout())

			assert.Equal(t, int32(0), out.callbacks.Load())
			assert.Equal(t, int32(1), out.errors.Load())
		})
	}
}

func TestClient_TransportErrors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		out := issue(t, NewClient(), http.MethodGet, url, &Options{Timeout: 2 * time.Second})

		require.Error(t, out.err)
		var timeoutErr *TimeoutError
		assert.False(t, errors.As(out.err, &timeoutErr))
		assert.Equal(t, int32(0), out.callbacks.Load())
		assert.Equal(t, int32(1), out.errors.Load())
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			blockUntilGone(r)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(10*time.Millisecond, cancel)

		start := time.Now()
		err := NewClient().Get(ctx, server.URL, nil, nil).Wait()

		require.Error(t, err)
		var timeoutErr *TimeoutError
		assert.False(t, errors.As(err, &timeoutErr))
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("round tripper error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		transport := mock_http.NewMockRoundTripper(ctrl)

		boom := errors.New("socket hang up")
		transport.EXPECT().RoundTrip(gomock.Any()).Return(nil, boom)

		out := issue(t, NewClient(WithTransport(transport)), http.MethodGet, "http://example.com/", nil)

		require.ErrorIs(t, out.err, boom)
		assert.Equal(t, int32(0), out.callbacks.Load())
	})
}

// trackedBody is a response body that never ends on its own.
type trackedBody struct {
	reader *io.PipeReader
	writer *io.PipeWriter
	closed atomic.Bool
}

func newTrackedBody() *trackedBody {
	reader, writer := io.Pipe()
	return &trackedBody{reader: reader, writer: writer}
}

func (b *trackedBody) Read(p []byte) (int, error) {
	return b.reader.Read(p)
}

func (b *trackedBody) Close() error {
	b.closed.Store(true)
	return b.reader.Close()
}

func TestClient_ResponseTimeoutTearsDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := mock_http.NewMockRoundTripper(ctrl)

	body := newTrackedBody()
	var sent atomic.Pointer[http.Request]

	transport.EXPECT().RoundTrip(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		sent.Store(req)

		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Header:     http.Header{},
			Body:       body,
			Request:    req,
		}, nil
	})

	out := issue(t, NewClient(WithTransport(transport)), http.MethodGet, "http://example.com/stream", &Options{
		ResponseTimeout: 10 * time.Millisecond,
	})

	require.ErrorIs(t, out.err, ErrResponseTimeout)
	assert.True(t, body.closed.Load(), "response body must be closed")

	req := sent.Load()
	require.NotNil(t, req)
	assert.ErrorIs(t, req.Context().Err(), context.Canceled, "request context must be cancelled")
}

func TestClient_BuildErrorsAreAsynchronous(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
		message string
	}{
		{name: "invalid URL", url: "$$$$$", wantErr: ErrInvalidURL, message: "Invalid URL: $$$$$"},
		{name: "unsupported protocol", url: "ftp://host/file", wantErr: ErrUnsupportedProtocol, message: "Unsupported protocol: ftp:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			call := NewClient().Get(context.Background(), tt.url, nil, func(*Response) { called = true })

			received := make(chan error, 1)
			call.OnError(func(err error) { received <- err })

			select {
			case err := <-received:
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.message, err.Error())
			case <-time.After(time.Second):
				t.Fatal("error handler attached after the call was never invoked")
			}

			assert.False(t, called)
		})
	}
}

func TestClient_AtMostOneOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delay := time.Duration(rand.IntN(40)) * time.Millisecond

		if rand.IntN(2) == 0 {
			time.Sleep(delay)
			_, _ = w.Write([]byte("slow headers"))

			return
		}

		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		time.Sleep(delay)
		_, _ = w.Write([]byte("slow body"))
	}))
	defer server.Close()

	client := NewClient()

	var wg sync.WaitGroup
	outcomes := make([]*outcome, 20)

	for i := range outcomes {
		wg.Add(1)
		go func() {
			defer wg.Done()

			out, ok := await(client, http.MethodGet, server.URL, &Options{
				Timeout:         20 * time.Millisecond,
				RequestTimeout:  15 * time.Millisecond,
				ResponseTimeout: 15 * time.Millisecond,
			})
			if !ok {
				t.Error("call did not settle")
				return
			}

			outcomes[i] = out
		}()
	}

	wg.Wait()

	// Give stray timers and transfer goroutines a chance to misbehave.
	time.Sleep(60 * time.Millisecond)

	for _, out := range outcomes {
		if out == nil {
			continue
		}

		total := out.callbacks.Load() + out.errors.Load()
		assert.Equal(t, int32(1), total)

		if out.err == nil {
			assert.Equal(t, int32(1), out.callbacks.Load())
			assert.True(t, strings.HasPrefix(out.resp.Text(), "slow"))
		}
	}
}

func TestClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(r.Method))
	}))
	defer server.Close()

	resp, err := NewClient().Do(context.Background(), "put", server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, http.MethodPut, resp.Text())

	resp, err = NewClient().Do(context.Background(), http.MethodGet, "gopher://nowhere", nil)
	require.ErrorIs(t, err, ErrUnsupportedProtocol)
	assert.Nil(t, resp)
}

func TestPackageHelpersUseDefaultClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Method))
	}))
	defer server.Close()

	assert.Same(t, DefaultClient(), DefaultClient())

	helpers := map[string]func(context.Context, string, *Options, Callback) *Call{
		http.MethodGet:    Get,
		http.MethodPost:   Post,
		http.MethodPut:    Put,
		http.MethodDelete: Delete,
	}

	for method, helper := range helpers {
		var got string
		err := helper(context.Background(), server.URL, nil, func(resp *Response) {
			got = resp.Text()
		}).Wait()

		require.NoError(t, err)
		assert.Equal(t, method, got)
	}

	var got string
	err := Method(context.Background(), "OPTIONS", server.URL, nil, func(resp *Response) {
		got = resp.Text()
	}).Wait()
	require.NoError(t, err)
	assert.Equal(t, "OPTIONS", got)
}
