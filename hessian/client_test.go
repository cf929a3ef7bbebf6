package hessian

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	hessian2 "github.com/apache/dubbo-go-hessian2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spidex "github.com/wesleyorama2/spidex/http"
)

// replyWith frames value as a Hessian 2.0 reply of the given kind.
func replyWith(t *testing.T, kind byte, value any) []byte {
	t.Helper()

	encoder := hessian2.NewEncoder()
	require.NoError(t, encoder.Encode(value))

	return append([]byte{'H', 0x02, 0x00, kind}, encoder.Buffer()...)
}

// parseCall unframes a call envelope the way a Hessian service would.
func parseCall(body []byte) (string, []any, error) {
	if len(body) < 5 || !bytes.Equal(body[:4], []byte{'H', 0x02, 0x00, 'C'}) {
		return "", nil, errors.New("bad call header")
	}

	length := int(body[4])
	if len(body) < 5+length {
		return "", nil, errors.New("short method name")
	}

	method := string(body[5 : 5+length])
	decoder := hessian2.NewDecoder(body[5+length:])

	count, err := decoder.Decode()
	if err != nil {
		return "", nil, err
	}

	n, ok := count.(int32)
	if !ok {
		return "", nil, fmt.Errorf("argument count is %T", count)
	}

	args := make([]any, 0, n)
	for range n {
		arg, err := decoder.Decode()
		if err != nil {
			return "", nil, err
		}

		args = append(args, arg)
	}

	return method, args, nil
}

// newTestService mimics the reference Hessian test service.
func newTestService(t *testing.T) (*httptest.Server, *http.Header) {
	t.Helper()

	var seen http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()

		body, _ := io.ReadAll(r.Body)

		method, args, err := parseCall(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		switch method {
		case "argTrue":
			_, _ = w.Write(replyWith(t, 'R', len(args) == 1 && args[0] == true))
		case "argString":
			_, _ = w.Write(replyWith(t, 'R', len(args) == 1 && args[0] == "你好"))
		case "replyNull":
			_, _ = w.Write(replyWith(t, 'R', nil))
		case "replyInt":
			_, _ = w.Write(replyWith(t, 'R', int32(1000)))
		case "fault":
			_, _ = w.Write(replyWith(t, 'F', map[string]any{
				"code":    "ServiceException",
				"message": "The service failed",
			}))
		case "garbage":
			_, _ = w.Write([]byte("not hessian"))
		case "empty":
			w.WriteHeader(http.StatusInternalServerError)
		case "slow":
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		default:
			http.Error(w, "no such method: "+method, http.StatusInternalServerError)
		}
	}))
	t.Cleanup(server.Close)

	return server, &seen
}

func TestInvoke_Replies(t *testing.T) {
	server, seen := newTestService(t)
	client := NewClient(spidex.NewClient())

	tests := []struct {
		method string
		args   []any
		want   any
	}{
		{method: "argTrue", args: []any{true}, want: true},
		{method: "argTrue", args: []any{false}, want: false},
		{method: "argString", args: []any{"你好"}, want: true},
		{method: "replyNull", args: nil, want: nil},
		{method: "replyInt", args: []any{}, want: int32(1000)},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			result, err := client.Invoke(context.Background(), server.URL, tt.method, tt.args, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result)
		})
	}

	assert.Equal(t, "application/binary", seen.Get("Content-Type"))
}

func TestCall_Callback(t *testing.T) {
	server, _ := newTestService(t)

	var (
		gotErr    error
		gotResult any
		calls     int
	)

	call := NewClient(spidex.NewClient()).Call(context.Background(), server.URL, "argTrue", []any{true}, nil,
		func(err error, result any) {
			calls++
			gotErr, gotResult = err, result
		})

	require.NoError(t, call.Wait())
	assert.Equal(t, 1, calls)
	assert.NoError(t, gotErr)
	assert.Equal(t, true, gotResult)
}

func TestInvoke_Errors(t *testing.T) {
	server, _ := newTestService(t)
	client := NewClient(spidex.NewClient())

	t.Run("non-200 status", func(t *testing.T) {
		_, err := client.Invoke(context.Background(), server.URL, "missing", nil, nil)

		var callErr *CallError
		require.ErrorAs(t, err, &callErr)
		assert.ErrorIs(t, err, ErrStatus)
		assert.Equal(t, http.StatusInternalServerError, callErr.StatusCode)
		assert.Equal(t, "unexpected reply status 500: no such method: missing\n", err.Error())
	})

	t.Run("non-200 status without body", func(t *testing.T) {
		_, err := client.Invoke(context.Background(), server.URL, "empty", nil, nil)

		var callErr *CallError
		require.ErrorAs(t, err, &callErr)
		assert.ErrorIs(t, err, ErrStatus)
		assert.Empty(t, callErr.Content)
		assert.Equal(t, "unexpected reply status 500", err.Error())
	})

	t.Run("fault reply", func(t *testing.T) {
		_, err := client.Invoke(context.Background(), server.URL, "fault", nil, nil)

		var callErr *CallError
		require.ErrorAs(t, err, &callErr)
		assert.ErrorIs(t, err, ErrFault)
		assert.Equal(t, "The service failed", callErr.Message)
		assert.Equal(t, "ServiceException", callErr.Fault["code"])
		assert.Contains(t, err.Error(), "ServiceException")
	})

	t.Run("undecodable reply", func(t *testing.T) {
		_, err := client.Invoke(context.Background(), server.URL, "garbage", nil, nil)

		var callErr *CallError
		require.ErrorAs(t, err, &callErr)
		assert.ErrorIs(t, err, ErrDecode)
		assert.Equal(t, []byte("not hessian"), callErr.Content)
	})

	t.Run("lifecycle errors pass through", func(t *testing.T) {
		_, err := client.Invoke(context.Background(), server.URL, "slow", nil, &spidex.Options{
			RequestTimeout: 10 * time.Millisecond,
		})

		require.ErrorIs(t, err, spidex.ErrRequestTimeout)
		assert.Equal(t, "request timeout in 10ms.", err.Error())

		var callErr *CallError
		assert.False(t, errors.As(err, &callErr))
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := client.Invoke(context.Background(), "$$$$$", "argTrue", []any{true}, nil)
		require.ErrorIs(t, err, spidex.ErrInvalidURL)
	})

	t.Run("method name too long", func(t *testing.T) {
		_, err := client.Invoke(context.Background(), server.URL, strings.Repeat("m", 256), nil, nil)
		require.ErrorIs(t, err, ErrMethodNameTooLong)
	})
}

func TestEncodeCall(t *testing.T) {
	body, err := EncodeCall("add2", []any{int32(2), int32(3)})
	require.NoError(t, err)

	// Matches the example envelope of the Hessian 2.0 web service protocol.
	assert.Equal(t, []byte{'H', 0x02, 0x00, 'C', 0x04, 'a', 'd', 'd', '2', 0x92, 0x92, 0x93}, body)

	method, args, err := parseCall(body)
	require.NoError(t, err)
	assert.Equal(t, "add2", method)
	assert.Equal(t, []any{int32(2), int32(3)}, args)
}

func TestDecodeReply(t *testing.T) {
	value, err := DecodeReply(replyWith(t, 'R', "ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", value)

	_, err = DecodeReply([]byte{'H', 0x02})
	assert.ErrorIs(t, err, ErrDecode)

	_, err = DecodeReply(replyWith(t, 'X', "ok"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestEnvelopeOptions(t *testing.T) {
	opts := &spidex.Options{
		Header: map[string]string{
			"Content-Length": "99",
			"Content-Type":   "text/plain",
			"X-Trace":        "abc",
		},
		Charset: "gbk",
		Timeout: time.Second,
	}

	got := envelopeOptions(opts, []byte{1, 2, 3})

	assert.Equal(t, map[string]string{"content-type": "application/binary", "X-Trace": "abc"}, got.Header)
	assert.Equal(t, []byte{1, 2, 3}, got.Data)
	assert.Equal(t, spidex.CharsetBinary, got.Charset)
	assert.Equal(t, time.Second, got.Timeout)

	assert.Equal(t, "gbk", opts.Charset, "caller options must not be modified")
	assert.Len(t, opts.Header, 3)
}
