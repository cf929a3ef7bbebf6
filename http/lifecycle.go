package http

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wesleyorama2/spidex/internal/logger"
)

const readChunkSize = 32 * 1024

type eventKind int

const (
	eventHeaders eventKind = iota
	eventBody
	eventError
)

// transportEvent is what the transfer goroutine reports to the lifecycle loop.
type transportEvent struct {
	kind    eventKind
	resp    *http.Response
	content []byte
	err     error
}

// lifecycle owns one in-flight request. All fields below the channels are only
// touched by the loop goroutine, which serializes transport events and timer
// expiries; the guard flags are therefore checked without locking.
type lifecycle struct {
	transport http.RoundTripper
	desc      *Descriptor
	opts      Options
	callback  Callback
	call      *Call

	events chan transportEvent
	quit   chan struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	response *http.Response

	totalTimer    *time.Timer
	requestTimer  *time.Timer
	responseTimer *time.Timer

	allFinished      bool
	timedOut         bool
	requestTimedOut  bool
	responseTimedOut bool
	timedOutEmitted  bool
	calledBack       bool
	errored          bool

	timingMu  sync.Mutex
	timing    TimingInfo
	headersAt time.Time
}

func newLifecycle(transport http.RoundTripper, desc *Descriptor, opts *Options, callback Callback, call *Call) *lifecycle {
	return &lifecycle{
		transport: transport,
		desc:      desc,
		opts:      *opts,
		callback:  callback,
		call:      call,
		events:    make(chan transportEvent),
		quit:      make(chan struct{}),
	}
}

// run drives the request from IDLE to COMPLETE.
func (l *lifecycle) run(parent context.Context) {
	defer close(l.quit)

	l.ctx = logger.WithKV(parent,
		"request_id", uuid.NewString(),
		"method", l.desc.Method,
		"url", l.desc.URL(),
	)

	reqCtx, cancel := context.WithCancel(l.ctx)
	l.cancel = cancel

	req, err := l.desc.newHTTPRequest(httptrace.WithClientTrace(reqCtx, l.trace()))
	if err != nil {
		l.errored = true
		l.fail(err)

		return
	}

	l.timingMu.Lock()
	l.timing.StartTime = time.Now()
	l.timingMu.Unlock()

	if l.opts.Timeout > 0 {
		l.totalTimer = time.NewTimer(l.opts.Timeout)
	}

	if l.opts.RequestTimeout > 0 {
		l.requestTimer = time.NewTimer(l.opts.RequestTimeout)
	}

	logger.DebugKV(l.ctx, "request started",
		"timeout", l.opts.Timeout,
		"request_timeout", l.opts.RequestTimeout,
		"response_timeout", l.opts.ResponseTimeout,
	)

	go l.transfer(req)

	for !l.terminal() {
		select {
		case ev := <-l.events:
			switch ev.kind {
			case eventHeaders:
				l.onHeaders(ev.resp)
			case eventBody:
				l.onComplete(ev.content)
			case eventError:
				l.onTransportError(ev.err)
			}
		case <-timerC(l.requestTimer):
			l.requestTimer = nil
			l.onRequestTimeout()
		case <-timerC(l.responseTimer):
			l.responseTimer = nil
			l.onResponseTimeout()
		case <-timerC(l.totalTimer):
			l.totalTimer = nil
			l.onTotalTimeout()
		}
	}
}

func (l *lifecycle) terminal() bool {
	return l.calledBack || l.errored || l.timedOutEmitted
}

// transfer performs the round trip and buffers the body. It runs on its own
// goroutine and stops reporting as soon as the loop has exited.
func (l *lifecycle) transfer(req *http.Request) {
	resp, err := l.transport.RoundTrip(req) //nolint:bodyclose // Closed by the loop or below.
	if err != nil {
		l.emit(transportEvent{kind: eventError, err: err})
		return
	}

	if !l.emit(transportEvent{kind: eventHeaders, resp: resp}) {
		resp.Body.Close()
		return
	}

	content, err := readBody(resp.Body)
	if err != nil {
		l.emit(transportEvent{kind: eventError, err: err})
		return
	}

	l.emit(transportEvent{kind: eventBody, content: content})
}

func (l *lifecycle) emit(ev transportEvent) bool {
	select {
	case l.events <- ev:
		return true
	case <-l.quit:
		return false
	}
}

func readBody(body io.Reader) ([]byte, error) {
	content := make([]byte, 0, readChunkSize)
	chunk := make([]byte, readChunkSize)

	for {
		n, err := body.Read(chunk)
		content = append(content, chunk[:n]...)

		if err == io.EOF {
			return content, nil
		}

		if err != nil {
			return nil, err
		}
	}
}

// onHeaders is the REQUESTING -> RESPONDING transition.
func (l *lifecycle) onHeaders(resp *http.Response) {
	l.response = resp

	l.timingMu.Lock()
	l.headersAt = time.Now()
	l.timingMu.Unlock()

	stopTimer(&l.requestTimer)

	if l.opts.ResponseTimeout > 0 {
		l.responseTimer = time.NewTimer(l.opts.ResponseTimeout)
	}

	logger.DebugKV(l.ctx, "response headers received", "status", resp.StatusCode)
}

// onComplete is the RESPONDING -> COMPLETE transition on success.
func (l *lifecycle) onComplete(raw []byte) {
	l.allFinished = true
	stopTimer(&l.responseTimer)
	stopTimer(&l.totalTimer)

	resp := l.response
	l.release()

	content, err := Decode(raw, l.desc.Charset)
	if err != nil {
		l.errored = true
		l.fail(err)

		return
	}

	if l.calledBack {
		return
	}

	l.calledBack = true

	finishedAt := time.Now()

	l.timingMu.Lock()
	timing := l.timing
	timing.ContentTransferTime = finishedAt.Sub(l.headersAt)
	timing.TotalTime = finishedAt.Sub(timing.StartTime)
	l.timingMu.Unlock()

	logger.DebugKV(l.ctx, "request completed",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed", timing.TotalTime,
	)

	l.callback(&Response{
		Content:    content,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Charset:    l.desc.Charset,
		Timing:     timing,
	})
	l.call.settle(nil)
}

func (l *lifecycle) onTransportError(err error) {
	if l.timedOut || l.requestTimedOut || l.responseTimedOut || l.errored || l.calledBack {
		return
	}

	l.errored = true
	l.fail(err)
}

func (l *lifecycle) onRequestTimeout() {
	if l.response != nil || l.timedOutEmitted || l.calledBack || l.errored {
		return
	}

	l.timedOutEmitted = true
	l.requestTimedOut = true
	l.fail(&TimeoutError{Phase: PhaseRequest, Limit: l.opts.RequestTimeout})
}

func (l *lifecycle) onResponseTimeout() {
	if l.allFinished || l.timedOutEmitted || l.calledBack || l.errored {
		return
	}

	l.timedOutEmitted = true
	l.responseTimedOut = true
	l.fail(&TimeoutError{Phase: PhaseResponse, Limit: l.opts.ResponseTimeout})
}

func (l *lifecycle) onTotalTimeout() {
	if l.allFinished || l.timedOutEmitted || l.calledBack || l.errored {
		return
	}

	l.timedOutEmitted = true
	l.timedOut = true
	l.fail(&TimeoutError{Phase: PhaseTotal, Limit: l.opts.Timeout})
}

// fail tears the request down and delivers err. Callers set their guard flag first.
func (l *lifecycle) fail(err error) {
	l.allFinished = true
	stopTimer(&l.requestTimer)
	stopTimer(&l.responseTimer)
	stopTimer(&l.totalTimer)
	l.release()

	logger.DebugKV(l.ctx, "request failed", "error", err)

	l.call.settle(err)
}

// release destroys the transport request and closes the response body, which
// closes the underlying connection.
func (l *lifecycle) release() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}

	if l.response != nil {
		l.response.Body.Close()
		l.response = nil
	}
}

func (l *lifecycle) trace() *httptrace.ClientTrace {
	var dnsStart, connectStart, tlsStart, lastPhaseEnd time.Time

	record := func(fn func(t *TimingInfo)) {
		l.timingMu.Lock()
		defer l.timingMu.Unlock()
		fn(&l.timing)
	}

	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			record(func(*TimingInfo) { dnsStart = time.Now() })
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			record(func(t *TimingInfo) {
				lastPhaseEnd = time.Now()
				t.DNSLookupTime = lastPhaseEnd.Sub(dnsStart)
			})
		},
		ConnectStart: func(string, string) {
			record(func(*TimingInfo) { connectStart = time.Now() })
		},
		ConnectDone: func(_, _ string, err error) {
			if err != nil {
				return
			}

			record(func(t *TimingInfo) {
				lastPhaseEnd = time.Now()
				t.TCPConnectTime = lastPhaseEnd.Sub(connectStart)
			})
		},
		TLSHandshakeStart: func() {
			record(func(*TimingInfo) { tlsStart = time.Now() })
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			if err != nil {
				return
			}

			record(func(t *TimingInfo) {
				lastPhaseEnd = time.Now()
				t.TLSHandshakeTime = lastPhaseEnd.Sub(tlsStart)
			})
		},
		GotFirstResponseByte: func() {
			record(func(t *TimingInfo) {
				if lastPhaseEnd.IsZero() {
					lastPhaseEnd = t.StartTime
				}

				t.TimeToFirstByte = time.Since(lastPhaseEnd)
			})
		},
	}
}

// timerC returns the channel of t, or nil so that an unarmed timer never fires in a select.
func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}

	return t.C
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
