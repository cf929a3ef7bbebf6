package http

import "sync"

// Call is the handle returned by every request. It settles exactly once: either
// after the success callback has returned, or with the error that ended the
// request. Error handlers attached after the call has already failed are
// invoked immediately, so attaching late never loses an error.
//
// Call is safe for concurrent use.
type Call struct {
	mu       sync.Mutex
	done     chan struct{}
	settled  bool
	err      error
	handlers []func(error)
}

func newCall() *Call {
	return &Call{done: make(chan struct{})}
}

// Failed returns a Call that settles with err asynchronously, so that handlers
// attached by the caller right after receiving it still observe the error.
func Failed(err error) *Call {
	call := newCall()
	go call.settle(err)

	return call
}

// OnError registers fn to receive the terminal error of the call. It is never
// invoked for successful calls. It returns c to allow chaining.
func (c *Call) OnError(fn func(error)) *Call {
	if fn == nil {
		return c
	}

	c.mu.Lock()
	if !c.settled {
		c.handlers = append(c.handlers, fn)
		c.mu.Unlock()

		return c
	}

	err := c.err
	c.mu.Unlock()

	if err != nil {
		fn(err)
	}

	return c
}

// Done returns a channel closed once the call has settled.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Err returns the terminal error, or nil while pending or after success.
func (c *Call) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.err
}

// Wait blocks until the call settles and returns its terminal error.
func (c *Call) Wait() error {
	<-c.done
	return c.Err()
}

// settle records the outcome and notifies error handlers. Only the first call has
// any effect; it reports whether this invocation settled c.
func (c *Call) settle(err error) bool {
	c.mu.Lock()
	if c.settled {
		c.mu.Unlock()
		return false
	}

	c.settled = true
	c.err = err
	handlers := c.handlers
	c.handlers = nil
	c.mu.Unlock()

	if err != nil {
		for _, handler := range handlers {
			handler(err)
		}
	}

	close(c.done)

	return true
}
