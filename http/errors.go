package http

import (
	"errors"
	"fmt"
	"time"
)

// Static error definitions. Build errors wrap one of the first four, timeouts
// are reported as *TimeoutError values that match the last three.
var (
	// ErrInvalidURL indicates that the target could not be parsed as an absolute URL.
	ErrInvalidURL = errors.New("Invalid URL") //nolint:stylecheck // Message is part of the public contract.
	// ErrUnsupportedProtocol indicates a scheme other than http or https.
	ErrUnsupportedProtocol = errors.New("Unsupported protocol") //nolint:stylecheck // Same as above.
	// ErrUnsupportedCharset indicates a charset without a known decoder.
	ErrUnsupportedCharset = errors.New("unsupported charset")
	// ErrUnsupportedData indicates an Options.Data value of an unknown type.
	ErrUnsupportedData = errors.New("unsupported request data type")

	// ErrTimeout matches total round-trip timeouts.
	ErrTimeout = errors.New("timeout")
	// ErrRequestTimeout matches timeouts of the request phase.
	ErrRequestTimeout = errors.New("request timeout")
	// ErrResponseTimeout matches timeouts of the response phase.
	ErrResponseTimeout = errors.New("response timeout")
)

// TimeoutPhase names the clock that expired.
type TimeoutPhase int

const (
	// PhaseTotal bounds the whole request and response round trip.
	PhaseTotal TimeoutPhase = iota
	// PhaseRequest bounds the time until response headers arrive.
	PhaseRequest
	// PhaseResponse bounds the time from response headers to the end of the body.
	PhaseResponse
)

// String returns the phase label used in error messages.
func (p TimeoutPhase) String() string {
	switch p {
	case PhaseRequest:
		return "request timeout"
	case PhaseResponse:
		return "response timeout"
	default:
		return "timeout"
	}
}

// TimeoutError is delivered when one of the three request clocks expires first.
type TimeoutError struct {
	Phase TimeoutPhase
	Limit time.Duration
}

// Error renders e.g. "request timeout in 10ms.".
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s in %dms.", e.Phase, e.Limit.Milliseconds())
}

// Timeout reports true so TimeoutError satisfies net.Error style checks.
func (e *TimeoutError) Timeout() bool {
	return true
}

// Is matches the sentinel of the expired phase.
func (e *TimeoutError) Is(target error) bool {
	switch e.Phase {
	case PhaseRequest:
		return target == ErrRequestTimeout
	case PhaseResponse:
		return target == ErrResponseTimeout
	default:
		return target == ErrTimeout
	}
}
