package hessian

import (
	"errors"
	"fmt"
)

// Static error definitions.
var (
	// ErrMethodNameTooLong indicates a method name that does not fit the one byte length prefix.
	ErrMethodNameTooLong = errors.New("method name longer than 255 bytes")
	// ErrStatus matches replies with a status other than 200.
	ErrStatus = errors.New("unexpected reply status")
	// ErrDecode matches replies that are not valid Hessian 2.0 replies.
	ErrDecode = errors.New("malformed reply")
	// ErrFault matches fault replies raised by the remote service.
	ErrFault = errors.New("fault reply")
)

// CallError describes a call that reached the service but did not produce a result.
// Errors raised by the request lifecycle itself, such as timeouts, are never wrapped
// in a CallError.
type CallError struct {
	// Kind is one of ErrStatus, ErrDecode or ErrFault.
	Kind error

	// StatusCode is the HTTP status of the reply.
	StatusCode int

	// Content is the raw reply body.
	Content []byte

	// Message is the decoder message for ErrDecode and the fault message for ErrFault.
	Message string

	// Fault holds the fault map of an ErrFault reply, keyed by field name.
	Fault map[string]any
}

func (e *CallError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrStatus):
		if len(e.Content) == 0 {
			return fmt.Sprintf("%s %d", ErrStatus, e.StatusCode)
		}

		return fmt.Sprintf("%s %d: %s", ErrStatus, e.StatusCode, e.Content)
	case errors.Is(e.Kind, ErrFault):
		code, _ := e.Fault["code"].(string)
		if code == "" {
			return fmt.Sprintf("%s: %s", ErrFault, e.Message)
		}

		return fmt.Sprintf("%s: %s: %s", ErrFault, code, e.Message)
	default:
		return fmt.Sprintf("%s %v", e.Message, e.Content)
	}
}

// Unwrap exposes Kind to errors.Is.
func (e *CallError) Unwrap() error {
	return e.Kind
}
