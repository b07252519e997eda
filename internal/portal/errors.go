package portal

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNetwork     = errors.New("portal: network failure")
	ErrAuth        = errors.New("portal: authentication failed")
	ErrParse       = errors.New("portal: unexpected response format")
	ErrNotFound    = errors.New("portal: resource not found")
	ErrCircuitOpen = errors.New("portal: circuit breaker is open")
)

// Error is a rich error type that wraps the sentinel errors with context.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Err       error // Nested lower-level error (e.g. net.Error)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%v (%s)", e.Sentinel, e.Operation)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s: HTTP %d", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

func newError(sentinel error, op string, status int, err error) *Error {
	return &Error{Sentinel: sentinel, Operation: op, Status: status, Err: err}
}
