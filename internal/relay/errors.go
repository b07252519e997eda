package relay

import (
	"errors"
	"fmt"
)

// ErrUpstream marks failures of the upstream source: connect, negotiation,
// group join or a broken stream.
var ErrUpstream = errors.New("relay: upstream stream error")

// UpstreamError describes where an upstream failure happened.
type UpstreamError struct {
	Transport string
	State     State
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("relay %s: upstream failed in %s: %v", e.Transport, e.State, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}

// errClientGone reports a failed write to the downstream client.
var errClientGone = errors.New("relay: client gone")
