package relay

import (
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/iptvproxy/internal/log"
)

// State is the lifecycle state of one relay.
type State string

const (
	StateInit        State = "init"
	StateConnecting  State = "connecting"
	StateNegotiating State = "negotiating"
	StateStreaming   State = "streaming"
	StateTeardown    State = "teardown"
	StateJoining     State = "joining"
	StateReceiving   State = "receiving"
	StateLeaving     State = "leaving"
	StateClosed      State = "closed"
)

// tracker logs and publishes state transitions of one relay.
type tracker struct {
	state    State
	logger   zerolog.Logger
	observer func(State)
}

func newTracker(logger zerolog.Logger, observer func(State)) *tracker {
	t := &tracker{state: StateInit, logger: logger, observer: observer}
	if observer != nil {
		observer(StateInit)
	}
	return t
}

func (t *tracker) set(next State) {
	if t.state == next {
		return
	}
	t.logger.Debug().
		Str(xglog.FieldEvent, "relay.state").
		Str(xglog.FieldOldState, string(t.state)).
		Str(xglog.FieldNewState, string(next)).
		Msg("relay state changed")
	t.state = next
	if t.observer != nil {
		t.observer(next)
	}
}

func (t *tracker) current() State {
	return t.state
}
