package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/iptvproxy/internal/log"
	"github.com/ManuGH/iptvproxy/internal/metrics"
)

const (
	defaultWindow      = 256
	defaultReadBuffer  = 64 << 10
	defaultRTSPTimeout = 10 * time.Second
	defaultIdleTimeout = 10 * time.Second
)

// Config tunes relays.
type Config struct {
	Window      int           // packets buffered for a slow client
	ReadBuffer  int           // datagram buffer size
	RTSPTimeout time.Duration // RTSP read/write timeout
	IdleTimeout time.Duration // multicast silence tolerated before failing

	// Observer receives every state transition; used by tests and metrics.
	Observer func(Target, State)
}

// Relay streams live sources to HTTP clients. It keeps no state between
// calls; each call owns its upstream connection.
type Relay struct {
	cfg    Config
	log    zerolog.Logger
	listen listenFunc
}

// New creates a relay.
func New(cfg Config) *Relay {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.ReadBuffer <= 0 {
		cfg.ReadBuffer = defaultReadBuffer
	}
	if cfg.RTSPTimeout <= 0 {
		cfg.RTSPTimeout = defaultRTSPTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	return &Relay{
		cfg:    cfg,
		log:    xglog.WithComponent("relay"),
		listen: listenGroup,
	}
}

// Stream relays t to w until the client goes away or the upstream fails.
// A client disconnect returns nil; upstream failures wrap ErrUpstream.
func (r *Relay) Stream(ctx context.Context, t Target, w io.Writer) error {
	switch t.Kind {
	case KindRTSP:
		return r.RelayRTSP(ctx, t, w)
	case KindMulticast:
		return r.RelayMulticast(ctx, t, w)
	default:
		return fmt.Errorf("relay: unknown target kind %d", t.Kind)
	}
}

func (r *Relay) newTracker(ctx context.Context, t Target) *tracker {
	logger := xglog.WithContext(ctx, r.log).With().
		Str(xglog.FieldTransport, t.Kind.String()).
		Str(xglog.FieldTarget, t.String()).
		Logger()
	var observer func(State)
	if r.cfg.Observer != nil {
		observer = func(s State) { r.cfg.Observer(t, s) }
	}
	return newTracker(logger, observer)
}

// pump copies packets from win to fw until ctx ends, the client write fails
// or the window is closed.
func (r *Relay) pump(ctx context.Context, win *window, fw *flushWriter, transport string) error {
	for {
		p, err := win.pop(ctx)
		if err != nil {
			return err
		}
		if err := fw.write(p); err != nil {
			return fmt.Errorf("%w: %v", errClientGone, err)
		}
		metrics.AddRelayBytes(transport, len(p))
	}
}

// finish classifies the end of a relay: client disconnects are not errors.
func finish(ctx context.Context, state State, transport string, err error) (string, error) {
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return "eof", nil
	case errors.Is(err, errClientGone), ctx.Err() != nil:
		return "client_gone", nil
	default:
		return "upstream_error", &UpstreamError{Transport: transport, State: state, Err: err}
	}
}

type relayMetrics struct {
	transport string
	outcome   string
	dropped   uint64
}

func newRelayMetrics(transport string) *relayMetrics {
	metrics.RelayStarted(transport)
	return &relayMetrics{transport: transport, outcome: "upstream_error"}
}

func (m *relayMetrics) finish() {
	metrics.AddRelayDropped(m.transport, m.dropped)
	metrics.RelayFinished(m.transport, m.outcome)
}
