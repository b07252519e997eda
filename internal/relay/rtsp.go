package relay

import (
	"context"
	"io"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/description"
	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/pion/rtp"

	xglog "github.com/ManuGH/iptvproxy/internal/log"
	pnet "github.com/ManuGH/iptvproxy/internal/platform/net"
)

const userAgent = "iptvproxy"

// RelayRTSP plays the target over RTSP with TCP interleaving and forwards
// the RTP payloads to w. Nothing is written unless PLAY succeeded. On return
// the session has been torn down and the connection closed.
func (r *Relay) RelayRTSP(ctx context.Context, t Target, w io.Writer) error {
	const transport = "rtsp"

	tr := r.newTracker(ctx, t)
	defer tr.set(StateClosed)

	rm := newRelayMetrics(transport)
	defer rm.finish()

	tr.set(StateConnecting)
	connectFail := func(err error) error {
		tr.set(StateTeardown)
		return &UpstreamError{Transport: transport, State: StateConnecting, Err: err}
	}
	u, err := base.ParseURL(t.URL)
	if err != nil {
		return connectFail(err)
	}
	dialer, err := pnet.Dialer(t.Interface, r.cfg.RTSPTimeout)
	if err != nil {
		return connectFail(err)
	}

	tcp := gortsplib.TransportTCP
	c := &gortsplib.Client{
		Transport:    &tcp,
		ReadTimeout:  r.cfg.RTSPTimeout,
		WriteTimeout: r.cfg.RTSPTimeout,
		UserAgent:    userAgent,
		DialContext:  dialer.DialContext,
	}
	if err := c.Start(u.Scheme, u.Host); err != nil {
		return connectFail(err)
	}

	// A client that leaves during negotiation aborts the pending request.
	stop := context.AfterFunc(ctx, func() { c.Close() })
	closed := false
	teardown := func() {
		if closed {
			return
		}
		closed = true
		stop()
		tr.set(StateTeardown)
		c.Close()
	}
	defer teardown()

	fail := func(err error) error {
		state := tr.current()
		teardown()
		rm.outcome, err = finish(ctx, state, transport, err)
		return err
	}

	tr.set(StateNegotiating)
	desc, _, err := c.Describe(u)
	if err != nil {
		return fail(err)
	}
	if err := c.SetupAll(desc.BaseURL, desc.Medias); err != nil {
		return fail(err)
	}

	win := newWindow(r.cfg.Window)
	c.OnPacketRTPAny(func(_ *description.Media, _ format.Format, pkt *rtp.Packet) {
		if len(pkt.Payload) == 0 {
			return
		}
		win.push(append([]byte(nil), pkt.Payload...))
	})

	if _, err := c.Play(nil); err != nil {
		return fail(err)
	}
	tr.set(StateStreaming)

	waitDone := make(chan struct{})
	go func() {
		defer close(waitDone)
		win.close(c.Wait())
	}()

	fw := newFlushWriter(w)
	pumpErr := r.pump(ctx, win, fw, transport)
	teardown()
	<-waitDone

	dropped := win.droppedCount()
	rm.dropped = dropped
	rm.outcome, err = finish(ctx, StateStreaming, transport, pumpErr)
	tr.logger.Info().
		Str(xglog.FieldEvent, "relay.finished").
		Str("outcome", rm.outcome).
		Int64(xglog.FieldBytes, fw.written).
		Uint64(xglog.FieldDropped, dropped).
		Msg("rtsp relay finished")
	return err
}
