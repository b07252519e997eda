package relay

import (
	"context"
	"io"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/ipv4"

	xglog "github.com/ManuGH/iptvproxy/internal/log"
	pnet "github.com/ManuGH/iptvproxy/internal/platform/net"
)

// groupConn is the subset of *ipv4.PacketConn a multicast relay needs.
type groupConn interface {
	JoinGroup(ifi *net.Interface, group net.Addr) error
	LeaveGroup(ifi *net.Interface, group net.Addr) error
	SetControlMessage(cf ipv4.ControlFlags, on bool) error
	SetReadDeadline(t time.Time) error
	ReadFrom(b []byte) (int, *ipv4.ControlMessage, net.Addr, error)
	Close() error
}

type listenFunc func(ctx context.Context, t Target) (groupConn, *net.Interface, error)

func listenGroup(ctx context.Context, t Target) (groupConn, *net.Interface, error) {
	ifi, err := pnet.LookupInterface(t.Interface)
	if err != nil {
		return nil, nil, err
	}
	lc := pnet.MulticastListenConfig(t.Interface)
	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(int(t.Group.Port()))))
	if err != nil {
		return nil, nil, err
	}
	return ipv4.NewPacketConn(pc), ifi, nil
}

// RelayMulticast joins the target group and forwards its datagrams to w.
// The group is always left and the socket closed before returning.
func (r *Relay) RelayMulticast(ctx context.Context, t Target, w io.Writer) error {
	const transport = "multicast"

	tr := r.newTracker(ctx, t)
	defer tr.set(StateClosed)

	rm := newRelayMetrics(transport)
	defer rm.finish()

	tr.set(StateJoining)
	joinFail := func(err error) error {
		tr.set(StateLeaving)
		return &UpstreamError{Transport: transport, State: StateJoining, Err: err}
	}
	conn, ifi, err := r.listen(ctx, t)
	if err != nil {
		return joinFail(err)
	}
	group := &net.UDPAddr{IP: net.IP(t.Group.Addr().AsSlice())}
	if err := conn.JoinGroup(ifi, group); err != nil {
		_ = conn.Close()
		return joinFail(err)
	}
	if err := conn.SetControlMessage(ipv4.FlagDst, true); err != nil {
		tr.logger.Debug().Err(err).Msg("destination filtering unavailable")
	}

	win := newWindow(r.cfg.Window)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		r.readGroup(conn, group.IP, win)
	}()

	tr.set(StateReceiving)
	fw := newFlushWriter(w)
	pumpErr := r.pump(ctx, win, fw, transport)

	tr.set(StateLeaving)
	if err := conn.LeaveGroup(ifi, group); err != nil {
		tr.logger.Warn().Err(err).Str(xglog.FieldEvent, "relay.leave_failed").Msg("failed to leave multicast group")
	}
	_ = conn.Close()
	win.close(nil)
	<-readerDone

	dropped := win.droppedCount()
	rm.dropped = dropped
	rm.outcome, err = finish(ctx, StateReceiving, transport, pumpErr)
	tr.logger.Info().
		Str(xglog.FieldEvent, "relay.finished").
		Str("outcome", rm.outcome).
		Int64(xglog.FieldBytes, fw.written).
		Uint64(xglog.FieldDropped, dropped).
		Msg("multicast relay finished")
	return err
}

func (r *Relay) readGroup(conn groupConn, group net.IP, win *window) {
	buf := make([]byte, r.cfg.ReadBuffer)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(r.cfg.IdleTimeout)); err != nil {
			win.close(err)
			return
		}
		n, cm, _, err := conn.ReadFrom(buf)
		if err != nil {
			win.close(err)
			return
		}
		if cm != nil && cm.Dst != nil && !cm.Dst.Equal(group) {
			continue
		}
		payload := mediaPayload(buf[:n])
		if len(payload) == 0 {
			continue
		}
		win.push(append([]byte(nil), payload...))
	}
}
