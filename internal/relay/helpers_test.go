package relay

import (
	"bytes"
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
)

// recordingWriter collects relayed bytes and can fail after a number of writes
// to emulate a player that hangs up.
type recordingWriter struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	writes    int
	failAfter int // 0 never fails
	first     chan struct{}
	once      sync.Once
}

func newRecordingWriter(failAfter int) *recordingWriter {
	return &recordingWriter{failAfter: failAfter, first: make(chan struct{})}
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.once.Do(func() { close(w.first) })
	if w.failAfter > 0 && w.writes >= w.failAfter {
		return 0, errors.New("broken pipe")
	}
	w.writes++
	return w.buf.Write(p)
}

func (w *recordingWriter) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.buf.Bytes()...)
}

type datagram struct {
	dst     net.IP
	payload []byte
}

// fakeGroupConn records membership changes instead of touching the network.
type fakeGroupConn struct {
	mu        sync.Mutex
	joined    []string
	left      []string
	closed    bool
	joinErr   error
	deadline  time.Time
	packets   chan datagram
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeGroupConn() *fakeGroupConn {
	return &fakeGroupConn{packets: make(chan datagram, 64), done: make(chan struct{})}
}

func (f *fakeGroupConn) JoinGroup(_ *net.Interface, group net.Addr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joinErr != nil {
		return f.joinErr
	}
	f.joined = append(f.joined, group.String())
	return nil
}

func (f *fakeGroupConn) LeaveGroup(_ *net.Interface, group net.Addr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, group.String())
	return nil
}

func (f *fakeGroupConn) SetControlMessage(ipv4.ControlFlags, bool) error { return nil }

func (f *fakeGroupConn) SetReadDeadline(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadline = t
	return nil
}

func (f *fakeGroupConn) ReadFrom(b []byte) (int, *ipv4.ControlMessage, net.Addr, error) {
	f.mu.Lock()
	deadline := f.deadline
	f.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case d := <-f.packets:
		n := copy(b, d.payload)
		return n, &ipv4.ControlMessage{Dst: d.dst}, &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 1234}, nil
	case <-f.done:
		return 0, nil, nil, net.ErrClosed
	case <-timeout:
		return 0, nil, nil, os.ErrDeadlineExceeded
	}
}

func (f *fakeGroupConn) Close() error {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.done)
	})
	return nil
}

func (f *fakeGroupConn) snapshot() (joined, left []string, closed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.joined...), append([]string(nil), f.left...), f.closed
}
