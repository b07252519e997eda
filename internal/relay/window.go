package relay

import (
	"context"
	"io"
	"sync"
)

// window is a bounded packet queue between the upstream reader and the
// client writer. When full, the oldest packet is discarded so a slow client
// always receives the most recent data.
type window struct {
	mu      sync.Mutex
	packets [][]byte
	limit   int
	dropped uint64
	closed  bool
	err     error
	notify  chan struct{}
}

func newWindow(limit int) *window {
	if limit < 1 {
		limit = 1
	}
	return &window{
		packets: make([][]byte, 0, limit),
		limit:   limit,
		notify:  make(chan struct{}, 1),
	}
}

// push enqueues p and reports whether an older packet was dropped for it.
func (w *window) push(p []byte) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	dropped := false
	if len(w.packets) == w.limit {
		w.packets[0] = nil
		w.packets = w.packets[1:]
		w.dropped++
		dropped = true
	}
	w.packets = append(w.packets, p)
	w.mu.Unlock()

	w.signal()
	return dropped
}

// pop blocks for the next packet. After close, queued packets are drained
// before the close error (io.EOF when nil) is returned.
func (w *window) pop(ctx context.Context) ([]byte, error) {
	for {
		w.mu.Lock()
		if len(w.packets) > 0 {
			p := w.packets[0]
			w.packets[0] = nil
			w.packets = w.packets[1:]
			w.mu.Unlock()
			return p, nil
		}
		if w.closed {
			err := w.err
			w.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return nil, err
		}
		w.mu.Unlock()

		select {
		case <-w.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// close stops accepting packets. The first close wins.
func (w *window) close(err error) {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		w.err = err
	}
	w.mu.Unlock()
	w.signal()
}

func (w *window) droppedCount() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

func (w *window) signal() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}
