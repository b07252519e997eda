package relay

import (
	"context"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is one live relay held by an HTTP client.
type Session struct {
	ID        string
	ClientIP  string
	UserAgent string
	Transport string
	Target    string
	StartedAt time.Time

	bytesSent int64
	lastWrite int64 // atomic unix nano
	cancel    context.CancelFunc
}

// SessionInfo is a point-in-time copy of a Session.
type SessionInfo struct {
	ID           string    `json:"id"`
	ClientIP     string    `json:"client_ip"`
	UserAgent    string    `json:"user_agent"`
	Transport    string    `json:"transport"`
	Target       string    `json:"target"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	BytesSent    int64     `json:"bytes_sent"`
}

func (s *Session) UpdateActivity(bytes int) {
	atomic.StoreInt64(&s.lastWrite, time.Now().UnixNano())
	atomic.AddInt64(&s.bytesSent, int64(bytes))
}

func (s *Session) LastActivity() time.Time {
	val := atomic.LoadInt64(&s.lastWrite)
	if val == 0 {
		return s.StartedAt
	}
	return time.Unix(0, val)
}

// Info returns a snapshot safe to marshal while the relay keeps writing.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:           s.ID,
		ClientIP:     s.ClientIP,
		UserAgent:    s.UserAgent,
		Transport:    s.Transport,
		Target:       s.Target,
		StartedAt:    s.StartedAt,
		LastActivity: s.LastActivity(),
		BytesSent:    atomic.LoadInt64(&s.bytesSent),
	}
}

// Registry tracks the live relays of this process.
type Registry struct {
	sessions sync.Map // map[string]*Session
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{now: time.Now}
}

// Register records a relay for req. cancel must end the relay.
func (r *Registry) Register(req *http.Request, t Target, cancel context.CancelFunc) *Session {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	host = strings.TrimPrefix(host, "::ffff:")

	s := &Session{
		ID:        uuid.New().String(),
		ClientIP:  host,
		UserAgent: req.UserAgent(),
		Transport: t.Kind.String(),
		Target:    t.String(),
		StartedAt: r.now(),
		cancel:    cancel,
	}
	r.sessions.Store(s.ID, s)
	return s
}

func (r *Registry) Unregister(id string) {
	r.sessions.Delete(id)
}

// Terminate cancels one relay. It reports whether id was live.
func (r *Registry) Terminate(id string) bool {
	v, ok := r.sessions.LoadAndDelete(id)
	if !ok {
		return false
	}
	if s := v.(*Session); s.cancel != nil {
		s.cancel()
	}
	return true
}

// TerminateAll cancels every live relay and returns how many there were.
func (r *Registry) TerminateAll() int {
	n := 0
	r.sessions.Range(func(key, _ any) bool {
		if r.Terminate(key.(string)) {
			n++
		}
		return true
	})
	return n
}

// List returns snapshots of the live relays, oldest first.
func (r *Registry) List() []SessionInfo {
	list := []SessionInfo{}
	r.sessions.Range(func(_, value any) bool {
		list = append(list, value.(*Session).Info())
		return true
	})
	sort.Slice(list, func(i, j int) bool { return list[i].StartedAt.Before(list[j].StartedAt) })
	return list
}
