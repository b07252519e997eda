// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/iptvproxy/internal/log"
	"github.com/ManuGH/iptvproxy/internal/relay"
	"github.com/ManuGH/iptvproxy/internal/telemetry"
)

func (s *Server) handleRTSP(w http.ResponseWriter, r *http.Request) {
	t, err := relay.RTSPTarget(chi.URLParam(r, "*"), r.URL.RawQuery, s.cfg.Interface)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.stream(w, r, t)
}

func (s *Server) handleUDP(w http.ResponseWriter, r *http.Request) {
	t, err := relay.MulticastTarget(chi.URLParam(r, "addr"), s.cfg.Interface)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.stream(w, r, t)
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, t relay.Target) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sess := s.deps.Sessions.Register(r, t, cancel)
	defer s.deps.Sessions.Unregister(sess.ID)

	trace.SpanFromContext(ctx).SetAttributes(telemetry.RelayAttributes(t.Kind.String(), t.String())...)

	logger := xglog.WithContext(ctx, s.logger).With().
		Str(xglog.FieldTransport, t.Kind.String()).
		Str(xglog.FieldTarget, t.String()).
		Str(xglog.FieldSessionID, sess.ID).
		Logger()

	sw := &streamWriter{w: w, rc: http.NewResponseController(w), sess: sess}
	err := s.deps.Relay.Stream(ctx, t, sw)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return
	case !sw.committed:
		logger.Warn().Err(err).Str(xglog.FieldEvent, "stream.open_failed").Msg("upstream failed before first byte")
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	default:
		logger.Info().Err(err).Str(xglog.FieldEvent, "stream.ended").Msg("stream ended with error")
	}
}

// streamWriter holds back the response header until the relay produces its
// first byte, so an upstream that never starts can still be answered with 502.
type streamWriter struct {
	w         http.ResponseWriter
	rc        *http.ResponseController
	sess      *relay.Session
	committed bool
}

func (sw *streamWriter) Write(p []byte) (int, error) {
	if !sw.committed {
		h := sw.w.Header()
		h.Set("Content-Type", "video/mp2t")
		h.Set("Cache-Control", "no-store")
		sw.w.WriteHeader(http.StatusOK)
		sw.committed = true
	}
	n, err := sw.w.Write(p)
	sw.sess.UpdateActivity(n)
	return n, err
}

func (sw *streamWriter) Flush() {
	if !sw.committed {
		return
	}
	_ = sw.rc.Flush()
}
