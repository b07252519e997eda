// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/iptvproxy/internal/jobs"
	xglog "github.com/ManuGH/iptvproxy/internal/log"
)

// HeaderFallback is set when the body is the last good copy of a failed build.
const HeaderFallback = "X-Iptvproxy-Fallback"

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, "playlist", "audio/x-mpegurl; charset=utf-8", s.deps.Artifacts.Playlist)
}

func (s *Server) handleXMLTV(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, "xmltv", "text/xml; charset=utf-8", s.deps.Artifacts.XMLTV)
}

func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, kind, contentType string,
	build func(context.Context, jobs.Base) (jobs.Artifact, error)) {
	art, err := build(r.Context(), s.base(r))
	if err != nil {
		logger := xglog.WithContext(r.Context(), s.logger)
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, kind+".unavailable").
			Msg("no artifact to serve")
		http.Error(w, kind+" unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Body)))
	if art.Fallback {
		w.Header().Set(HeaderFallback, "true")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Body)
}

func (s *Server) handleLogo(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	png, err := s.deps.Icons.Get(r.Context(), id)
	if err != nil {
		logger := xglog.WithContext(r.Context(), s.logger)
		logger.Debug().
			Err(err).
			Uint64(xglog.FieldChannelID, id).
			Msg("logo unavailable")
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}
