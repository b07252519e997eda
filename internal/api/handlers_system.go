// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/iptvproxy/internal/jobs"
	xglog "github.com/ManuGH/iptvproxy/internal/log"
	"github.com/ManuGH/iptvproxy/internal/mapping"
	"github.com/ManuGH/iptvproxy/internal/relay"
)

const maxMappingBody = 4 << 10

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export disabled")
		return
	}
	// The export outlives a client that disconnects mid-run.
	st, err := s.deps.Exporter.Run(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, jobs.ErrExportRunning):
		writeJSON(w, http.StatusConflict, st)
	case err != nil:
		logger := xglog.WithContext(r.Context(), s.logger)
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "export.refresh_failed").
			Msg("manual export failed")
		writeJSON(w, http.StatusBadGateway, st)
	default:
		writeJSON(w, http.StatusOK, st)
	}
}

type statusResponse struct {
	Export  *jobs.Status        `json:"export,omitempty"`
	Streams []relay.SessionInfo `json:"streams"`
}

// handleStatus reports the last export and the live relays. Export is absent
// when scheduled export is disabled.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{Streams: s.deps.Sessions.List()}
	if s.deps.Exporter != nil {
		st := s.deps.Exporter.Status()
		resp.Export = &st
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTerminateStream(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Sessions.Terminate(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "no such stream")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mappingEntry struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	table, err := s.deps.Mappings.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string(table))
}

func (s *Server) handlePutMapping(w http.ResponseWriter, r *http.Request) {
	var body struct {
		To string `json:"to"`
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxMappingBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	from := chi.URLParam(r, "from")
	if err := s.deps.Mappings.Put(r.Context(), from, body.To); err != nil {
		if errors.Is(err, mapping.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mappingEntry{From: from, To: body.To})
}

func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Mappings.Delete(r.Context(), chi.URLParam(r, "from"))
	switch {
	case errors.Is(err, mapping.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
