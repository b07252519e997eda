// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the public HTTP surface: playlist, guide, logos,
// stream relays and the operator endpoints.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/iptvproxy/internal/api/middleware"
	"github.com/ManuGH/iptvproxy/internal/health"
	"github.com/ManuGH/iptvproxy/internal/jobs"
	xglog "github.com/ManuGH/iptvproxy/internal/log"
	"github.com/ManuGH/iptvproxy/internal/mapping"
	"github.com/ManuGH/iptvproxy/internal/relay"
)

// Artifacts renders playlists and guides; satisfied by *jobs.Builder.
type Artifacts interface {
	Playlist(ctx context.Context, base jobs.Base) (jobs.Artifact, error)
	XMLTV(ctx context.Context, base jobs.Base) (jobs.Artifact, error)
}

// Icons serves channel logos; satisfied by *jobs.Icons.
type Icons interface {
	Get(ctx context.Context, id uint64) ([]byte, error)
}

// Streamer relays live sources; satisfied by *relay.Relay.
type Streamer interface {
	Stream(ctx context.Context, t relay.Target, w io.Writer) error
}

// Exporter writes the exported files; satisfied by *jobs.Exporter.
type Exporter interface {
	Run(ctx context.Context) (jobs.Status, error)
	Status() jobs.Status
}

// Config holds the API settings.
type Config struct {
	PublicURL      string // overrides the request host in generated links
	Interface      string // egress interface for relays
	RateLimitRPM   int    // per-IP limit on /api routes, zero disables
	TracingService string
}

// Deps are the collaborators behind the routes. Exporter, Mappings and
// Metrics are optional. A nil Sessions gets a private registry.
type Deps struct {
	Artifacts Artifacts
	Icons     Icons
	Relay     Streamer
	Exporter  Exporter
	Mappings  mapping.Store
	Sessions  *relay.Registry
	Health    *health.Manager
	Metrics   http.Handler
}

var errMissingDeps = errors.New("api: artifacts, icons, relay and health are required")

// Server is the HTTP front of the proxy.
type Server struct {
	cfg        Config
	deps       Deps
	publicBase *jobs.Base
	router     chi.Router
	logger     zerolog.Logger
}

// New builds the server and its routes.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Artifacts == nil || deps.Icons == nil || deps.Relay == nil || deps.Health == nil {
		return nil, errMissingDeps
	}
	if deps.Sessions == nil {
		deps.Sessions = relay.NewRegistry()
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: xglog.WithComponent("api"),
	}
	if cfg.PublicURL != "" {
		b, err := jobs.ParseBase(cfg.PublicURL)
		if err != nil {
			return nil, err
		}
		s.publicBase = &b
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: s.cfg.TracingService,
		EnableLogging:  true,
	})

	r.Get("/playlist", s.handlePlaylist)
	r.Get("/xmltv", s.handleXMLTV)
	r.Get("/logo/{id}.png", s.handleLogo)
	r.Get("/rtsp/*", s.handleRTSP)
	r.Get("/udp/{addr}", s.handleUDP)

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimitRPM > 0 {
			r.Use(middleware.APIRateLimit(s.cfg.RateLimitRPM))
		}
		r.With(middleware.RefreshRateLimit()).Post("/refresh", s.handleRefresh)
		r.Get("/status", s.handleStatus)
		r.Delete("/streams/{id}", s.handleTerminateStream)
		if s.deps.Mappings != nil {
			r.Get("/mappings", s.handleListMappings)
			r.Put("/mappings/{from}", s.handlePutMapping)
			r.Delete("/mappings/{from}", s.handleDeleteMapping)
		}
	})
	return r
}

// base is the address generated links point at.
func (s *Server) base(r *http.Request) jobs.Base {
	if s.publicBase != nil {
		return *s.publicBase
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return jobs.Base{Scheme: scheme, Host: r.Host}
}
