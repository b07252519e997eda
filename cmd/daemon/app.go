// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/iptvproxy/internal/api"
	"github.com/ManuGH/iptvproxy/internal/cache"
	"github.com/ManuGH/iptvproxy/internal/config"
	"github.com/ManuGH/iptvproxy/internal/daemon"
	"github.com/ManuGH/iptvproxy/internal/health"
	"github.com/ManuGH/iptvproxy/internal/jobs"
	xglog "github.com/ManuGH/iptvproxy/internal/log"
	"github.com/ManuGH/iptvproxy/internal/mapping"
	"github.com/ManuGH/iptvproxy/internal/platform/httpx"
	"github.com/ManuGH/iptvproxy/internal/portal"
	"github.com/ManuGH/iptvproxy/internal/relay"
	"github.com/ManuGH/iptvproxy/internal/telemetry"
)

const (
	extraFetchTimeout = 30 * time.Second
	exportMaxAge      = 6 * time.Hour
)

// app owns every long-lived component and their shutdown order.
type app struct {
	cfg      config.AppConfig
	logger   zerolog.Logger
	holder   *config.ConfigHolder
	builder  *jobs.Builder
	manager  daemon.Manager
	exporter *jobs.Exporter
	sched    *jobs.Scheduler
	sessions *relay.Registry
	closers  []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

func newApp(ctx context.Context, cfg config.AppConfig, loader *config.Loader) (a *app, err error) {
	a = &app{cfg: cfg, logger: xglog.WithComponent("daemon"), sessions: relay.NewRegistry()}
	defer func() {
		if err != nil {
			a.closeAll(context.WithoutCancel(ctx))
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.onClose("telemetry", tp.Shutdown)

	c, closeCache, err := cache.Open(cache.Options{
		Backend: cfg.CacheBackend,
		Redis: cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		BadgerDir: cfg.BadgerDir,
	}, xglog.WithComponent("cache"))
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	a.onClose("cache", func(context.Context) error { return closeCache() })

	var store mapping.Store
	var sqliteStore *mapping.SQLiteStore
	if cfg.MappingDB != "" {
		sqliteStore, err = mapping.OpenSQLite(cfg.MappingDB)
		if err != nil {
			return nil, fmt.Errorf("mapping store: %w", err)
		}
		store = sqliteStore
		a.onClose("mapping store", func(context.Context) error { return store.Close() })
	}

	client := portal.New(portal.Config{
		AuthURL: cfg.AuthURL,
		Credentials: portal.Credentials{
			UserID:    cfg.User,
			Password:  cfg.Password,
			MAC:       cfg.MAC,
			IMEI:      cfg.IMEI,
			Address:   cfg.Address,
			Interface: cfg.Interface,
		},
		Timeout:          cfg.PortalTimeout,
		GuideConcurrency: cfg.GuideConcurrency,
		GuideRPS:         cfg.GuideRPS,
		Trace:            cfg.Telemetry.Enabled,
	})

	rl := relay.New(relay.Config{
		Window:      cfg.RelayWindow,
		RTSPTimeout: cfg.RelayTimeout,
		IdleTimeout: cfg.RelayTimeout,
	})

	extra, err := newExtraClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	a.builder = jobs.NewBuilder(client, c, store, extra, builderConfig(cfg))
	icons := jobs.NewIcons(client, c, cfg.CacheTTL)

	hm := health.NewManager(cfg.Version)
	if cfg.ReadyStrict {
		hm.RegisterChecker(health.NewFuncChecker("portal", health.StatusUnhealthy, cfg.PortalTimeout, client.CheckLogin))
	}
	if hc, ok := c.(interface{ HealthCheck(context.Context) error }); ok {
		hm.RegisterChecker(health.NewFuncChecker("cache", health.StatusDegraded, 2*time.Second, hc.HealthCheck))
	}
	if sqliteStore != nil {
		hm.RegisterChecker(health.NewFuncChecker("mappings", health.StatusUnhealthy, 2*time.Second, sqliteStore.Check))
	}

	if cfg.PublicURL != "" {
		base, err := jobs.ParseBase(cfg.PublicURL)
		if err != nil {
			return nil, fmt.Errorf("public url: %w", err)
		}
		a.exporter = jobs.NewExporter(a.builder, cfg.DataDir, base)
		if cfg.RefreshCron != "" {
			a.sched, err = jobs.NewScheduler(cfg.RefreshCron, func(ctx context.Context) error {
				_, err := a.exporter.Run(ctx)
				return err
			})
			if err != nil {
				return nil, err
			}
		}
		hm.RegisterChecker(health.NewLastRunChecker("export", exportMaxAge, func() (time.Time, string) {
			st := a.exporter.Status()
			return st.LastSuccess, st.Error
		}))
	}

	deps := api.Deps{
		Artifacts: a.builder,
		Icons:     icons,
		Relay:     rl,
		Mappings:  store,
		Sessions:  a.sessions,
		Health:    hm,
	}
	if a.exporter != nil {
		deps.Exporter = a.exporter
	}
	if cfg.MetricsAddr == "" {
		deps.Metrics = promhttp.Handler()
	}
	rpm := 0
	if cfg.RateLimitEnabled {
		rpm = cfg.RateLimitRPM
	}
	srv, err := api.New(api.Config{
		PublicURL:      cfg.PublicURL,
		Interface:      cfg.Interface,
		RateLimitRPM:   rpm,
		TracingService: cfg.LogService,
	}, deps)
	if err != nil {
		return nil, err
	}

	mgrDeps := daemon.Deps{
		Logger:     xglog.WithComponent("server"),
		APIHandler: srv.Handler(),
	}
	if cfg.MetricsAddr != "" {
		mgrDeps.MetricsHandler = promhttp.Handler()
		mgrDeps.MetricsAddr = cfg.MetricsAddr
	}
	a.manager, err = daemon.NewManager(daemon.DefaultServerConfig(cfg.Bind), mgrDeps)
	if err != nil {
		return nil, err
	}

	a.holder = config.NewConfigHolder(cfg, loader)
	return a, nil
}

// run starts background work and serves until ctx is cancelled.
func (a *app) run(ctx context.Context) error {
	if err := a.holder.StartWatcher(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("config watcher unavailable, hot reload disabled")
	}
	updates := make(chan config.AppConfig, 1)
	a.holder.RegisterListener(updates)
	reloadCtx, stopReloads := context.WithCancel(ctx)
	reloadDone := make(chan struct{})
	go func() {
		defer close(reloadDone)
		a.applyReloads(reloadCtx, updates)
	}()

	if a.sched != nil {
		a.sched.Start()
		a.logger.Info().Str("schedule", a.cfg.RefreshCron).Msg("export scheduler started")
	}

	for _, c := range a.closers {
		a.manager.RegisterShutdownHook(c.name, c.fn)
	}
	a.closers = nil
	// Hooks run in reverse registration order: these stop first.
	a.manager.RegisterShutdownHook("config watcher", func(context.Context) error {
		a.holder.Stop()
		stopReloads()
		<-reloadDone
		return nil
	})
	if a.sched != nil {
		a.manager.RegisterShutdownHook("scheduler", a.sched.Stop)
	}
	// Server shutdown cancels request contexts; anything still live here
	// outlived the shutdown timeout.
	a.manager.RegisterShutdownHook("relay sessions", a.terminateStreams)

	err := a.manager.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) applyReloads(ctx context.Context, updates <-chan config.AppConfig) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-updates:
			a.builder.UpdateConfig(builderConfig(cfg))
			if !xglog.SetLevel(cfg.LogLevel) {
				a.logger.Warn().Str("level", cfg.LogLevel).Msg("ignoring unknown log level")
			}
		}
	}
}

func (a *app) terminateStreams(context.Context) error {
	if n := a.sessions.TerminateAll(); n > 0 {
		a.logger.Warn().Int("streams", n).Msg("terminated relays left after server shutdown")
	}
	return nil
}

func (a *app) onClose(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// closeAll releases components in reverse order when startup fails.
func (a *app) closeAll(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Warn().Err(err).Str("component", c.name).Msg("cleanup failed")
		}
	}
	a.closers = nil
}

// newExtraClient fetches the extra playlist and guide. It is never bound to
// the IPTV interface: that network usually has no route to the internet.
func newExtraClient(cfg config.AppConfig) (*http.Client, error) {
	return httpx.NewSessionClient(httpx.Options{
		Timeout: extraFetchTimeout,
		Trace:   cfg.Telemetry.Enabled,
	})
}

func builderConfig(cfg config.AppConfig) jobs.Config {
	return jobs.Config{
		RTSPProxy:     cfg.RTSPProxy,
		UDPProxy:      cfg.UDPProxy,
		ExtraPlaylist: cfg.ExtraPlaylist,
		ExtraXMLTV:    cfg.ExtraXMLTV,
		Mapping:       mapping.Parse(cfg.ChannelMapping),
	}
}
