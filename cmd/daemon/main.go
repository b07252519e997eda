// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command daemon runs the IPTV proxy: it logs into the operator portal and
// serves the channel playlist, the programme guide and relayed streams over
// plain HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/iptvproxy/internal/config"
	xglog "github.com/ManuGH/iptvproxy/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("iptvproxy", flag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if flags.ShowVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		return 0
	}

	// The level is corrected once the configuration is known; the service
	// name comes from LOG_SERVICE.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Version: version,
	})
	logger := xglog.WithComponent("daemon")

	loader := config.NewLoader(flags.ConfigPath, version).WithOverrides(flags.Apply)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", flags.ConfigPath).
			Msg("failed to load configuration")
		return 1
	}
	if err := config.Validate(cfg); err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.invalid").
			Msg("configuration is invalid")
		return 1
	}

	if !xglog.SetLevel(cfg.LogLevel) {
		logger.Warn().Str("level", cfg.LogLevel).Msg("ignoring unknown log level")
	}

	source := "flags+env+defaults"
	if flags.ConfigPath != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("bind", cfg.Bind).
		Str("public_url", maskURL(cfg.PublicURL)).
		Str("cache", cfg.CacheBackend).
		Bool("rtsp_proxy", cfg.RTSPProxy).
		Bool("udp_proxy", cfg.UDPProxy).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, loader)
	if err != nil {
		logger.Error().Err(err).Str("event", "startup.failed").Msg("failed to start")
		return 1
	}

	if err := app.run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "daemon.failed").Msg("daemon stopped with error")
		return 1
	}
	logger.Info().Str("event", "daemon.stopped").Msg("daemon stopped")
	return 0
}
