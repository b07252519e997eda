// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/iptvproxy/internal/config"
)

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  iptvproxy config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  iptvproxy config dump [--file|-f config.yaml] [--format=yaml|json]")
}

func configFileFlag(fs *flag.FlagSet) *string {
	file := new(string)
	fs.StringVar(file, "file", "", "path to YAML configuration file")
	fs.StringVar(file, "f", "", "path to YAML configuration file (shorthand)")
	return file
}

// loadEffective resolves defaults, file and environment exactly as the
// daemon does, minus command-line overrides.
func loadEffective(file string) (config.AppConfig, error) {
	return config.NewLoader(strings.TrimSpace(file), version).Load()
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("iptvproxy config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := configFileFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadEffective(*file)
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return 1
	}

	if *file != "" {
		fmt.Fprintf(stdout, "%s is valid\n", *file)
	} else {
		fmt.Fprintln(stdout, "configuration is valid")
	}
	return 0
}

func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("iptvproxy config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := configFileFlag(fs)
	format := fs.String("format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadEffective(*file)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return 1
	}

	fileCfg := fileConfigFromAppConfig(cfg)
	redactFileConfigSecrets(&fileCfg)

	switch strings.ToLower(strings.TrimSpace(*format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", *format)
		return 2
	}
}

func fileConfigFromAppConfig(cfg config.AppConfig) config.FileConfig {
	concurrency := cfg.GuideConcurrency
	rps := cfg.GuideRPS
	rateLimit := cfg.RateLimitEnabled
	rpm := cfg.RateLimitRPM
	readyStrict := cfg.ReadyStrict
	rtsp := cfg.RTSPProxy
	udp := cfg.UDPProxy
	window := cfg.RelayWindow
	redisDB := cfg.RedisDB
	telemetry := cfg.Telemetry.Enabled
	sampling := cfg.Telemetry.SamplingRate

	return config.FileConfig{
		Portal: config.PortalFileConfig{
			User:             cfg.User,
			Password:         cfg.Password,
			MAC:              cfg.MAC,
			IMEI:             cfg.IMEI,
			Address:          cfg.Address,
			Interface:        cfg.Interface,
			AuthURL:          cfg.AuthURL,
			Timeout:          cfg.PortalTimeout.String(),
			GuideConcurrency: &concurrency,
			GuideRPS:         &rps,
		},
		Server: config.ServerFileConfig{
			Bind:             cfg.Bind,
			PublicURL:        cfg.PublicURL,
			MetricsAddr:      cfg.MetricsAddr,
			RateLimitEnabled: &rateLimit,
			RateLimitRPM:     &rpm,
			ReadyStrict:      &readyStrict,
		},
		Sources: config.SourcesFileConfig{
			RTSPProxy:      &rtsp,
			UDPProxy:       &udp,
			ExtraPlaylist:  cfg.ExtraPlaylist,
			ExtraXMLTV:     cfg.ExtraXMLTV,
			ChannelMapping: cfg.ChannelMapping,
			MappingDB:      cfg.MappingDB,
		},
		Relay: config.RelayFileConfig{
			Window:  &window,
			Timeout: cfg.RelayTimeout.String(),
		},
		Cache: config.CacheFileConfig{
			Backend:       cfg.CacheBackend,
			TTL:           cfg.CacheTTL.String(),
			RedisAddr:     cfg.RedisAddr,
			RedisPassword: cfg.RedisPassword,
			RedisDB:       &redisDB,
			BadgerDir:     cfg.BadgerDir,
		},
		Export: config.ExportFileConfig{
			DataDir:     cfg.DataDir,
			RefreshCron: cfg.RefreshCron,
		},
		Telemetry: config.TelemetryFileConfig{
			Enabled:      &telemetry,
			Exporter:     cfg.Telemetry.Exporter,
			Endpoint:     cfg.Telemetry.Endpoint,
			SamplingRate: &sampling,
		},
		LogLevel: cfg.LogLevel,
	}
}

func redactFileConfigSecrets(cfg *config.FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.Portal.Password != "" {
		cfg.Portal.Password = "***"
	}
	if cfg.Cache.RedisPassword != "" {
		cfg.Cache.RedisPassword = "***"
	}
}
