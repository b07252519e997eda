// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/iptvproxy/internal/portal"
)

// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
var ErrUnknownConfigField = errors.New("unknown config field")

// Loader handles configuration loading with precedence
// flags > environment > file > defaults.
type Loader struct {
	configPath      string
	version         string
	overrides       func(*AppConfig)
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// WithOverrides registers a final pass applied after the environment, used
// for command-line flags.
func (l *Loader) WithOverrides(fn func(*AppConfig)) *Loader {
	l.overrides = fn
	return l
}

// ConfigPath returns the YAML file the loader reads, if any.
func (l *Loader) ConfigPath() string {
	return l.configPath
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load resolves the configuration. It does not validate; call Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if l.overrides != nil {
		l.overrides(&cfg)
	}

	if cfg.DataDir != "" {
		if abs, err := filepath.Abs(cfg.DataDir); err == nil {
			cfg.DataDir = abs
		}
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	cfg.Version = l.version
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		AuthURL:          portal.DefaultAuthURL,
		PortalTimeout:    5 * time.Second,
		GuideConcurrency: 8,
		Bind:             "0.0.0.0:7878",
		RelayWindow:      256,
		RelayTimeout:     10 * time.Second,
		CacheBackend:     "memory",
		CacheTTL:         24 * time.Hour,
		RedisAddr:        "localhost:6379",
		DataDir:          "data",
		RefreshCron:      "@every 1h",
		RateLimitEnabled: true,
		RateLimitRPM:     120,
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		LogLevel:   "info",
		LogService: "iptvproxy",
	}
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parseFileConfig(data)
}

func parseFileConfig(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.User, f.Portal.User)
	setString(&cfg.Password, f.Portal.Password)
	setString(&cfg.MAC, f.Portal.MAC)
	setString(&cfg.IMEI, f.Portal.IMEI)
	setString(&cfg.Address, f.Portal.Address)
	setString(&cfg.Interface, f.Portal.Interface)
	setString(&cfg.AuthURL, f.Portal.AuthURL)
	setPtr(&cfg.GuideConcurrency, f.Portal.GuideConcurrency)
	setPtr(&cfg.GuideRPS, f.Portal.GuideRPS)

	setString(&cfg.Bind, f.Server.Bind)
	setString(&cfg.PublicURL, f.Server.PublicURL)
	setString(&cfg.MetricsAddr, f.Server.MetricsAddr)
	setPtr(&cfg.RateLimitEnabled, f.Server.RateLimitEnabled)
	setPtr(&cfg.RateLimitRPM, f.Server.RateLimitRPM)
	setPtr(&cfg.ReadyStrict, f.Server.ReadyStrict)

	setPtr(&cfg.RTSPProxy, f.Sources.RTSPProxy)
	setPtr(&cfg.UDPProxy, f.Sources.UDPProxy)
	setString(&cfg.ExtraPlaylist, f.Sources.ExtraPlaylist)
	setString(&cfg.ExtraXMLTV, f.Sources.ExtraXMLTV)
	setString(&cfg.ChannelMapping, f.Sources.ChannelMapping)
	setString(&cfg.MappingDB, f.Sources.MappingDB)

	setPtr(&cfg.RelayWindow, f.Relay.Window)

	setString(&cfg.CacheBackend, f.Cache.Backend)
	setString(&cfg.RedisAddr, f.Cache.RedisAddr)
	setString(&cfg.RedisPassword, f.Cache.RedisPassword)
	setPtr(&cfg.RedisDB, f.Cache.RedisDB)
	setString(&cfg.BadgerDir, f.Cache.BadgerDir)

	setString(&cfg.DataDir, f.Export.DataDir)
	setString(&cfg.RefreshCron, f.Export.RefreshCron)

	setPtr(&cfg.Telemetry.Enabled, f.Telemetry.Enabled)
	setString(&cfg.Telemetry.Exporter, f.Telemetry.Exporter)
	setString(&cfg.Telemetry.Endpoint, f.Telemetry.Endpoint)
	setPtr(&cfg.Telemetry.SamplingRate, f.Telemetry.SamplingRate)

	setString(&cfg.LogLevel, f.LogLevel)

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"portal.timeout", f.Portal.Timeout, &cfg.PortalTimeout},
		{"relay.timeout", f.Relay.Timeout, &cfg.RelayTimeout},
		{"cache.ttl", f.Cache.TTL, &cfg.CacheTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.User = l.envString(EnvPrefix+"USER", cfg.User)
	cfg.Password = l.envString(EnvPrefix+"PASSWD", cfg.Password)
	cfg.MAC = l.envString(EnvPrefix+"MAC", cfg.MAC)
	cfg.IMEI = l.envString(EnvPrefix+"IMEI", cfg.IMEI)
	cfg.Address = l.envString(EnvPrefix+"ADDRESS", cfg.Address)
	cfg.Interface = l.envString(EnvPrefix+"INTERFACE", cfg.Interface)
	cfg.AuthURL = l.envString(EnvPrefix+"AUTH_URL", cfg.AuthURL)
	cfg.PortalTimeout = l.envDuration(EnvPrefix+"PORTAL_TIMEOUT", cfg.PortalTimeout)
	cfg.GuideConcurrency = l.envInt(EnvPrefix+"GUIDE_CONCURRENCY", cfg.GuideConcurrency)
	cfg.GuideRPS = l.envFloat(EnvPrefix+"GUIDE_RPS", cfg.GuideRPS)

	cfg.Bind = l.envString(EnvPrefix+"BIND", cfg.Bind)
	cfg.PublicURL = l.envString(EnvPrefix+"PUBLIC_URL", cfg.PublicURL)
	cfg.RTSPProxy = l.envBool(EnvPrefix+"RTSP_PROXY", cfg.RTSPProxy)
	cfg.UDPProxy = l.envBool(EnvPrefix+"UDP_PROXY", cfg.UDPProxy)
	cfg.ExtraPlaylist = l.envString(EnvPrefix+"EXTRA_PLAYLIST", cfg.ExtraPlaylist)
	cfg.ExtraXMLTV = l.envString(EnvPrefix+"EXTRA_XMLTV", cfg.ExtraXMLTV)
	cfg.ChannelMapping = l.envString(EnvPrefix+"CHANNEL_MAPPING", cfg.ChannelMapping)
	cfg.MappingDB = l.envString(EnvPrefix+"MAPPING_DB", cfg.MappingDB)

	cfg.RelayWindow = l.envInt(EnvPrefix+"RELAY_WINDOW", cfg.RelayWindow)
	cfg.RelayTimeout = l.envDuration(EnvPrefix+"RELAY_TIMEOUT", cfg.RelayTimeout)

	cfg.CacheBackend = l.envString(EnvPrefix+"CACHE_BACKEND", cfg.CacheBackend)
	cfg.CacheTTL = l.envDuration(EnvPrefix+"CACHE_TTL", cfg.CacheTTL)
	cfg.RedisAddr = l.envString(EnvPrefix+"REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = l.envString(EnvPrefix+"REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = l.envInt(EnvPrefix+"REDIS_DB", cfg.RedisDB)
	cfg.BadgerDir = l.envString(EnvPrefix+"BADGER_DIR", cfg.BadgerDir)

	cfg.DataDir = l.envString(EnvPrefix+"DATA_DIR", cfg.DataDir)
	cfg.RefreshCron = l.envString(EnvPrefix+"REFRESH_CRON", cfg.RefreshCron)
	cfg.MetricsAddr = l.envString(EnvPrefix+"METRICS_ADDR", cfg.MetricsAddr)

	cfg.RateLimitEnabled = l.envBool(EnvPrefix+"RATE_LIMIT_ENABLED", cfg.RateLimitEnabled)
	cfg.RateLimitRPM = l.envInt(EnvPrefix+"RATE_LIMIT_RPM", cfg.RateLimitRPM)
	cfg.ReadyStrict = l.envBool(EnvPrefix+"READY_STRICT", cfg.ReadyStrict)

	cfg.Telemetry.Enabled = l.envBool(EnvPrefix+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvPrefix+"TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvPrefix+"TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvPrefix+"TELEMETRY_SAMPLING", cfg.Telemetry.SamplingRate)

	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString("LOG_SERVICE", cfg.LogService)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
