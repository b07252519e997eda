// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the proxy configuration from defaults, an optional
// YAML file, IPTVPROXY_* environment variables and command-line flags.
package config

import "time"

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	// Subscriber line
	User      string
	Password  string
	MAC       string
	IMEI      string
	Address   string
	Interface string
	AuthURL   string

	PortalTimeout    time.Duration
	GuideConcurrency int
	GuideRPS         float64

	// Public surface
	Bind      string
	PublicURL string
	RTSPProxy bool
	UDPProxy  bool

	ExtraPlaylist  string
	ExtraXMLTV     string
	ChannelMapping string
	MappingDB      string

	RelayWindow  int
	RelayTimeout time.Duration

	CacheBackend  string
	CacheTTL      time.Duration // logo cache lifetime
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BadgerDir     string

	DataDir     string
	RefreshCron string
	MetricsAddr string

	RateLimitEnabled bool
	RateLimitRPM     int
	ReadyStrict      bool

	Telemetry TelemetryConfig

	LogLevel   string
	LogService string
	Version    string
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string // "grpc" or "http"
	Endpoint     string
	SamplingRate float64
}

// FileConfig is the on-disk YAML shape. Pointer fields distinguish an
// explicit false/zero from an absent key.
type FileConfig struct {
	Portal    PortalFileConfig    `yaml:"portal"`
	Server    ServerFileConfig    `yaml:"server"`
	Sources   SourcesFileConfig   `yaml:"sources"`
	Relay     RelayFileConfig     `yaml:"relay"`
	Cache     CacheFileConfig     `yaml:"cache"`
	Export    ExportFileConfig    `yaml:"export"`
	Telemetry TelemetryFileConfig `yaml:"telemetry"`
	LogLevel  string              `yaml:"logLevel"`
}

type PortalFileConfig struct {
	User             string   `yaml:"user"`
	Password         string   `yaml:"password"`
	MAC              string   `yaml:"mac"`
	IMEI             string   `yaml:"imei"`
	Address          string   `yaml:"address"`
	Interface        string   `yaml:"interface"`
	AuthURL          string   `yaml:"authUrl"`
	Timeout          string   `yaml:"timeout"`
	GuideConcurrency *int     `yaml:"guideConcurrency"`
	GuideRPS         *float64 `yaml:"guideRps"`
}

type ServerFileConfig struct {
	Bind             string `yaml:"bind"`
	PublicURL        string `yaml:"publicUrl"`
	MetricsAddr      string `yaml:"metricsAddr"`
	RateLimitEnabled *bool  `yaml:"rateLimitEnabled"`
	RateLimitRPM     *int   `yaml:"rateLimitRpm"`
	ReadyStrict      *bool  `yaml:"readyStrict"`
}

type SourcesFileConfig struct {
	RTSPProxy      *bool  `yaml:"rtspProxy"`
	UDPProxy       *bool  `yaml:"udpProxy"`
	ExtraPlaylist  string `yaml:"extraPlaylist"`
	ExtraXMLTV     string `yaml:"extraXmltv"`
	ChannelMapping string `yaml:"channelMapping"`
	MappingDB      string `yaml:"mappingDb"`
}

type RelayFileConfig struct {
	Window  *int   `yaml:"window"`
	Timeout string `yaml:"timeout"`
}

type CacheFileConfig struct {
	Backend       string `yaml:"backend"`
	TTL           string `yaml:"ttl"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       *int   `yaml:"redisDb"`
	BadgerDir     string `yaml:"badgerDir"`
}

type ExportFileConfig struct {
	DataDir     string `yaml:"dataDir"`
	RefreshCron string `yaml:"refreshCron"`
}

type TelemetryFileConfig struct {
	Enabled      *bool    `yaml:"enabled"`
	Exporter     string   `yaml:"exporter"`
	Endpoint     string   `yaml:"endpoint"`
	SamplingRate *float64 `yaml:"samplingRate"`
}
