// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ManuGH/iptvproxy/internal/validate"
)

// Cache backends accepted by CacheBackend.
var cacheBackends = []string{"memory", "redis", "badger", "none"}

// Validate checks cfg and returns a validate.ValidationError listing every
// problem found.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("User", cfg.User)
	v.NotEmpty("Password", cfg.Password)
	v.NotEmpty("MAC", cfg.MAC)
	v.URL("AuthURL", cfg.AuthURL, []string{"http", "https"})
	positiveDuration(v, "PortalTimeout", cfg.PortalTimeout)
	v.Range("GuideConcurrency", cfg.GuideConcurrency, 1, 64)
	v.FloatRange("GuideRPS", cfg.GuideRPS, 0, 1000)

	v.HostPort("Bind", cfg.Bind)
	if cfg.MetricsAddr != "" {
		v.HostPort("MetricsAddr", cfg.MetricsAddr)
	}
	if cfg.PublicURL != "" {
		v.URL("PublicURL", cfg.PublicURL, []string{"http", "https"})
	}
	if cfg.ExtraPlaylist != "" {
		v.URL("ExtraPlaylist", cfg.ExtraPlaylist, []string{"http", "https"})
	}
	if cfg.ExtraXMLTV != "" {
		v.URL("ExtraXMLTV", cfg.ExtraXMLTV, []string{"http", "https"})
	}

	v.Positive("RelayWindow", cfg.RelayWindow)
	positiveDuration(v, "RelayTimeout", cfg.RelayTimeout)

	v.OneOf("CacheBackend", cfg.CacheBackend, cacheBackends)
	if cfg.CacheBackend == "redis" {
		v.HostPort("RedisAddr", cfg.RedisAddr)
		v.Range("RedisDB", cfg.RedisDB, 0, 15)
	}
	if cfg.CacheTTL < 0 {
		v.AddError("CacheTTL", "must not be negative", cfg.CacheTTL)
	}

	if cfg.DataDir != "" {
		v.Directory("DataDir", cfg.DataDir, false)
	}
	if cfg.RefreshCron != "" {
		v.Custom("RefreshCron", cfg.RefreshCron, func(val any) error {
			_, err := cron.ParseStandard(val.(string))
			return err
		})
	}

	if cfg.RateLimitEnabled {
		v.Positive("RateLimitRPM", cfg.RateLimitRPM)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("LogLevel", err.Error(), cfg.LogLevel)
	}

	return v.Err()
}

func positiveDuration(v *validate.Validator, field string, d time.Duration) {
	v.Custom(field, d, func(any) error {
		if d <= 0 {
			return fmt.Errorf("duration must be positive, got %s", d)
		}
		return nil
	})
}
