// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/iptvproxy/internal/validate"
)

func validConfig(t *testing.T) AppConfig {
	t.Helper()
	cfg := Defaults()
	cfg.User = "alice"
	cfg.Password = "secret"
	cfg.MAC = "00:11:22:33:44:55"
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, Validate(validConfig(t)))
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"missing user", func(c *AppConfig) { c.User = "" }, "User"},
		{"bad bind", func(c *AppConfig) { c.Bind = "7878" }, "Bind"},
		{"bad backend", func(c *AppConfig) { c.CacheBackend = "memcached" }, "CacheBackend"},
		{"bad cron", func(c *AppConfig) { c.RefreshCron = "every tuesday" }, "RefreshCron"},
		{"bad log level", func(c *AppConfig) { c.LogLevel = "loud" }, "LogLevel"},
		{"zero relay timeout", func(c *AppConfig) { c.RelayTimeout = 0 }, "RelayTimeout"},
		{"guide concurrency", func(c *AppConfig) { c.GuideConcurrency = 0 }, "GuideConcurrency"},
		{"public url scheme", func(c *AppConfig) { c.PublicURL = "ftp://proxy" }, "PublicURL"},
		{"telemetry exporter", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.Exporter = "zipkin"
		}, "Telemetry.Exporter"},
		{"redis addr", func(c *AppConfig) {
			c.CacheBackend = "redis"
			c.RedisAddr = "redis"
		}, "RedisAddr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)

			var verr validate.ValidationError
			require.True(t, errors.As(err, &verr))
			fields := make([]string, 0, len(verr.Errors()))
			for _, e := range verr.Errors() {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}
