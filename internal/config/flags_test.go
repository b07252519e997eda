// SPDX-License-Identifier: MIT

package config

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlags_ApplyOnlySetFlags(t *testing.T) {
	fs := flag.NewFlagSet("iptvproxy", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := RegisterFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"-u", "alice",
		"--passwd", "s3cret",
		"-I", "eth1",
		"--udp-proxy",
		"--channel-mapping", "CCTV1=CCTV-1",
		"--config", "/etc/iptvproxy.yaml",
	}))

	cfg := AppConfig{Bind: "keep:1", MAC: "keep"}
	f.Apply(&cfg)

	assert.Equal(t, "alice", cfg.User)
	assert.Equal(t, "s3cret", cfg.Password)
	assert.Equal(t, "eth1", cfg.Interface)
	assert.True(t, cfg.UDPProxy)
	assert.False(t, cfg.RTSPProxy)
	assert.Equal(t, "CCTV1=CCTV-1", cfg.ChannelMapping)
	assert.Equal(t, "keep:1", cfg.Bind)
	assert.Equal(t, "keep", cfg.MAC)
	assert.Equal(t, "/etc/iptvproxy.yaml", f.ConfigPath)
	assert.False(t, f.ShowVersion)
}

func TestFlags_OverrideEnvThroughLoader(t *testing.T) {
	t.Setenv("IPTVPROXY_BIND", "127.0.0.1:1")
	fs := flag.NewFlagSet("iptvproxy", flag.ContinueOnError)
	f := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-b", "127.0.0.1:2"}))

	cfg, err := NewLoader("", "").WithOverrides(f.Apply).Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:2", cfg.Bind)
}
