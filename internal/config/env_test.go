// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("IPTVPROXY_TEST_INT", "42")
	t.Setenv("IPTVPROXY_TEST_BAD_INT", "many")
	t.Setenv("IPTVPROXY_TEST_DUR", "90s")
	t.Setenv("IPTVPROXY_TEST_BOOL", "YES")
	t.Setenv("IPTVPROXY_TEST_BAD_BOOL", "maybe")
	t.Setenv("IPTVPROXY_TEST_FLOAT", "2.5")
	t.Setenv("IPTVPROXY_TEST_EMPTY", "")
	t.Setenv("IPTVPROXY_TEST_PASSWD", "secret")

	assert.Equal(t, 42, ParseInt("IPTVPROXY_TEST_INT", 1))
	assert.Equal(t, 1, ParseInt("IPTVPROXY_TEST_BAD_INT", 1))
	assert.Equal(t, 7, ParseInt("IPTVPROXY_TEST_UNSET", 7))
	assert.Equal(t, 90*time.Second, ParseDuration("IPTVPROXY_TEST_DUR", time.Second))
	assert.True(t, ParseBool("IPTVPROXY_TEST_BOOL", false))
	assert.True(t, ParseBool("IPTVPROXY_TEST_BAD_BOOL", true))
	assert.InDelta(t, 2.5, ParseFloat("IPTVPROXY_TEST_FLOAT", 0), 0.0001)
	assert.Equal(t, "dflt", ParseString("IPTVPROXY_TEST_EMPTY", "dflt"))
	assert.Equal(t, "secret", ParseString("IPTVPROXY_TEST_PASSWD", ""))
}

func TestIsSensitive(t *testing.T) {
	assert.True(t, isSensitive("IPTVPROXY_PASSWD"))
	assert.True(t, isSensitive("IPTVPROXY_REDIS_PASSWORD"))
	assert.False(t, isSensitive("IPTVPROXY_USER"))
}
