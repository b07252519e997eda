// SPDX-License-Identifier: MIT
package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Stop()

	c.Set("playlist", []byte("#EXTM3U"), time.Minute)
	v, ok := c.Get("playlist")
	require.True(t, ok)
	assert.Equal(t, []byte("#EXTM3U"), v)

	v[0] = 'X'
	again, _ := c.Get("playlist")
	assert.Equal(t, []byte("#EXTM3U"), again, "returned slices must not alias the cache")

	_, ok = c.Get("missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Stop()
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set("short", []byte("a"), time.Second)
	c.Set("forever", []byte("b"), 0)

	now = now.Add(2 * time.Second)
	_, ok := c.Get("short")
	assert.False(t, ok)
	_, ok = c.Get("forever")
	assert.True(t, ok)

	assert.Equal(t, 1, c.deleteExpired())
	assert.Equal(t, int64(1), c.Stats().Evictions)
	assert.Equal(t, 1, c.Stats().CurrentSize)
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Stop()

	c.Set("a", []byte("1"), 0)
	c.Set("b", []byte("2"), 0)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Stats().CurrentSize)
}

func TestMemoryCache_JanitorStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewMemoryCache(5 * time.Millisecond)
	c.Set("x", []byte("1"), time.Millisecond)
	assert.Eventually(t, func() bool { return c.Stats().CurrentSize == 0 }, time.Second, 5*time.Millisecond)
	c.Stop()
	c.Stop()
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("k", []byte{byte(j)}, time.Minute)
				c.Get("k")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(800), c.Stats().Sets)
}

func TestNoOpCache(t *testing.T) {
	c := NewNoOpCache()
	c.Set("a", []byte("1"), 0)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, CacheStats{}, c.Stats())
}
