package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/iptvproxy/internal/cache"
	"github.com/ManuGH/iptvproxy/internal/portal"
)

func TestIcons_CachesSuccess(t *testing.T) {
	c := cache.NewMemoryCache(0)
	defer c.Stop()
	src := &fakeIcons{}
	icons := NewIcons(src, c, 0)

	for i := 0; i < 3; i++ {
		b, err := icons.Get(context.Background(), 101)
		require.NoError(t, err)
		assert.Equal(t, portal.MockPNG(), b)
	}
	assert.Equal(t, 1, src.calls)
}

func TestIcons_DoesNotCacheFailures(t *testing.T) {
	c := cache.NewMemoryCache(0)
	defer c.Stop()
	src := &fakeIcons{err: portal.ErrNotFound}
	icons := NewIcons(src, c, 0)

	_, err := icons.Get(context.Background(), 7)
	assert.ErrorIs(t, err, portal.ErrNotFound)
	_, err = icons.Get(context.Background(), 7)
	assert.ErrorIs(t, err, portal.ErrNotFound)
	assert.Equal(t, 2, src.calls)
}
