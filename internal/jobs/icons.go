package jobs

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/iptvproxy/internal/cache"
)

// IconTTL is the default time a downloaded logo is served from the cache.
const IconTTL = 24 * time.Hour

// Icons serves channel logos through the cache.
type Icons struct {
	src   IconSource
	cache cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewIcons creates an icon cache in front of src. A non-positive ttl
// selects IconTTL.
func NewIcons(src IconSource, c cache.Cache, ttl time.Duration) *Icons {
	if ttl <= 0 {
		ttl = IconTTL
	}
	return &Icons{src: src, cache: c, ttl: ttl}
}

// Get returns the PNG logo of channel id.
func (i *Icons) Get(ctx context.Context, id uint64) ([]byte, error) {
	key := "logo:" + strconv.FormatUint(id, 10)
	if b, ok := i.cache.Get(key); ok {
		return b, nil
	}
	v, err, _ := i.group.Do(key, func() (any, error) {
		b, err := i.src.ChannelIcon(ctx, id)
		if err != nil {
			return nil, err
		}
		i.cache.Set(key, b, i.ttl)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
