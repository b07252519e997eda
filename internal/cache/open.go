package cache

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Backends accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
	BackendNone   = "none"
)

// Options select and configure a backend.
type Options struct {
	Backend   string
	Redis     RedisConfig
	BadgerDir string
}

// Open creates the configured backend. The returned close function releases
// its resources and is never nil.
func Open(opts Options, logger zerolog.Logger) (Cache, func() error, error) {
	switch opts.Backend {
	case "", BackendMemory:
		c := NewMemoryCache(time.Minute)
		return c, c.Close, nil
	case BackendRedis:
		c, err := NewRedisCache(opts.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case BackendBadger:
		c, err := OpenBadgerCache(opts.BadgerDir, logger)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case BackendNone:
		return NewNoOpCache(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
