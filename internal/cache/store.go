package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned by a Store when a key is absent or expired.
var ErrCacheMiss = errors.New("cache: miss")

// Store is a persistent key-value store safe for concurrent use. A ttl of zero means the
// entry never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the Store selected by driver: "sqlite" uses path, "redis" uses redisAddr.
func Open(ctx context.Context, driver, path, redisAddr string) (Store, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(path)
	case "redis":
		return OpenRedis(ctx, redisAddr)
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", driver)
	}
}
