package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"fibre-tracker/internal/models"
	"fibre-tracker/internal/nbn"
)

const (
	// DefaultStatusTTL bounds how long a location's status is trusted.
	DefaultStatusTTL = 7 * 24 * time.Hour
	// DefaultWarmStartMaxAge bounds how old a previous result collection may be to seed ids.
	DefaultWarmStartMaxAge = 180 * 24 * time.Hour

	locationPrefix = "loc:"
	detailPrefix   = "detail:"
)

// StatusCache memoises remote answers in two keyspaces: address identifier to location id,
// which never expires, and location id to detail record, which expires after StatusTTL.
// One StatusCache is shared by every worker.
type StatusCache struct {
	store           Store
	statusTTL       time.Duration
	warmStartMaxAge time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

type Option func(*StatusCache)

func WithStatusTTL(ttl time.Duration) Option {
	return func(c *StatusCache) { c.statusTTL = ttl }
}

func WithWarmStartMaxAge(age time.Duration) Option {
	return func(c *StatusCache) { c.warmStartMaxAge = age }
}

func NewStatusCache(store Store, opts ...Option) *StatusCache {
	c := &StatusCache{
		store:           store,
		statusTTL:       DefaultStatusTTL,
		warmStartMaxAge: DefaultWarmStartMaxAge,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LocationID returns the cached location id for an address key.
func (c *StatusCache) LocationID(ctx context.Context, key string) (string, bool, error) {
	value, err := c.get(ctx, locationPrefix+key)
	if err != nil || value == nil {
		return "", false, err
	}
	return string(value), true, nil
}

func (c *StatusCache) SetLocationID(ctx context.Context, key, locID string) error {
	return c.store.Set(ctx, locationPrefix+key, []byte(locID), 0)
}

// Detail returns the cached detail record for a location id, unless it has expired.
func (c *StatusCache) Detail(ctx context.Context, locID string) (*nbn.Detail, bool, error) {
	value, err := c.get(ctx, detailPrefix+locID)
	if err != nil || value == nil {
		return nil, false, err
	}
	var detail nbn.Detail
	if err := json.Unmarshal(value, &detail); err != nil {
		// unreadable entries are treated as misses and overwritten on the next fetch
		c.hits.Add(-1)
		c.misses.Add(1)
		return nil, false, nil
	}
	return &detail, true, nil
}

func (c *StatusCache) SetDetail(ctx context.Context, locID string, detail *nbn.Detail) error {
	value, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("cache: encode detail %s: %w", locID, err)
	}
	return c.store.Set(ctx, detailPrefix+locID, value, c.statusTTL)
}

func (c *StatusCache) get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		c.misses.Add(1)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.hits.Add(1)
	return value, nil
}

// WarmStart seeds identifier to location id pairs from a previous result collection for the
// same suburb, provided it was generated less than the warm-start bound before now. Status
// entries are never seeded. It returns the number of pairs loaded.
func (c *StatusCache) WarmStart(ctx context.Context, previous *models.FeatureCollection, now time.Time) (int, error) {
	if previous == nil {
		return 0, nil
	}
	generated, err := previous.GeneratedAt()
	if err != nil {
		return 0, fmt.Errorf("cache: warm start: %w", err)
	}
	if now.Sub(generated) >= c.warmStartMaxAge {
		return 0, nil
	}

	loaded := 0
	for _, a := range previous.Addresses() {
		if a.GnafPID == "" || a.LocationID == "" {
			continue
		}
		if err := c.SetLocationID(ctx, a.GnafPID, a.LocationID); err != nil {
			return loaded, fmt.Errorf("cache: warm start: %w", err)
		}
		loaded++
	}
	return loaded, nil
}

// Stats returns the cumulative hit and miss counts.
func (c *StatusCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *StatusCache) Close() error {
	return c.store.Close()
}
