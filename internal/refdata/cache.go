// Package refdata provides TTL-governed caches that sit in front of the
// bulk-refresh reference providers (country metadata, emergency numbers,
// currency rates). All three share one policy: serve the persisted entry
// while it is inside its freshness horizon, refresh the whole dataset when
// it is not, fall back to the stale entry if the refresh fails (fail-open),
// and report not-found only when no entry has ever existed (fail-closed).
package refdata

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tripwatch/travel-safety-api/internal/logger"
)

// NaturalKey identifies a reference entry by real-world identifiers rather
// than a surrogate ID. Code is the ISO code and wins over Name when present.
type NaturalKey struct {
	Name string
	Code string
}

// lookupFunc reads the persisted entry for a key, also reporting the
// timestamp its freshness is judged by. A miss is (nil, zero, nil).
type lookupFunc[K, T any] func(ctx context.Context, key K) (*T, time.Time, error)

// refreshFunc repopulates the entire persisted dataset from the provider.
type refreshFunc func(ctx context.Context) error

// cache is the shared refresh-on-stale, fail-open read path.
type cache[K, T any] struct {
	name    string
	horizon time.Duration
	lookup  lookupFunc[K, T]
	refresh refreshFunc
	now     func() time.Time
	log     *zap.SugaredLogger
}

func newCache[K, T any](name string, horizon time.Duration, lookup lookupFunc[K, T], refresh refreshFunc) *cache[K, T] {
	return &cache[K, T]{
		name:    name,
		horizon: horizon,
		lookup:  lookup,
		refresh: refresh,
		now:     time.Now,
		log:     logger.GetLogger("refdata." + name),
	}
}

// get implements the read path. Returns (nil, nil) when the key is unknown
// and the refresh failed or still does not know it.
func (c *cache[K, T]) get(ctx context.Context, key K) (*T, error) {
	existing, updatedAt, err := c.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil && c.now().Sub(updatedAt) < c.horizon {
		return existing, nil
	}

	if err := c.refresh(ctx); err != nil {
		if existing != nil {
			c.log.Warnw("refresh failed, serving stale entry", "error", err)
			return existing, nil
		}
		c.log.Warnw("refresh failed with no prior entry", "error", err)
		return nil, nil
	}

	fresh, _, err := c.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		// Refresh succeeded but the dataset does not carry this key.
		return existing, nil
	}
	return fresh, nil
}
