// Package cache implements the read-through cache in front of the spaceship
// store.
//
// Entries are JSON snapshots stored under a generation number. InvalidateAll
// bumps the generation, which drops every entry at once, and a load only
// stores its result if the generation it started under is still current. A
// read that begins after an invalidation returns can therefore never see a
// value loaded before it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/fixora/spaceships/internal/ports"
)

// ErrStaleGeneration is returned by Backend.Set when the generation moved on
// while the value was being loaded
var ErrStaleGeneration = errors.New("cache generation changed")

// Backend stores encoded entries per generation
type Backend interface {
	// Generation returns the current generation
	Generation(ctx context.Context) (uint64, error)

	// Get returns the entry for key under gen, ok is false on a miss
	Get(ctx context.Context, gen uint64, key string) (value []byte, ok bool, err error)

	// Set stores the entry only if gen is still current, ErrStaleGeneration
	// otherwise
	Set(ctx context.Context, gen uint64, key string, value []byte) error

	// Invalidate moves to a new generation, dropping every entry
	Invalidate(ctx context.Context) (uint64, error)
}

// Cache is the read-through cache used by the spaceship use case
type Cache struct {
	backend Backend
	group   singleflight.Group
	// dirty is set when an invalidation failed; the cache is bypassed until
	// one succeeds.
	dirty  atomic.Bool
	logger *logrus.Entry
}

var _ ports.Cache = (*Cache)(nil)

// New creates a cache over backend. A nil backend disables caching.
func New(backend Backend, logger logrus.FieldLogger) *Cache {
	return &Cache{
		backend: backend,
		logger:  logger.WithField("component", "cache"),
	}
}

// NewDisabled creates a cache that always calls the loader
func NewDisabled(logger logrus.FieldLogger) *Cache {
	return New(nil, logger)
}

// Enabled reports whether reads are served from a backend
func (c *Cache) Enabled() bool {
	return c.backend != nil && !c.dirty.Load()
}

// ReadThrough decodes the entry for key into dst, loading and storing it on a
// miss. Backend failures degrade to a direct load.
func (c *Cache) ReadThrough(ctx context.Context, key string, dst any, load ports.Loader) error {
	if !c.Enabled() {
		return c.loadDirect(ctx, dst, load)
	}

	log := c.logger.WithField("key", key).WithContext(ctx)

	gen, err := c.backend.Generation(ctx)
	if err != nil {
		log.WithError(err).Warn("Cache generation unavailable, reading from store")
		return c.loadDirect(ctx, dst, load)
	}

	data, ok, err := c.backend.Get(ctx, gen, key)
	switch {
	case err != nil:
		log.WithError(err).Warn("Cache read failed, reading from store")
		return c.loadDirect(ctx, dst, load)
	case ok:
		if err := json.Unmarshal(data, dst); err != nil {
			log.WithError(err).Warn("Cache entry could not be decoded, reloading")
			break
		}
		log.Debug("Cache hit")
		return nil
	}

	// The shared load outlives any single caller, so it runs on a context
	// that keeps the first caller's values but not its cancellation.
	loadCtx := context.WithoutCancel(ctx)
	flightKey := fmt.Sprintf("%d:%s", gen, key)

	ch := c.group.DoChan(flightKey, func() (any, error) {
		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cache entry: %w", err)
		}

		if err := c.backend.Set(loadCtx, gen, key, encoded); err != nil {
			if errors.Is(err, ErrStaleGeneration) {
				log.Debug("Cache invalidated during load, result not stored")
			} else {
				log.WithError(err).Warn("Cache write failed")
			}
		}

		return encoded, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), dst)
	}
}

// InvalidateAll drops every entry. On failure the cache stays bypassed until
// a later invalidation succeeds.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	if c.backend == nil {
		return nil
	}

	gen, err := c.backend.Invalidate(ctx)
	if err != nil {
		c.dirty.Store(true)
		c.logger.WithContext(ctx).WithError(err).Warn("Cache invalidation failed, bypassing cache until next successful invalidation")
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	if c.dirty.Swap(false) {
		c.logger.WithContext(ctx).Info("Cache invalidation recovered, cache re-enabled")
	}
	c.logger.WithContext(ctx).WithField("generation", gen).Debug("Cache invalidated")
	return nil
}

// loadDirect calls load and round-trips the result through JSON so dst never
// shares memory with the loader's value
func (c *Cache) loadDirect(ctx context.Context, dst any, load ports.Loader) error {
	value, err := load(ctx)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	return json.Unmarshal(encoded, dst)
}
