// Package cache memoises query results in Redis. Concurrent identical
// queries are collapsed with singleflight, and Redis failures trip a circuit
// breaker so queries keep being answered from the snapshot.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/resilience"
)

const keyPrefix = "booksearch:"

// Backend is the subset of the Redis client the cache needs. Get returns
// pkgredis.ErrMiss for absent keys.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// QueryCache caches id lists per query kind. A nil *QueryCache computes
// every query.
type QueryCache struct {
	backend    Backend
	ttl        time.Duration
	generation string
	breaker    *resilience.Breaker
	metrics    *metrics.Metrics
	group      singleflight.Group
	logger     *slog.Logger
	hits       atomic.Int64
	misses     atomic.Int64
}

// New creates a cache whose keys are scoped to generation, typically the
// build time of the snapshot, so results of an older index are never
// served.
func New(backend Backend, cfg config.RedisConfig, generation string, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		backend:    backend,
		ttl:        cfg.CacheTTL,
		generation: generation,
		breaker:    resilience.NewBreaker("query-cache", 5, 30*time.Second),
		metrics:    m,
		logger:     slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached ids of (kind, query).
func (c *QueryCache) Get(ctx context.Context, kind, query string) ([]int, bool) {
	key := c.buildKey(kind, query)
	var data []byte
	err := c.breaker.Do(func() error {
		var err error
		data, err = c.backend.Get(ctx, key)
		if errors.Is(err, pkgredis.ErrMiss) {
			return nil
		}
		return err
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	if data == nil {
		c.miss()
		return nil, false
	}
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "kind", kind, "query", query, "key", key)
	return ids, true
}

func (c *QueryCache) Set(ctx context.Context, kind, query string, ids []int) {
	key := c.buildKey(kind, query)
	data, err := json.Marshal(ids)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result of (kind, query) or computes and
// stores it. cached reports whether the value came from Redis.
func (c *QueryCache) GetOrCompute(ctx context.Context, kind, query string, compute func() ([]int, error)) (ids []int, cached bool, err error) {
	if c == nil {
		ids, err = compute()
		return ids, false, err
	}
	if ids, ok := c.Get(ctx, kind, query); ok {
		return ids, true, nil
	}
	key := c.buildKey(kind, query)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		ids, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, kind, query, ids)
		return ids, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]int), false, nil
}

// Invalidate deletes every cached query of every generation.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// buildKey hashes the query with its kind and generation. Whitespace is
// collapsed but case is kept, since regex patterns are case sensitive.
func (c *QueryCache) buildKey(kind, query string) string {
	raw := strings.Join([]string{c.generation, kind, strings.Join(strings.Fields(query), " ")}, "\x00")
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, kind, hash[:16])
}
