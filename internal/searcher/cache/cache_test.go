package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/redis"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	fail error
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (b *memBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return nil, b.fail
	}
	v, ok := b.data[key]
	if !ok {
		return nil, pkgredis.ErrMiss
	}
	return v, nil
}

func (b *memBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.data[key] = value
	return nil
}

func (b *memBackend) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for k := range b.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
}

func newCache(b Backend, m *metrics.Metrics) *QueryCache {
	return New(b, config.RedisConfig{CacheTTL: time.Minute}, "gen-1", m)
}

func TestGetOrCompute(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := newCache(newMemBackend(), m)
	ctx := context.Background()
	calls := 0
	compute := func() ([]int, error) {
		calls++
		return []int{3, 2}, nil
	}

	ids, cached, err := c.GetOrCompute(ctx, "search", "sea wolf", compute)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, []int{3, 2}, ids)

	ids, cached, err = c.GetOrCompute(ctx, "search", "  sea   wolf ", compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, []int{3, 2}, ids)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestKeysAreScoped(t *testing.T) {
	c := newCache(newMemBackend(), nil)
	other := New(c.backend, config.RedisConfig{}, "gen-2", nil)

	assert.NotEqual(t, c.buildKey("search", "wolf"), c.buildKey("regex", "wolf"))
	assert.NotEqual(t, c.buildKey("regex", "Wolf"), c.buildKey("regex", "wolf"))
	assert.NotEqual(t, c.buildKey("search", "wolf"), other.buildKey("search", "wolf"))
}

func TestComputeErrorNotCached(t *testing.T) {
	c := newCache(newMemBackend(), nil)
	ctx := context.Background()
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(ctx, "regex", "(", func() ([]int, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	ids, cached, err := c.GetOrCompute(ctx, "regex", "(", func() ([]int, error) { return []int{1}, nil })
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, []int{1}, ids)
}

func TestBackendFailureFallsThrough(t *testing.T) {
	b := newMemBackend()
	b.fail = errors.New("connection refused")
	c := newCache(b, nil)

	for i := 0; i < 10; i++ {
		ids, cached, err := c.GetOrCompute(context.Background(), "search", "wolf", func() ([]int, error) {
			return []int{2}, nil
		})
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, []int{2}, ids)
	}
}

func TestSingleflight(t *testing.T) {
	c := newCache(newMemBackend(), nil)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), "search", "whale", func() ([]int, error) {
				calls.Add(1)
				<-release
				return []int{1, 4}, nil
			})
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvalidate(t *testing.T) {
	b := newMemBackend()
	c := newCache(b, nil)
	ctx := context.Background()
	c.Set(ctx, "search", "wolf", []int{2, 3})
	c.Set(ctx, "title", "sea", []int{2, 4})
	b.data["unrelated"] = []byte("x")

	n, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, ok := c.Get(ctx, "search", "wolf")
	assert.False(t, ok)
	assert.Contains(t, b.data, "unrelated")
}

func TestNilCacheComputes(t *testing.T) {
	var c *QueryCache
	ids, cached, err := c.GetOrCompute(context.Background(), "search", "wolf", func() ([]int, error) {
		return []int{2}, nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, []int{2}, ids)
}
