package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/kafka"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    int
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail > 0 {
		p.fail--
		return errors.New("broker unavailable")
	}
	p.batches = append(p.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (p *recordingPublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestNewSearchEvent(t *testing.T) {
	ev := NewSearchEvent("word", "wolf", 0, 1500*time.Microsecond, false, "req-1")
	assert.Equal(t, EventZeroResult, ev.Type)
	assert.Equal(t, int64(1), ev.LatencyMs)
	assert.Equal(t, "req-1", ev.RequestID)

	ev = NewSearchEvent("word", "wolf", 2, 0, true, "")
	assert.Equal(t, EventSearch, ev.Type)
}

func TestCollectorBatches(t *testing.T) {
	pub := &recordingPublisher{}
	agg := NewAggregator()
	c := NewCollector(pub, agg, 2, time.Hour)
	c.Start(context.Background())

	for i := 0; i < 5; i++ {
		c.Track(NewSearchEvent("word", "wolf", 2, time.Millisecond, false, ""))
	}
	c.Close()

	assert.Equal(t, 5, pub.published())
	require.NotEmpty(t, pub.batches)
	assert.Len(t, pub.batches[0], 2)
	assert.Equal(t, "word", pub.batches[0][0].Key)
	assert.Equal(t, int64(5), agg.Stats().TotalSearches)

	c.Track(NewSearchEvent("word", "late", 1, 0, false, ""))
	assert.Equal(t, int64(5), agg.Stats().TotalSearches)
}

func TestCollectorRetriesFailedBatch(t *testing.T) {
	pub := &recordingPublisher{fail: 1}
	c := NewCollector(pub, nil, 2, time.Hour)
	c.Start(context.Background())

	for i := 0; i < 3; i++ {
		c.Track(NewSearchEvent("regex", "wh.*", 1, 0, false, ""))
	}
	c.Close()

	assert.Equal(t, 3, pub.published())
}

func TestCollectorStopsOnContext(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, nil, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Track(NewSearchEvent("title", "sea", 2, 0, false, ""))
	time.Sleep(20 * time.Millisecond)
	cancel()
	c.Close()

	assert.Equal(t, 1, pub.published())
}

func TestCollectorWithoutPublisher(t *testing.T) {
	agg := NewAggregator()
	c := NewCollector(nil, agg, 10, time.Hour)
	c.Start(context.Background())
	c.Track(NewSearchEvent("author", "london", 2, 0, true, ""))
	c.Close()

	stats := agg.Stats()
	assert.Equal(t, int64(1), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.CacheHits)
}

func TestNilCollectorTrack(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() { c.Track(SearchEvent{}) })
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	for i := 1; i <= 10; i++ {
		agg.Record(SearchEvent{Kind: "word", Query: "wolf", Results: 2, LatencyMs: int64(i)})
	}
	agg.Record(SearchEvent{Kind: "regex", Query: "zz+", Results: 0, LatencyMs: 100, CacheHit: true})
	agg.Record(SearchEvent{Kind: "title", Query: "wolf", Results: 1, LatencyMs: 1})

	stats := agg.Stats()
	assert.Equal(t, int64(12), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(11), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, map[string]int64{"word": 10, "regex": 1, "title": 1}, stats.ByKind)
	assert.Equal(t, int64(100), stats.P99LatencyMs)

	require.Len(t, stats.TopQueries, 3)
	assert.Equal(t, QueryCount{Kind: "word", Query: "wolf", Count: 10}, stats.TopQueries[0])
	assert.Equal(t, "regex", stats.TopQueries[1].Kind)
	assert.Equal(t, []QueryCount{{Kind: "regex", Query: "zz+", Count: 1}}, stats.ZeroResultQueries)
}

func TestCollectorStats(t *testing.T) {
	agg := NewAggregator()
	for _, q := range []string{"sea", "sea", "wolf", "moon"} {
		agg.Record(SearchEvent{Kind: "search", Query: q, Results: 1})
	}
	c := NewCollector(nil, agg, 10, time.Hour)

	stats, ok := c.Stats(1)
	require.True(t, ok)
	assert.Equal(t, int64(4), stats.TotalSearches)
	assert.Equal(t, []QueryCount{{Kind: "search", Query: "sea", Count: 2}}, stats.TopQueries)

	var nilCollector *Collector
	_, ok = nilCollector.Stats(1)
	assert.False(t, ok)
	_, ok = NewCollector(nil, nil, 10, time.Hour).Stats(1)
	assert.False(t, ok)
}
