// Package analytics records search events. The Collector aggregates them in
// memory for the stats endpoint and publishes them to Kafka in batches.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/kafka"
)

// Publisher writes a batch of events. *kafka.Producer implements it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers events on a channel and hands them to a single loop
// that feeds the aggregator and flushes to the publisher when batchSize
// events are pending or flushInterval has elapsed. A nil publisher only
// aggregates.
type Collector struct {
	publisher     Publisher
	aggregator    *Aggregator
	eventCh       chan SearchEvent
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	done    chan struct{}
}

func NewCollector(publisher Publisher, aggregator *Aggregator, batchSize int, flushInterval time.Duration) *Collector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		publisher:     publisher,
		aggregator:    aggregator,
		eventCh:       make(chan SearchEvent, batchSize*100),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the collection loop. It stops when ctx is cancelled or
// Close is called, flushing what is pending either way.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()
		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case ev, ok := <-c.eventCh:
				if !ok {
					c.finalFlush(batch)
					return
				}
				batch = c.add(ctx, batch, ev)
			case <-ticker.C:
				batch = c.flush(ctx, batch)
			case <-ctx.Done():
				c.finalFlush(c.drain(batch))
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
		"publishing", c.publisher != nil,
	)
}

// Track enqueues an event without blocking. Events are dropped when the
// buffer is full or the collector is closed.
func (c *Collector) Track(ev SearchEvent) {
	if c == nil {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- ev:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the loop to flush.
// Stats reports the aggregated events with top queries cut to n. It returns
// false when the collector has no aggregator.
func (c *Collector) Stats(n int) (AggregatedStats, bool) {
	if c == nil || c.aggregator == nil {
		return AggregatedStats{}, false
	}
	return c.aggregator.StatsTop(n), true
}

func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	started := c.started
	close(c.eventCh)
	c.mu.Unlock()
	if started {
		<-c.done
	}
}

func (c *Collector) add(ctx context.Context, batch []kafka.Event, ev SearchEvent) []kafka.Event {
	if c.aggregator != nil {
		c.aggregator.Record(ev)
	}
	if c.publisher == nil {
		return batch
	}
	batch = append(batch, kafka.Event{Key: ev.Kind, Value: ev})
	if len(batch) >= c.batchSize {
		return c.flush(ctx, batch)
	}
	return batch
}

// drain records whatever is already buffered.
func (c *Collector) drain(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case ev, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = c.add(context.Background(), batch, ev)
		default:
			return batch
		}
	}
}

func (c *Collector) finalFlush(batch []kafka.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if rest := c.flush(ctx, batch); len(rest) > 0 {
		c.logger.Warn("analytics events lost on shutdown", "count", len(rest))
	}
}

// flush publishes batch and returns the events still pending. Failed events
// are kept for the next attempt, up to three batches.
func (c *Collector) flush(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 || c.publisher == nil {
		return batch
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("batch flush failed", "batch_size", len(batch), "error", err)
		if limit := c.batchSize * 3; len(batch) > limit {
			c.logger.Warn("buffer overflow, events dropped", "dropped", len(batch)-limit)
			batch = batch[len(batch)-limit:]
		}
		return batch
	}
	c.logger.Debug("batch flushed", "events", len(batch))
	return make([]kafka.Event, 0, c.batchSize)
}
