package engine

import (
	"context"
	"sync"

	"github.com/roach88/manifest/internal/store"
)

// EventSink observes outbox rows produced by successful commands. The
// sink is for visibility (tests, stream bridges); durability is the
// store's transactional outbox, not the sink. A sink error surfaces to
// the caller after the write has already committed.
type EventSink interface {
	Record(ctx context.Context, events []store.OutboxEvent) error
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(ctx context.Context, events []store.OutboxEvent) error

// Record implements EventSink.
func (f SinkFunc) Record(ctx context.Context, events []store.OutboxEvent) error {
	return f(ctx, events)
}

// Collector is an in-memory EventSink scoped to the engine that owns
// it. Nothing here is process-global; two engines with two collectors
// never see each other's events.
type Collector struct {
	mu     sync.Mutex
	events []store.OutboxEvent
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record implements EventSink.
func (c *Collector) Record(_ context.Context, events []store.OutboxEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
	return nil
}

// Events returns a snapshot of everything recorded so far, in record
// order.
func (c *Collector) Events() []store.OutboxEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]store.OutboxEvent, len(c.events))
	copy(out, c.events)
	return out
}

// Reset discards all recorded events.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
