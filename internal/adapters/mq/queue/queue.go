// Package queue defines the contract for handing key events from the
// listener to the aggregation consumer.
//
// The hand-off is ordered and bounded. A full queue blocks the
// listener rather than dropping events: losing keystrokes silently
// corrupts every downstream statistic, while a briefly stalled
// listener only delays them.
package queue

import (
	"context"
	"sync"

	"github.com/typepulse/typepulse/internal/domain/model"
	"github.com/typepulse/typepulse/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 8192
)

// Event represents the payload type flowing through the queue.
type Event = model.RawKeyEvent

// Queue provides blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event, blocking while the queue is full until
	// space frees up or ctx is cancelled.
	Enqueue(ctx context.Context, e Event) error

	// Dequeue returns a channel that receives events in enqueue order.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Event

	// Len returns the current number of queued events.
	Len(ctx context.Context) int

	// Close shuts down the queue. After closing, no new events can be
	// enqueued; already-queued events are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events   chan Event
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)
	return q
}

// Enqueue adds an event to the queue, blocking while it is full.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) error {
	// The read lock is held across the send so Close cannot close the
	// channel out from under a blocked enqueue.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		q.updateGauges()
		return nil
	case <-ctx.Done():
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	}
}

// Dequeue returns a channel that will receive events as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for event := range q.events {
			select {
			case out <- event:
				metrics.RecordQueueDequeue()
				q.updateGauges()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.events)
}

func (q *InMemoryQueue) updateGauges() {
	size := len(q.events)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Close shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
