// Package dedupe defines the interface for burst idempotency tracking.
//
// AppendBurst must be called at most once per finalized burst; the
// idempotency key is the burst's unique start time. The tracker is the
// in-memory half of that guarantee, ahead of the persistence layer's
// unique constraint.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker records seen burst start times to ensure at-most-once writes.
type Tracker interface {
	// SeenAndRecord atomically checks if startTimeMS was seen and records
	// it if not. Returns true if it was already seen.
	SeenAndRecord(ctx context.Context, startTimeMS int64) bool

	// Unrecord removes a start time so a failed write may be retried.
	Unrecord(ctx context.Context, startTimeMS int64)

	Size() int64
}

const defaultMaxSize = 10000

// inMemoryTracker implements Tracker with a bounded FIFO set. Burst
// start times arrive in increasing order, so evicting the oldest entry
// never re-admits a start time that could still be written.
type inMemoryTracker struct {
	mu      sync.Mutex
	seen    map[int64]struct{}
	order   []int64
	maxSize int
	size    atomic.Int64
}

// Option applies a configuration option to the tracker.
type Option func(*inMemoryTracker)

// WithMaxSize bounds the number of retained start times. Values <= 0
// keep the default.
func WithMaxSize(maxSize int) Option {
	return func(t *inMemoryTracker) {
		if maxSize > 0 {
			t.maxSize = maxSize
		}
	}
}

// NewInMemoryTracker creates a bounded in-memory tracker.
func NewInMemoryTracker(opts ...Option) Tracker {
	t := &inMemoryTracker{
		seen:    make(map[int64]struct{}),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *inMemoryTracker) SeenAndRecord(ctx context.Context, startTimeMS int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[startTimeMS]; ok {
		return true
	}

	if len(t.seen) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.seen, oldest)
		t.size.Add(-1)
	}

	t.seen[startTimeMS] = struct{}{}
	t.order = append(t.order, startTimeMS)
	t.size.Add(1)
	return false
}

func (t *inMemoryTracker) Unrecord(ctx context.Context, startTimeMS int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[startTimeMS]; !ok {
		return
	}
	delete(t.seen, startTimeMS)
	for i, v := range t.order {
		if v == startTimeMS {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.size.Add(-1)
}

func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
