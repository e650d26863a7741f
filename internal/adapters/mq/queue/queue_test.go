package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/typepulse/typepulse/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	ev := model.RawKeyEvent{DeviceID: "event0", Code: 30, TimestampMS: 100, IsPress: true}
	if err := q.Enqueue(ctx, ev); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.Code != 30 || got.TimestampMS != 100 {
		t.Errorf("dequeued %+v, want the enqueued event", got)
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		ev := model.RawKeyEvent{DeviceID: "event0", Code: uint16(i), TimestampMS: int64(i * 100), IsPress: true}
		if err := q.Enqueue(ctx, ev); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	out := q.Dequeue(ctx)
	for i := 0; i < 10; i++ {
		got := <-out
		if got.Code != uint16(i) {
			t.Fatalf("event %d has code %d, order not preserved", i, got.Code)
		}
	}
}

func TestInMemoryQueue_BlockingEnqueue(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Enqueue(ctx, model.RawKeyEvent{Code: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// Second enqueue blocks until the consumer makes room.
	unblocked := make(chan error, 1)
	go func() {
		unblocked <- q.Enqueue(ctx, model.RawKeyEvent{Code: 2})
	}()

	select {
	case err := <-unblocked:
		t.Fatalf("enqueue on a full queue returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	out := q.Dequeue(ctx)
	first := <-out
	if first.Code != 1 {
		t.Errorf("first dequeued code = %d, want 1", first.Code)
	}

	select {
	case err := <-unblocked:
		if err != nil {
			t.Fatalf("blocked enqueue failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("enqueue still blocked after dequeue freed space")
	}
}

func TestInMemoryQueue_EnqueueCancellation(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Enqueue(ctx, model.RawKeyEvent{Code: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- q.Enqueue(cancelCtx, model.RawKeyEvent{Code: 2})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled enqueue did not return")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	if err := q.Enqueue(ctx, model.RawKeyEvent{Code: 9}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	if err := q.Enqueue(ctx, model.RawKeyEvent{Code: 10}); !errors.Is(err, ErrClosed) {
		t.Errorf("enqueue after close: err = %v, want ErrClosed", err)
	}

	// Already-queued events drain, then the channel closes.
	out := q.Dequeue(ctx)
	got, ok := <-out
	if !ok || got.Code != 9 {
		t.Fatalf("drain after close: %+v, %v", got, ok)
	}
	if _, ok := <-out; ok {
		t.Error("dequeue channel not closed after drain")
	}
}
