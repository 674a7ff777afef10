// Package queue implements the bounded FIFO that couples two pipeline stages.
//
// Architecture:
//   - Ring buffer of fixed capacity (set at construction)
//   - Blocking push (sync.Cond notFull) and blocking pop (sync.Cond notEmpty)
//   - Close marks the producer side finished; buffered items still drain
//   - Blocked callers are also released when their context is cancelled
//
// Thread-safety: all methods are safe for concurrent use. The pipeline uses
// each queue with exactly one producer and one consumer, which is what makes
// delivery order equal to push order end to end.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Push after Close, and by Pop once a closed queue
// has been drained.
var ErrClosed = errors.New("queue: closed")

// Queue is a bounded, ordered, blocking FIFO.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	buf   []T
	head  int // index of the oldest item
	count int // live items in buf

	closed bool

	// --- Operational Stats (guarded by mu) ---

	pushed        uint64
	popped        uint64
	blockedPushes uint64
	highWater     int
	closeCalls    uint64
}

// Stats is a snapshot of queue state.
type Stats struct {
	Capacity      int
	Len           int
	Pushed        uint64
	Popped        uint64
	BlockedPushes uint64 // pushes that had to wait for a free slot
	HighWater     int    // largest Len ever observed
	Closed        bool
	CloseCalls    uint64
}

// New creates a queue holding at most capacity items. Capacity below 1 is
// raised to 1.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue[T]{buf: make([]T, capacity)}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Push appends item, blocking while the queue is full.
//
// Returns:
//   - nil once the item is buffered
//   - ErrClosed if the queue is (or becomes) closed
//   - ctx.Err() if ctx is cancelled while waiting
func (q *Queue[T]) Push(ctx context.Context, item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	if q.count == len(q.buf) {
		q.blockedPushes++
		stop := context.AfterFunc(ctx, q.wake)
		defer stop()

		for q.count == len(q.buf) && !q.closed && ctx.Err() == nil {
			q.notFull.Wait()
		}
		if q.closed {
			return ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	tail := (q.head + q.count) % len(q.buf)
	q.buf[tail] = item
	q.count++
	q.pushed++
	if q.count > q.highWater {
		q.highWater = q.count
	}

	q.notEmpty.Signal()
	return nil
}

// Pop removes and returns the oldest item, blocking while the queue is empty.
//
// Returns ErrClosed when the queue is closed and drained, or ctx.Err() when
// ctx is cancelled.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 && !q.closed && ctx.Err() == nil {
		stop := context.AfterFunc(ctx, q.wake)
		defer stop()

		for q.count == 0 && !q.closed && ctx.Err() == nil {
			q.notEmpty.Wait()
		}
	}

	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if q.count == 0 {
		return zero, ErrClosed
	}

	item := q.buf[q.head]
	q.buf[q.head] = zero // drop the reference; ownership moved to the caller
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.popped++

	q.notFull.Signal()
	return item, nil
}

// Close marks the queue as finished. Pending items remain poppable; further
// pushes fail. Safe to call multiple times and from multiple goroutines.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closeCalls++
	if q.closed {
		return
	}
	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// Stats returns a consistent snapshot.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		Capacity:      len(q.buf),
		Len:           q.count,
		Pushed:        q.pushed,
		Popped:        q.popped,
		BlockedPushes: q.blockedPushes,
		HighWater:     q.highWater,
		Closed:        q.closed,
		CloseCalls:    q.closeCalls,
	}
}

// wake releases every waiter so it can re-check its context.
func (q *Queue[T]) wake() {
	q.mu.Lock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
	q.mu.Unlock()
}
