package buffer

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Send after Close, and by Receive once a closed
// queue has been drained.
var ErrClosed = errors.New("handoff closed")

// Handoff is a bounded, blocking FIFO queue.
type Handoff[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	closed   bool

	// Stats
	totalSent     int64
	totalReceived int64
	blockedSends  int64
}

// NewHandoff creates a queue holding at most capacity items.
func NewHandoff[T any](capacity int) *Handoff[T] {
	if capacity < 1 {
		capacity = 1
	}
	h := &Handoff[T]{buf: make([]T, capacity)}
	h.notEmpty = sync.NewCond(&h.mu)
	h.notFull = sync.NewCond(&h.mu)
	return h
}

// Send enqueues item, blocking while the queue is full.
// Returns ErrClosed if the queue is or becomes closed, or ctx.Err() if the
// context ends first. The item is enqueued only when Send returns nil.
func (h *Handoff[T]) Send(ctx context.Context, item T) error {
	stop := h.wakeOnDone(ctx)
	defer stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	waited := false
	for h.count == len(h.buf) && !h.closed && ctx.Err() == nil {
		if !waited {
			h.blockedSends++
			waited = true
		}
		h.notFull.Wait()
	}

	if h.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	h.buf[h.tail] = item
	h.tail = (h.tail + 1) % len(h.buf)
	h.count++
	h.totalSent++

	h.notEmpty.Broadcast()
	return nil
}

// Receive dequeues the oldest item, blocking while the queue is empty.
// After Close, remaining items are still delivered; once drained Receive
// returns ErrClosed. Returns ctx.Err() if the context ends first.
func (h *Handoff[T]) Receive(ctx context.Context) (T, error) {
	stop := h.wakeOnDone(ctx)
	defer stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	var zero T
	for h.count == 0 && !h.closed && ctx.Err() == nil {
		h.notEmpty.Wait()
	}

	if h.count == 0 {
		if h.closed {
			return zero, ErrClosed
		}
		return zero, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	item := h.buf[h.head]
	h.buf[h.head] = zero // Clear reference for GC
	h.head = (h.head + 1) % len(h.buf)
	h.count--
	h.totalReceived++

	h.notFull.Broadcast()
	return item, nil
}

// Close marks the queue closed and wakes every waiter. Idempotent.
func (h *Handoff[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.notEmpty.Broadcast()
	h.notFull.Broadcast()
}

// Closed reports whether Close has been called.
func (h *Handoff[T]) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Len returns the number of queued items.
func (h *Handoff[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Cap returns the queue capacity.
func (h *Handoff[T]) Cap() int {
	return len(h.buf)
}

// Stats returns queue statistics.
func (h *Handoff[T]) Stats() HandoffStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HandoffStats{
		Count:         h.count,
		Capacity:      len(h.buf),
		TotalSent:     h.totalSent,
		TotalReceived: h.totalReceived,
		BlockedSends:  h.blockedSends,
		Closed:        h.closed,
	}
}

// HandoffStats contains queue statistics.
type HandoffStats struct {
	Count         int
	Capacity      int
	TotalSent     int64
	TotalReceived int64
	BlockedSends  int64 // Sends that had to wait for space
	Closed        bool
}

// wakeOnDone broadcasts to waiters when ctx ends so that blocked callers can
// observe the cancellation. The lock is taken so the wakeup cannot slip in
// between a waiter's ctx check and its Wait.
func (h *Handoff[T]) wakeOnDone(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.notEmpty.Broadcast()
		h.notFull.Broadcast()
	})
}
