// Package deferredrelease implements the deferred release queue: objects
// queued for destruction are kept alive until a GPU fence value proves the
// frame that last touched them has completed, then drained in FIFO order
// by the frame scheduler. There is no reference counting — ownership of
// "when is this safe to destroy" belongs entirely to the fence value
// recorded at Push time.
package deferredrelease

import "sync"

// entry pairs a queued value with the fence value that must be reached
// before it is safe to destroy.
type entry[T any] struct {
	value T
	fence uint64
}

// Queue is a mutex-protected FIFO of fence-gated pending releases. Push is
// called from any goroutine that releases a resource; Flush is called
// only from the frame scheduler's single draining thread.
type Queue[T any] struct {
	mu      sync.Mutex
	entries []entry[T]
}

// New creates an empty Queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push enqueues value, to be released once completedFence reaches fence.
func (q *Queue[T]) Push(value T, fence uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entry[T]{value: value, fence: fence})
}

// Flush drains every entry whose fence is at or below completedFence,
// invoking release for each in FIFO order, and returns how many were
// drained. Entries are appended in non-decreasing fence order (frame
// numbers only increase), so draining stops at the first entry that is
// still too new.
func (q *Queue[T]) Flush(completedFence uint64, release func(T)) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, e := range q.entries {
		if e.fence <= completedFence {
			release(e.value)
			n++
		} else {
			break
		}
	}
	q.entries = q.entries[n:]
	return n
}

// Len returns the number of entries still queued.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
