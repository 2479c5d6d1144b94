package pipeline

import "time"

// Queue is a fixed-capacity FIFO buffer connecting two pipeline stages. Push
// never blocks: at capacity the oldest entry is evicted to admit the newest,
// trading completeness for freshness. Pop is timeout-bounded so workers can
// observe cancellation instead of blocking forever.
type Queue[T any] struct {
	ch chan T
}

// NewQueue creates a queue with the given capacity
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Push appends an item, evicting the oldest entry if the queue is full. It
// reports whether an eviction happened so the caller can count the drop. The
// newest item is always admitted.
func (q *Queue[T]) Push(item T) (evicted bool) {
	for {
		select {
		case q.ch <- item:
			return evicted
		default:
			select {
			case <-q.ch:
				evicted = true
			default:
				// a concurrent pop freed the slot; retry the send
			}
		}
	}
}

// Pop returns the oldest item, or ok=false if none arrived within the timeout
func (q *Queue[T]) Pop(timeout time.Duration) (T, bool) {
	select {
	case item := <-q.ch:
		return item, true
	case <-time.After(timeout):
		var zero T
		return zero, false
	}
}

// Drain removes all pending items without blocking and returns how many were
// discarded. Only used during shutdown to empty the backlog; a worker blocked
// in Pop is released by its own timeout, not by draining.
func (q *Queue[T]) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}

// Len returns the number of items currently queued
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}
