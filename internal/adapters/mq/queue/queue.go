// Package queue provides a bounded in-memory queue with non-blocking enqueue
// and channel-based dequeue. The control API uses it to hand job requests to
// a single dispatcher without spawning a goroutine per request.
package queue

import (
	"context"
	"sync"

	"github.com/okian/trendetl/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 64
	defaultName          = "queue"
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds v to the queue.
	// Returns false if the queue is full or closed and v was not enqueued.
	Enqueue(ctx context.Context, v T) bool

	// Dequeue returns a channel that receives values as they become available.
	// The channel is closed when the queue is closed and drained or ctx is done.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the current number of queued values.
	Len() int

	// Close stops accepting values. Queued values can still be dequeued.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	name     string
	values   chan T
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	cfg := config{name: defaultName, capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &InMemoryQueue[T]{
		name:     cfg.name,
		capacity: cfg.capacity,
		values:   make(chan T, cfg.capacity),
	}
	metrics.UpdateQueueCapacity(q.name, q.capacity)
	metrics.UpdateQueueSize(q.name, 0)
	return q
}

// Enqueue adds v to the queue without blocking.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, v T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError(q.name, "closed")
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordQueueEnqueueError(q.name, "context_cancelled")
		return false
	}

	select {
	case q.values <- v:
		metrics.RecordQueueEnqueue(q.name)
		metrics.UpdateQueueSize(q.name, len(q.values))
		return true
	default:
		metrics.RecordQueueEnqueueError(q.name, "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive values as they become available.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case v, ok := <-q.values:
				if !ok {
					return
				}
				metrics.UpdateQueueSize(q.name, len(q.values))
				select {
				case out <- v:
					metrics.RecordQueueDequeue(q.name)
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued values.
func (q *InMemoryQueue[T]) Len() int {
	return len(q.values)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.values)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
