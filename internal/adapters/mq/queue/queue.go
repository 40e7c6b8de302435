// Package queue carries raw frame records from a reader to the decode workers.
//
// Every item carries the sequence number it was read with so the consumer side
// can restore input order after parallel processing.
package queue

import (
	"context"
	"sync"

	"github.com/okian/hoopvision/pkg/metrics"
)

const defaultQueueCapacity = 4096

// Item is one raw frame record and its position in the input stream.
type Item struct {
	Seq     int64
	Payload []byte
}

// Queue provides bounded enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds an item without blocking. It returns ErrFull or ErrClosed
	// when the item was not accepted.
	Enqueue(ctx context.Context, it Item) error

	// EnqueueWait blocks until the item is accepted, ctx ends or the queue closes.
	EnqueueWait(ctx context.Context, it Item) error

	// Dequeue returns a channel closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Item

	Len(ctx context.Context) int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan Item
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Item, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds an item if there is room.
func (q *InMemoryQueue) Enqueue(_ context.Context, it Item) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	select {
	case q.items <- it:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.items))
		return nil
	default:
		metrics.RecordQueueEnqueueError("full")
		return ErrFull
	}
}

// EnqueueWait adds an item, waiting for room.
func (q *InMemoryQueue) EnqueueWait(ctx context.Context, it Item) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}
	// Close needs the write lock, so it cannot run while this send is pending.
	select {
	case q.items <- it:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.items))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError("context_cancelled")
		return ctx.Err()
	}
}

// Dequeue returns a channel that receives items in enqueue order.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Item {
	out := make(chan Item)
	go func() {
		defer close(out)
		for it := range q.items {
			select {
			case out <- it:
				metrics.UpdateQueueSize(len(q.items))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of buffered items.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.items)
}

// Close stops accepting items. Buffered items are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
