// Package queue hands parsed tracks to the classification workers.
//
// The queue is bounded and applies backpressure: a producer blocks in Enqueue
// while every slot is taken, so a batch of any size streams through a small
// buffer without dropping tracks.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/trailfilter/internal/domain/model"
	"github.com/okian/trailfilter/pkg/metrics"
)

const defaultCapacity = 64

// Track is the payload flowing through the queue.
type Track = model.Track

// Queue is a bounded FIFO of tracks with blocking enqueue.
type Queue interface {
	// Enqueue waits for a free slot. It fails with ErrClosed once the queue
	// is closed, or with the context error if ctx ends first.
	Enqueue(ctx context.Context, t Track) error

	// Dequeue returns the channel workers read from. It is closed after
	// Close once every queued track has been delivered.
	Dequeue(ctx context.Context) <-chan Track

	// Len returns the number of tracks waiting.
	Len() int

	// Close stops accepting tracks and releases blocked producers.
	Close() error
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	slots    chan Track
	capacity int

	// closing is closed first so blocked producers give up their read lock;
	// slots is closed only after they have.
	closing chan struct{}
	once    sync.Once
	mu      sync.RWMutex
}

// NewInMemoryQueue creates a queue; see WithCapacity.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.slots = make(chan Track, q.capacity)
	q.closing = make(chan struct{})

	metrics.UpdateQueueCapacity(q.capacity)
	q.observe()

	return q
}

// Capacity returns the number of slots.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Enqueue blocks until t is buffered, the queue closes or ctx ends.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Track) error { //nolint:gocritic // hugeParam: Track is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	select {
	case <-q.closing:
		q.refuse("closed")
		return fmt.Errorf("enqueue %s: %w", t.ID, ErrClosed)
	default:
	}

	select {
	case q.slots <- t:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	case <-q.closing:
		q.refuse("closed")
		return fmt.Errorf("enqueue %s: %w", t.ID, ErrClosed)
	case <-ctx.Done():
		q.refuse("context_cancelled")
		return fmt.Errorf("enqueue %s: %w", t.ID, ctx.Err())
	}
}

// Dequeue relays buffered tracks until the queue is closed and drained or ctx
// ends. Several workers may each call Dequeue; every track goes to one of them.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Track {
	out := make(chan Track)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case t, ok := <-q.slots:
				if !ok {
					return
				}
				metrics.RecordQueueDequeue()
				q.observe()
				select {
				case out <- t:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the number of buffered tracks.
func (q *InMemoryQueue) Len() int {
	return len(q.slots)
}

// Close is idempotent. Tracks already buffered are still delivered.
func (q *InMemoryQueue) Close() error {
	q.once.Do(func() {
		close(q.closing)
		q.mu.Lock()
		close(q.slots)
		q.mu.Unlock()
	})
	return nil
}

func (q *InMemoryQueue) observe() {
	n := len(q.slots)
	metrics.UpdateQueueSize(n)
	metrics.UpdateQueueUtilization(float64(n) / float64(q.capacity))
}

func (q *InMemoryQueue) refuse(reason string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
}
