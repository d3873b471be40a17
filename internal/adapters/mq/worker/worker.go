// Package worker classifies queued tracks concurrently.
//
// Each worker keeps its own verdicts and its own statistics partial; the pool
// combines them once every worker has stopped, so the per-track path never
// takes a lock.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/trailfilter/internal/domain/classify"
	"github.com/okian/trailfilter/internal/domain/model"
	"github.com/okian/trailfilter/internal/domain/stats"
	"github.com/okian/trailfilter/pkg/logger"
	"github.com/okian/trailfilter/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Track abstracts what workers read off the queue.
type Track = model.Track

// Classifier produces a verdict for one track.
type Classifier interface {
	Classify(ctx context.Context, t model.Track) classify.Verdict
}

// Observer accumulates corpus statistics into caller-owned partials.
type Observer interface {
	NewPartial() *stats.Aggregate
	Observe(agg *stats.Aggregate, t model.Track)
}

// Queue defines how workers receive tracks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Track
}

// Worker processes tracks from a queue.
type Worker interface {
	// Run starts the worker loop until the queue closes or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the track in hand.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker with private result storage.
type InMemoryWorker struct {
	queue      Queue
	classifier Classifier
	observer   Observer
	name       string
	onVerdict  func(classify.Verdict)

	// Owned by the Run goroutine until done is closed
	verdicts []classify.Verdict
	partial  *stats.Aggregate

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, classifier Classifier, observer Observer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      queue,
		classifier: classifier,
		observer:   observer,
		name:       "worker",
		partial:    observer.NewPartial(),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	trackChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-trackChan:
			if !ok {
				return
			}
			w.process(ctx, t)
		}
	}
}

// process classifies t and folds it into the worker's partial statistics.
func (w *InMemoryWorker) process(ctx context.Context, t Track) { //nolint:gocritic // hugeParam: Track is passed by value for channel semantics
	start := time.Now()
	v := w.classifier.Classify(ctx, t)
	metrics.RecordClassificationLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordVerdict(string(v.Reason))

	w.observer.Observe(w.partial, t)
	w.verdicts = append(w.verdicts, v)

	if w.onVerdict != nil {
		w.onVerdict(v)
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out", logger.String("worker", w.name))
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Results returns the worker's verdicts and statistics partial. Only valid
// after Done is closed.
func (w *InMemoryWorker) Results() ([]classify.Verdict, *stats.Aggregate) {
	return w.verdicts, w.partial
}

// Result is the merged output of a pool.
type Result struct {
	Verdicts []classify.Verdict
	Stats    *stats.Aggregate
}

// Pool manages multiple workers.
type Pool struct {
	workers    []*InMemoryWorker
	queue      Queue
	classifier Classifier
	observer   Observer
	active     atomic.Int32

	// Logging
	logger logger.Logger
}

// NewPool creates a new worker pool. workerCount below one means one worker
// per CPU.
func NewPool(workerCount int, queue Queue, classifier Classifier, observer Observer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:    make([]*InMemoryWorker, workerCount),
		queue:      queue,
		classifier: classifier,
		observer:   observer,
		logger:     logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, classifier, observer, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	p.active.Store(int32(len(p.workers))) //nolint:gosec // worker counts are small
	metrics.UpdateWorkerActiveCount(len(p.workers))

	for _, w := range p.workers {
		go func(w *InMemoryWorker) {
			w.Run(ctx)
			metrics.UpdateWorkerActiveCount(int(p.active.Add(-1)))
		}(w)
	}
}

// Wait blocks until every worker has stopped, then concatenates verdicts and
// merges the statistics partials. Workers stop when the queue is closed and
// drained. If ctx ends first, Wait returns its error and no result.
func (p *Pool) Wait(ctx context.Context) (*Result, error) {
	for _, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for workers: %w", ctx.Err())
		}
	}

	res := &Result{}
	parts := make([]*stats.Aggregate, 0, len(p.workers))
	for _, w := range p.workers {
		verdicts, partial := w.Results()
		res.Verdicts = append(res.Verdicts, verdicts...)
		parts = append(parts, partial)
	}
	res.Stats = stats.Merge(parts...)

	p.logger.Debug(ctx, "workers finished",
		logger.Int("workers", len(p.workers)),
		logger.Int("verdicts", len(res.Verdicts)))

	return res, nil
}

// Shutdown closes the queue if it can be closed and stops all workers.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
