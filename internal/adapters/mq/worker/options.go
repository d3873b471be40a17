package worker

import (
	"github.com/okian/trailfilter/internal/domain/classify"
	"github.com/okian/trailfilter/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithOnVerdict registers a callback run after each classified track. Workers
// call it concurrently.
func WithOnVerdict(fn func(classify.Verdict)) Option {
	return func(w *InMemoryWorker) {
		w.onVerdict = fn
	}
}
