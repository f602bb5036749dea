package worker

import (
	"time"

	"github.com/cihub/seelog"
	"github.com/splitice/go-resque/event"
	"github.com/splitice/go-resque/failure"
	"github.com/splitice/go-resque/job"
	"github.com/splitice/go-resque/stats"
	"github.com/splitice/go-resque/store"
)

// Option configures a Worker.
type Option func(*Worker)

// WithFailures sets the failure sink. Default is the no-op sink.
func WithFailures(backend failure.Backend) Option {
	return func(w *Worker) { w.failures = backend }
}

// WithStats sets the counter sink. Default is the no-op sink.
func WithStats(backend stats.Backend) Option {
	return func(w *Worker) { w.stats = backend }
}

// WithBus sets the lifecycle event bus.
func WithBus(bus *event.Bus) Option {
	return func(w *Worker) { w.bus = bus }
}

// WithStore sets the external state store the current-job record and worker
// registration are published to. Default is an in-memory store.
func WithStore(s store.Store) Option {
	return func(w *Worker) { w.store = s }
}

// WithFork enables child-process isolation for each job.
func WithFork(fork bool) Option {
	return func(w *Worker) { w.fork = fork }
}

// WithForker sets the fork primitive used when forking is enabled. Without
// it the worker re-executes its own binary.
func WithForker(f Forker) Option {
	return func(w *Worker) { w.forker = f }
}

// WithInterval sets the sleep between empty polls. Zero makes Work return
// after the first empty reservation pass.
func WithInterval(interval time.Duration) Option {
	return func(w *Worker) { w.interval = interval }
}

// WithNamespace sets the key prefix for the external store. Default
// "resque:".
func WithNamespace(namespace string) Option {
	return func(w *Worker) { w.namespace = namespace }
}

// WithLogger sets the logger.
func WithLogger(logger seelog.LoggerInterface) Option {
	return func(w *Worker) { w.logger = logger }
}

// WithCodec sets the descriptor wire codec.
func WithCodec(codec *job.Codec) Option {
	return func(w *Worker) { w.codec = codec }
}
