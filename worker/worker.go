// Package worker implements the reservation loop: polling queues in order,
// executing each reserved descriptor inline or in a forked child, and
// recording success or failure.
package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cihub/seelog"
	"github.com/splitice/go-resque/errors"
	"github.com/splitice/go-resque/event"
	"github.com/splitice/go-resque/failure"
	"github.com/splitice/go-resque/foreman"
	"github.com/splitice/go-resque/job"
	"github.com/splitice/go-resque/registry"
	"github.com/splitice/go-resque/stats"
	"github.com/splitice/go-resque/store"
)

// Version is reported in the process line.
const Version = "1.2"

// Worker reserves descriptors from an ordered list of queues and executes
// them one at a time. Only one Worker may run per process; signal handlers
// are process-wide.
type Worker struct {
	queues    []Queue
	factory   Factory
	failures  failure.Backend
	stats     stats.Backend
	bus       *event.Bus
	store     store.Store
	forker    Forker
	fork      bool
	interval  time.Duration
	namespace string
	logger    seelog.LoggerInterface
	codec     *job.Codec

	hostname string
	pid      int
	idOnce   sync.Once
	id       string

	shutdown   atomic.Bool
	paused     atomic.Bool
	forkWarned atomic.Bool

	mu         sync.Mutex
	currentJob *job.Descriptor
	child      foreman.Child

	procline atomic.Value
	wake     chan struct{}
}

// New creates a worker for the given queues. Queues are polled in the order
// given; a later queue with a name already seen replaces the earlier entry
// in place.
func New(queues []Queue, factory Factory, options ...Option) *Worker {
	hostname, _ := os.Hostname()

	w := &Worker{
		queues:    dedupeQueues(queues),
		factory:   factory,
		interval:  5 * time.Second,
		namespace: "resque:",
		hostname:  hostname,
		pid:       os.Getpid(),
		wake:      make(chan struct{}, 1),
	}

	for _, opt := range options {
		opt(w)
	}

	if w.logger == nil {
		w.logger = seelog.Disabled
	}
	if w.failures == nil {
		w.failures = failure.NewNoop()
	}
	if w.stats == nil {
		w.stats = stats.NewNoop()
	}
	if w.store == nil {
		w.store = store.NewMemory()
	}
	if w.bus == nil {
		w.bus = event.NewBus(w.logger)
	}
	if w.codec == nil {
		w.codec = job.NewCodec()
	}

	w.procline.Store("")
	return w
}

func dedupeQueues(queues []Queue) []Queue {
	index := make(map[string]int, len(queues))
	out := make([]Queue, 0, len(queues))
	for _, q := range queues {
		if i, ok := index[q.Name()]; ok {
			out[i] = q
			continue
		}
		index[q.Name()] = len(out)
		out = append(out, q)
	}
	return out
}

// ID returns the worker identity, <hostname>:<pid>:<queue names>, derived
// lazily and stable for the worker's lifetime.
func (w *Worker) ID() string {
	w.idOnce.Do(func() {
		w.id = fmt.Sprintf("%s:%d:%s", w.hostname, w.pid, strings.Join(w.queueNames(), ","))
	})
	return w.id
}

func (w *Worker) queueNames() []string {
	names := make([]string, len(w.queues))
	for i, q := range w.queues {
		names[i] = q.Name()
	}
	return names
}

// Procline returns the current process status line.
func (w *Worker) Procline() string {
	return w.procline.Load().(string)
}

func (w *Worker) setProcline(status string) {
	line := fmt.Sprintf("resque-%s: %s", Version, status)
	w.procline.Store(line)
	w.logger.Debugf("%s", line)
}

// CurrentJob returns the descriptor being worked, or nil when idle.
func (w *Worker) CurrentJob() *job.Descriptor {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentJob
}

// Work runs the reservation loop until shutdown is requested, the context
// is cancelled, or a zero interval finds every queue empty.
func (w *Worker) Work(ctx context.Context) error {
	w.setProcline("Starting")
	stopSignals := w.startSignals()
	defer stopSignals()

	w.registerWorker(ctx)
	defer w.unregisterWorker(ctx)

	w.bus.Dispatch(event.Event{Kind: event.WorkerStartup, Worker: w.ID()})
	w.logger.Infof("Worker %s started on queues %v", w.ID(), w.queueNames())

	for {
		if w.shutdown.Load() || ctx.Err() != nil {
			break
		}

		if w.paused.Load() {
			w.setProcline("Paused")
			w.sleep(ctx, w.interval)
			continue
		}

		d, err := w.reserve(ctx)
		if err != nil {
			w.logger.Errorf("Error reserving job: %v", err)
		}
		if d == nil {
			if w.interval == 0 {
				break
			}
			w.setProcline("Waiting for " + strings.Join(w.queueNames(), ","))
			w.sleep(ctx, w.interval)
			continue
		}

		// A shutdown raised after the pop is deliberately ignored here:
		// work already dequeued is not lost to graceful shutdown.
		w.working(ctx, d)
	}

	w.logger.Infof("Worker %s stopped", w.ID())
	return nil
}

// reserve polls the queues in insertion order; the first non-empty pop
// wins.
func (w *Worker) reserve(ctx context.Context) (*job.Descriptor, error) {
	var firstErr error
	for _, q := range w.queues {
		d, err := q.Pop(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if d != nil {
			return d, nil
		}
	}
	return nil, firstErr
}

func (w *Worker) working(ctx context.Context, d *job.Descriptor) {
	w.setCurrentJob(ctx, d)
	defer w.clearCurrentJob(ctx)

	if err := d.SetState(job.StateRunning); err != nil {
		panic(fmt.Sprintf("reserved descriptor %s cannot start running: %v", d.ID(), err))
	}

	if w.fork {
		if forker := w.ensureForker(); forker != nil {
			w.forked(ctx, d, forker)
			return
		}
	}
	w.inline(ctx, d)
}

// inline executes the job in this process.
func (w *Worker) inline(ctx context.Context, d *job.Descriptor) {
	w.bus.Dispatch(event.Event{Kind: event.JobBeforePerform, Job: d, Worker: w.ID()})

	performer, err := w.factory.Create(d)
	if err != nil {
		w.handleFailure(ctx, d, err)
		return
	}

	if err := w.perform(performer); err != nil {
		w.handleFailure(ctx, d, err)
		return
	}

	if err := d.SetState(job.StateComplete); err != nil {
		w.logger.Errorf("Descriptor %s state error: %v", d.ID(), err)
	}
	w.bus.Dispatch(event.Event{Kind: event.JobAfterPerform, Job: d, Worker: w.ID()})
	w.bus.Dispatch(event.Event{Kind: event.JobPerformed, Job: d, Worker: w.ID()})
	w.countSuccess(ctx)
	w.logger.Debugf("Performed %s", d)
}

// perform runs the performer with panic recovery.
func (w *Worker) perform(performer registry.Performer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &errors.JobError{
				KindName: "Panic",
				Err:      fmt.Errorf("panic: %v", r),
				Frames:   strings.Split(strings.TrimSpace(string(debug.Stack())), "\n"),
			}
		}
	}()
	return performer.Perform()
}

// forked executes the job in a child process and reaps it.
func (w *Worker) forked(ctx context.Context, d *job.Descriptor, forker Forker) {
	w.bus.Dispatch(event.Event{Kind: event.WorkerBeforeFork, Job: d, Worker: w.ID()})

	// The child must not inherit live connections from the shared client.
	if disconnector, ok := w.store.(store.Disconnector); ok {
		if err := disconnector.Disconnect(); err != nil {
			w.logger.Errorf("Error disconnecting store before fork: %v", err)
		}
	}

	child, err := forker.Fork(ctx, d)
	if err != nil {
		if stderrors.Is(err, errors.ErrForkUnsupported) {
			w.warnForkUnsupported(err)
			w.inline(ctx, d)
			return
		}
		w.handleFailure(ctx, d, err)
		return
	}

	w.setChild(child)
	w.setProcline(fmt.Sprintf("Forked %d at %s", child.Pid(), time.Now().Format(time.RFC3339)))

	code, waitErr := child.Wait()
	w.setChild(nil)

	if waitErr != nil {
		w.handleFailure(ctx, d, fmt.Errorf("wait for child %d: %w", child.Pid(), waitErr))
		return
	}
	if code != 0 {
		w.handleFailure(ctx, d, &errors.DirtyExit{Pid: child.Pid(), Code: code})
		return
	}

	if err := d.SetState(job.StateComplete); err != nil {
		w.logger.Errorf("Descriptor %s state error: %v", d.ID(), err)
	}
	w.countSuccess(ctx)
	w.logger.Debugf("Child %d performed %s", child.Pid(), d)
}

// ensureForker resolves the fork primitive, degrading to inline execution
// when the platform cannot re-exec.
func (w *Worker) ensureForker() Forker {
	if w.forker != nil {
		return w.forker
	}
	f, err := foreman.NewExec()
	if err != nil {
		w.warnForkUnsupported(err)
		return nil
	}
	w.forker = f
	return f
}

func (w *Worker) warnForkUnsupported(err error) {
	if w.forkWarned.CompareAndSwap(false, true) {
		w.logger.Warnf("Forking unavailable, running jobs inline: %v", err)
	}
}

// handleFailure records a failed job. It never raises: sink errors are
// logged and swallowed so the loop keeps running.
func (w *Worker) handleFailure(ctx context.Context, d *job.Descriptor, jobErr error) {
	w.logger.Errorf("Job %s failed: %v", d, jobErr)

	if d.State() == job.StateRunning {
		if err := d.SetState(job.StateFailed); err != nil {
			w.logger.Errorf("Descriptor %s state error: %v", d.ID(), err)
		}
	}

	if err := w.failures.Save(ctx, d, jobErr, d.Queue, w.ID()); err != nil {
		w.logger.Errorf("Error saving failure record: %v", err)
	}
	if err := w.stats.Increment(ctx, "failed"); err != nil {
		w.logger.Errorf("Error incrementing failed: %v", err)
	}
	if err := w.stats.Increment(ctx, "failed:"+w.ID()); err != nil {
		w.logger.Errorf("Error incrementing worker failed: %v", err)
	}

	w.bus.Dispatch(event.Event{Kind: event.JobFailed, Job: d, Worker: w.ID(), Err: jobErr})
}

func (w *Worker) countSuccess(ctx context.Context) {
	if err := w.stats.Increment(ctx, "processed"); err != nil {
		w.logger.Errorf("Error incrementing processed: %v", err)
	}
	if err := w.stats.Increment(ctx, "processed:"+w.ID()); err != nil {
		w.logger.Errorf("Error incrementing worker processed: %v", err)
	}
}

// currentJobRecord is the wire form published under worker:<id> while a job
// is being worked.
type currentJobRecord struct {
	Queue   *string         `json:"queue"`
	RunAt   string          `json:"run_at"`
	Payload json.RawMessage `json:"payload"`
}

// setCurrentJob installs d as the job being worked and publishes the
// current-job record. Installing over an existing current job is a bug the
// loop cannot recover from.
func (w *Worker) setCurrentJob(ctx context.Context, d *job.Descriptor) {
	w.mu.Lock()
	if w.currentJob != nil {
		w.mu.Unlock()
		panic(fmt.Sprintf("worker %s already has current job %s", w.ID(), w.currentJob.ID()))
	}
	w.currentJob = d
	w.mu.Unlock()

	payload, err := w.codec.Encode(d)
	if err != nil {
		w.logger.Errorf("Error encoding current job: %v", err)
		return
	}

	record := currentJobRecord{
		RunAt:   time.Now().Format(time.RFC3339),
		Payload: payload,
	}
	if d.Queue != "" {
		queue := d.Queue
		record.Queue = &queue
	}

	data, err := json.Marshal(record)
	if err != nil {
		w.logger.Errorf("Error marshalling current job record: %v", err)
		return
	}
	if err := w.store.Set(ctx, w.workerKey(), string(data)); err != nil {
		w.logger.Errorf("Error publishing current job record: %v", err)
	}
}

// clearCurrentJob marks the worker idle and deletes the external record.
func (w *Worker) clearCurrentJob(ctx context.Context) {
	w.mu.Lock()
	w.currentJob = nil
	w.mu.Unlock()

	if err := w.store.Del(ctx, w.workerKey()); err != nil {
		w.logger.Errorf("Error clearing current job record: %v", err)
	}
}

func (w *Worker) setChild(child foreman.Child) {
	w.mu.Lock()
	w.child = child
	w.mu.Unlock()
}

func (w *Worker) registerWorker(ctx context.Context) {
	if err := w.store.SAdd(ctx, w.namespace+"workers", w.ID()); err != nil {
		w.logger.Errorf("Error registering worker: %v", err)
	}
	started := time.Now().Format(time.RFC3339)
	if err := w.store.Set(ctx, w.workerKey()+":started", started); err != nil {
		w.logger.Errorf("Error recording worker start: %v", err)
	}
}

func (w *Worker) unregisterWorker(ctx context.Context) {
	if err := w.store.SRem(ctx, w.namespace+"workers", w.ID()); err != nil {
		w.logger.Errorf("Error unregistering worker: %v", err)
	}
	if err := w.store.Del(ctx, w.workerKey()); err != nil {
		w.logger.Errorf("Error deleting worker key: %v", err)
	}
	if err := w.store.Del(ctx, w.workerKey()+":started"); err != nil {
		w.logger.Errorf("Error deleting worker start: %v", err)
	}
	if err := w.stats.Clear(ctx, "processed:"+w.ID()); err != nil {
		w.logger.Errorf("Error clearing worker processed: %v", err)
	}
	if err := w.stats.Clear(ctx, "failed:"+w.ID()); err != nil {
		w.logger.Errorf("Error clearing worker failed: %v", err)
	}
}

func (w *Worker) workerKey() string {
	return w.namespace + "worker:" + w.ID()
}

// sleep waits for d, returning early when a signal or cancellation needs
// the loop's attention.
func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-w.wake:
	case <-ctx.Done():
	}
}

func (w *Worker) awaken() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Shutdown requests a graceful stop: the current job finishes, then the
// loop exits.
func (w *Worker) Shutdown() {
	w.shutdown.Store(true)
	w.awaken()
}

// ShutdownNow requests an immediate stop: any child is killed and its job
// recorded as a dirty exit.
func (w *Worker) ShutdownNow() {
	w.shutdown.Store(true)
	w.KillChild()
	w.awaken()
}

// Pause idles the loop without re-polling queues until Resume.
func (w *Worker) Pause() {
	w.paused.Store(true)
	w.awaken()
}

// Resume undoes Pause.
func (w *Worker) Resume() {
	w.paused.Store(false)
	w.awaken()
}

// KillChild SIGKILLs the current child, if any, without affecting worker
// state. The reaped status surfaces as a dirty exit.
func (w *Worker) KillChild() {
	w.mu.Lock()
	child := w.child
	w.mu.Unlock()

	if child != nil {
		_ = child.Kill()
	}
}

// Paused reports whether the loop is pausing.
func (w *Worker) Paused() bool { return w.paused.Load() }

// ShuttingDown reports whether a shutdown has been requested.
func (w *Worker) ShuttingDown() bool { return w.shutdown.Load() }
