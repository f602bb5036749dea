package foreman

import (
	"io"

	"github.com/cihub/seelog"
	"github.com/splitice/go-resque/event"
	"github.com/splitice/go-resque/job"
	"github.com/splitice/go-resque/registry"
)

// ChildOptions carries the collaborators a child process performs with.
type ChildOptions struct {
	Registry *registry.Registry
	Bus      *event.Bus
	Codec    *job.Codec
	Logger   seelog.LoggerInterface
	Worker   string
}

// RunChild is the child-side entry point. It reads one encoded descriptor
// from in, performs it, and returns the process exit code: 0 on success,
// 1 on any failure. The parent records failures from the exit status, so
// the child only logs.
func RunChild(in io.Reader, options ChildOptions) int {
	logger := options.Logger
	if logger == nil {
		logger = seelog.Disabled
	}
	bus := options.Bus
	if bus == nil {
		bus = event.NewBus(logger)
	}
	codec := options.Codec
	if codec == nil {
		codec = job.NewCodec()
	}

	if options.Registry == nil {
		logger.Error("Child started without a registry")
		return 1
	}

	payload, err := io.ReadAll(in)
	if err != nil {
		logger.Errorf("Child failed to read payload: %v", err)
		return 1
	}

	d, err := codec.Decode(payload)
	if err != nil {
		logger.Errorf("Child failed to decode payload: %v", err)
		return 1
	}

	bus.Dispatch(event.Event{Kind: event.WorkerAfterFork, Job: d, Worker: options.Worker})
	bus.Dispatch(event.Event{Kind: event.JobBeforePerform, Job: d, Worker: options.Worker})

	if err := d.SetState(job.StateRunning); err != nil {
		logger.Errorf("Child state error: %v", err)
		return 1
	}

	performer, err := options.Registry.Create(d)
	if err != nil {
		logger.Errorf("Child cannot materialise %s: %v", d.Class, err)
		return 1
	}

	if err := performer.Perform(); err != nil {
		logger.Errorf("Child perform failed for %s: %v", d, err)
		_ = d.SetState(job.StateFailed)
		return 1
	}

	_ = d.SetState(job.StateComplete)
	bus.Dispatch(event.Event{Kind: event.JobAfterPerform, Job: d, Worker: options.Worker})
	bus.Dispatch(event.Event{Kind: event.JobPerformed, Job: d, Worker: options.Worker})
	return 0
}
