// Package event provides the synchronous lifecycle event bus. Dispatch
// delivers to subscribers in registration order; a subscriber failure never
// aborts dispatch.
package event

import (
	"github.com/cihub/seelog"
	"github.com/splitice/go-resque/job"
)

// Kind identifies a lifecycle event.
type Kind string

const (
	WorkerStartup    Kind = "worker-startup"
	WorkerBeforeFork Kind = "worker-before-fork"
	WorkerAfterFork  Kind = "worker-after-fork"
	JobBeforePerform Kind = "job-before-perform"
	JobAfterPerform  Kind = "job-after-perform"
	JobPerformed     Kind = "job-performed"
	JobFailed        Kind = "job-failed"
)

// Event carries the descriptor and worker context for a lifecycle event.
// Err is set only for JobFailed.
type Event struct {
	Kind   Kind
	Job    *job.Descriptor
	Worker string
	Err    error
}

// Subscriber receives events of the kind it registered for.
type Subscriber func(Event)

// Bus fans events out to subscribers, synchronously and in registration
// order.
type Bus struct {
	subscribers map[Kind][]Subscriber
	logger      seelog.LoggerInterface
}

// NewBus creates an empty bus.
func NewBus(logger seelog.LoggerInterface) *Bus {
	if logger == nil {
		logger = seelog.Disabled
	}
	return &Bus{
		subscribers: make(map[Kind][]Subscriber),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for the given kind. Registration order is
// dispatch order. Not safe for use while Dispatch runs concurrently; wire
// subscribers up before starting the worker.
func (b *Bus) Subscribe(kind Kind, s Subscriber) {
	b.subscribers[kind] = append(b.subscribers[kind], s)
}

// Dispatch delivers the event to every subscriber of its kind. Subscriber
// panics are logged and swallowed.
func (b *Bus) Dispatch(e Event) {
	for _, s := range b.subscribers[e.Kind] {
		b.deliver(s, e)
	}
}

func (b *Bus) deliver(s Subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("Event subscriber panic on %s: %v", e.Kind, r)
		}
	}()
	s(e)
}
