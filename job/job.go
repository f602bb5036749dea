// Package job defines the descriptor, the unit of work moved between
// producers, queues, and workers.
package job

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State describes where a descriptor is in its lifecycle.
type State string

const (
	StateWaiting  State = "waiting"
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateFailed   State = "failed"
)

// Descriptor identifies a unit of work: a class tag, its arguments, and a
// unique id. The id is derived lazily on first request. Queue is the name of
// the queue the descriptor was popped from, or empty.
type Descriptor struct {
	Class     string
	Args      []interface{}
	Queue     string
	QueueTime float64

	mu    sync.Mutex
	id    string
	state State
}

// New creates a waiting descriptor for the given class and arguments.
func New(class string, args []interface{}) *Descriptor {
	return &Descriptor{
		Class:     class,
		Args:      args,
		QueueTime: float64(time.Now().UnixNano()) / float64(time.Second),
		state:     StateWaiting,
	}
}

// ID returns the descriptor id, deriving one if it has none yet.
func (d *Descriptor) ID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.id == "" {
		d.id = uuid.NewString()
	}
	return d.id
}

// SetID overrides the descriptor id.
func (d *Descriptor) SetID(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.id = id
}

// State returns the current lifecycle state.
func (d *Descriptor) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == "" {
		return StateWaiting
	}
	return d.state
}

// SetState advances the lifecycle state. Only the forward transitions
// waiting -> running -> (complete | failed) are allowed.
func (d *Descriptor) SetState(next State) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := d.state
	if current == "" {
		current = StateWaiting
	}

	valid := false
	switch next {
	case StateRunning:
		valid = current == StateWaiting
	case StateComplete, StateFailed:
		valid = current == StateRunning
	}
	if !valid {
		return fmt.Errorf("invalid state transition %s -> %s", current, next)
	}

	d.state = next
	return nil
}

// Clone returns a copy of the descriptor with a fresh id. State is reset to
// waiting so the clone can be enqueued again.
func (d *Descriptor) Clone() *Descriptor {
	d.mu.Lock()
	defer d.mu.Unlock()

	args := make([]interface{}, len(d.Args))
	copy(args, d.Args)

	return &Descriptor{
		Class:     d.Class,
		Args:      args,
		Queue:     d.Queue,
		QueueTime: d.QueueTime,
		state:     StateWaiting,
	}
}

// Equal reports whether two descriptors identify the same unit of work.
// Identity is the id alone.
func (d *Descriptor) Equal(other *Descriptor) bool {
	if other == nil {
		return false
	}
	return d.ID() == other.ID()
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s(%v)", d.Class, d.Args)
}
