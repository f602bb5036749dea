// Package registry maps descriptor class tags to performer factories.
package registry

import (
	"sync"

	"github.com/splitice/go-resque/errors"
	"github.com/splitice/go-resque/job"
)

// Performer executes one unit of work. Success is the absence of an error.
type Performer interface {
	Perform() error
}

// Factory materialises a performer for a descriptor's queue and arguments.
// Argument shape is the factory's concern.
type Factory func(queue string, args []interface{}) (Performer, error)

// PerformFunc adapts a plain function to the Performer interface.
type PerformFunc func() error

func (f PerformFunc) Perform() error { return f() }

// Registry is a thread-safe class tag to factory mapping.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory for a class tag. Registering an existing class
// replaces the earlier factory.
func (r *Registry) Register(class string, factory Factory) error {
	if class == "" {
		return errors.ErrEmptyClassName
	}
	if factory == nil {
		return errors.ErrNilFactory
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[class] = factory
	return nil
}

// RegisterFunc adds a worker function for a class tag; the function is
// called with the descriptor's origin queue and arguments.
func (r *Registry) RegisterFunc(class string, fn func(queue string, args ...interface{}) error) error {
	if fn == nil {
		return errors.ErrNilFactory
	}
	return r.Register(class, func(queue string, args []interface{}) (Performer, error) {
		return PerformFunc(func() error {
			return fn(queue, args...)
		}), nil
	})
}

// Create materialises a performer for the descriptor. Returns an invalid-job
// error when the class tag is unknown, the factory fails, or the factory
// produces nothing.
func (r *Registry) Create(d *job.Descriptor) (Performer, error) {
	r.mu.RLock()
	factory, ok := r.factories[d.Class]
	r.mu.RUnlock()

	if !ok {
		return nil, &errors.InvalidJob{Class: d.Class, Err: errors.ErrUnknownClass}
	}

	performer, err := factory(d.Queue, d.Args)
	if err != nil {
		return nil, &errors.InvalidJob{Class: d.Class, Err: err}
	}
	if performer == nil {
		return nil, &errors.InvalidJob{Class: d.Class, Err: errors.ErrNilPerformer}
	}
	return performer, nil
}

// List returns all registered class tags.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	classes := make([]string, 0, len(r.factories))
	for class := range r.factories {
		classes = append(classes, class)
	}
	return classes
}

// Remove unregisters a class tag.
func (r *Registry) Remove(class string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.factories, class)
}
