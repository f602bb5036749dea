package worker

import (
	"context"

	"github.com/splitice/go-resque/foreman"
	"github.com/splitice/go-resque/job"
	"github.com/splitice/go-resque/registry"
)

// Queue is the FIFO source of descriptors the worker reserves from.
// Implementations may block Pop for a bounded interval or return
// immediately; the worker treats both identically.
type Queue interface {
	// Name returns the stable identifier used in worker id composition and
	// log context.
	Name() string

	// Pop removes and returns the next descriptor, or nil when empty.
	Pop(ctx context.Context) (*job.Descriptor, error)

	// Push is the inverse of Pop. The worker itself only pushes when
	// re-queueing.
	Push(ctx context.Context, d *job.Descriptor) error
}

// Factory materialises an executable performer for a descriptor.
type Factory interface {
	Create(d *job.Descriptor) (registry.Performer, error)
}

// Forker splits job execution into a child process.
type Forker interface {
	Fork(ctx context.Context, d *job.Descriptor) (foreman.Child, error)
}
