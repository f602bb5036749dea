// Package memory provides an in-process queue port for tests and embedded
// single-process use.
package memory

import (
	"context"
	"sync"

	"github.com/splitice/go-resque/job"
)

// Queue is a FIFO queue of descriptors held in memory.
type Queue struct {
	mu   sync.Mutex
	name string
	jobs []*job.Descriptor
}

// NewQueue creates an empty queue with the given name.
func NewQueue(name string) *Queue {
	return &Queue{name: name}
}

// Name returns the stable queue identifier.
func (q *Queue) Name() string { return q.name }

// Pop removes and returns the next descriptor, or nil when empty.
func (q *Queue) Pop(ctx context.Context) (*job.Descriptor, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return nil, nil
	}
	d := q.jobs[0]
	q.jobs = q.jobs[1:]
	d.Queue = q.name
	return d, nil
}

// Push appends a descriptor.
func (q *Queue) Push(ctx context.Context, d *job.Descriptor) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.jobs = append(q.jobs, d)
	return nil
}

// Size returns the number of waiting descriptors.
func (q *Queue) Size(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return int64(len(q.jobs)), nil
}
