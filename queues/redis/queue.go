// Package redis provides the Redis-backed queue port. Descriptors live in a
// namespaced list per queue; pop is LPOP, push is RPUSH, so ordering within
// one queue is FIFO.
package redis

import (
	"context"
	"fmt"

	"github.com/splitice/go-resque/errors"
	"github.com/splitice/go-resque/job"
	"github.com/splitice/go-resque/store"
)

// Queue is a single named Redis queue.
type Queue struct {
	name      string
	namespace string
	store     store.Store
	codec     *job.Codec
}

// Option configures a Queue.
type Option func(*Queue)

// WithNamespace sets the key prefix. Default "resque:".
func WithNamespace(namespace string) Option {
	return func(q *Queue) { q.namespace = namespace }
}

// WithCodec sets the wire codec.
func WithCodec(codec *job.Codec) Option {
	return func(q *Queue) { q.codec = codec }
}

// NewQueue creates a queue port over the given store.
func NewQueue(name string, s store.Store, options ...Option) *Queue {
	q := &Queue{
		name:      name,
		namespace: "resque:",
		store:     s,
		codec:     job.NewCodec(),
	}
	for _, opt := range options {
		opt(q)
	}
	return q
}

// Name returns the stable queue identifier.
func (q *Queue) Name() string { return q.name }

// Pop removes and returns the next descriptor, or nil when the queue is
// empty. The returned descriptor carries this queue as its origin.
func (q *Queue) Pop(ctx context.Context) (*job.Descriptor, error) {
	data, found, err := q.store.LPop(ctx, q.key())
	if err != nil {
		return nil, errors.NewQueueError("pop", q.name, err)
	}
	if !found {
		return nil, nil
	}

	d, err := q.codec.Decode([]byte(data))
	if err != nil {
		return nil, errors.NewQueueError("pop", q.name, err)
	}
	d.Queue = q.name
	return d, nil
}

// Push appends a descriptor to the queue and tracks the queue name in the
// known-queues set.
func (q *Queue) Push(ctx context.Context, d *job.Descriptor) error {
	data, err := q.codec.Encode(d)
	if err != nil {
		return errors.NewQueueError("push", q.name, err)
	}

	if err := q.store.RPush(ctx, q.key(), string(data)); err != nil {
		return errors.NewQueueError("push", q.name, err)
	}

	// Track the queue name (best effort).
	_ = q.store.SAdd(ctx, q.namespace+"queues", q.name)
	return nil
}

// Size returns the number of waiting descriptors.
func (q *Queue) Size(ctx context.Context) (int64, error) {
	return q.store.LLen(ctx, q.key())
}

func (q *Queue) key() string {
	return fmt.Sprintf("%squeue:%s", q.namespace, q.name)
}
