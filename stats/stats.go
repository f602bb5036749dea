// Package stats provides the monotonic counter store the worker reports
// processed and failed counts to.
package stats

import "context"

// Backend is a counter store keyed by string. Concurrency semantics are the
// backing store's concern.
type Backend interface {
	Increment(ctx context.Context, key string) error
	Decrement(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (int64, error)
	Clear(ctx context.Context, key string) error
}
