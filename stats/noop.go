package stats

import "context"

// Noop discards all counter updates.
type Noop struct{}

// NewNoop creates a no-op counter backend.
func NewNoop() *Noop { return &Noop{} }

func (n *Noop) Increment(ctx context.Context, key string) error { return nil }

func (n *Noop) Decrement(ctx context.Context, key string) error { return nil }

func (n *Noop) Get(ctx context.Context, key string) (int64, error) { return 0, nil }

func (n *Noop) Clear(ctx context.Context, key string) error { return nil }
