package failure

import (
	"context"

	"github.com/splitice/go-resque/job"
)

// Noop discards failure records. The worker falls back to it when no
// backend is supplied.
type Noop struct{}

// NewNoop creates a no-op failure backend.
func NewNoop() *Noop { return &Noop{} }

func (n *Noop) Save(ctx context.Context, d *job.Descriptor, err error, queue string, worker string) error {
	return nil
}

func (n *Noop) Count(ctx context.Context) (int64, error) { return 0, nil }

func (n *Noop) Clear(ctx context.Context) error { return nil }
