// Package failure persists failure records so operators can observe, retry,
// or discard failed work.
package failure

import (
	"context"
	"encoding/json"

	"github.com/splitice/go-resque/job"
)

// Record is the wire form of a single failure, one JSON object per list
// element, newest at the head.
type Record struct {
	FailedAt  string          `json:"failed_at"`
	Payload   json.RawMessage `json:"payload"`
	Exception string          `json:"exception"`
	Error     string          `json:"error"`
	Backtrace []string        `json:"backtrace"`
	Worker    string          `json:"worker"`
	Queue     string          `json:"queue"`
}

// Backend accepts failure records. Repeated saves append repeated records;
// the core does not deduplicate.
type Backend interface {
	Save(ctx context.Context, d *job.Descriptor, err error, queue string, worker string) error
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}
