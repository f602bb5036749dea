package failure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/splitice/go-resque/errors"
	"github.com/splitice/go-resque/job"
	"github.com/splitice/go-resque/store"
)

// Redis appends failure records to the namespaced "failed" list, newest at
// the head, in the Resque key scheme.
type Redis struct {
	store     store.Store
	namespace string
	codec     *job.Codec
}

// NewRedis creates a failure backend over the given store.
func NewRedis(s store.Store, namespace string) *Redis {
	return &Redis{
		store:     s,
		namespace: namespace,
		codec:     job.NewCodec(),
	}
}

// Save persists one failure record.
func (r *Redis) Save(ctx context.Context, d *job.Descriptor, jobErr error, queue string, worker string) error {
	payload, err := r.codec.Encode(d)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	backtrace := errors.Backtrace(jobErr)
	if backtrace == nil {
		backtrace = []string{}
	}

	record := Record{
		FailedAt:  time.Now().Format(time.RFC3339),
		Payload:   payload,
		Exception: errors.Kind(jobErr),
		Error:     jobErr.Error(),
		Backtrace: backtrace,
		Worker:    worker,
		Queue:     queue,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal failure record: %w", err)
	}

	return r.store.LPush(ctx, r.key(), string(data))
}

// Count returns the total number of recorded failures.
func (r *Redis) Count(ctx context.Context) (int64, error) {
	return r.store.LLen(ctx, r.key())
}

// Clear removes all recorded failures.
func (r *Redis) Clear(ctx context.Context) error {
	return r.store.Del(ctx, r.key())
}

// All returns up to count records starting at start, newest first.
func (r *Redis) All(ctx context.Context, start, count int) ([]Record, error) {
	records := make([]Record, 0, count)
	for i := start; i < start+count; i++ {
		data, found, err := r.store.LIndex(ctx, r.key(), i)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}

		var record Record
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("unmarshal failure record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *Redis) key() string {
	return r.namespace + "failed"
}
