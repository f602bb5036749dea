package stats

import (
	"context"
	"strconv"

	"github.com/splitice/go-resque/store"
)

// Redis keeps counters under the Resque key scheme "stat:<name>".
type Redis struct {
	store     store.Store
	namespace string
}

// NewRedis creates a counter backend over the given store.
func NewRedis(s store.Store, namespace string) *Redis {
	return &Redis{store: s, namespace: namespace}
}

func (r *Redis) Increment(ctx context.Context, key string) error {
	_, err := r.store.Incr(ctx, r.key(key))
	return err
}

func (r *Redis) Decrement(ctx context.Context, key string) error {
	_, err := r.store.Decr(ctx, r.key(key))
	return err
}

func (r *Redis) Get(ctx context.Context, key string) (int64, error) {
	value, found, err := r.store.Get(ctx, r.key(key))
	if err != nil || !found {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

func (r *Redis) Clear(ctx context.Context, key string) error {
	return r.store.Del(ctx, r.key(key))
}

func (r *Redis) key(name string) string {
	return r.namespace + "stat:" + name
}
