// Package store defines the external state store the worker core depends
// on, together with a Redis implementation and an in-memory one for tests
// and embedded use. The core only ever sees this interface, never a
// concrete client.
package store

import "context"

// Store is the key/value, list, and counter surface the core consumes.
type Store interface {
	// Keys
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Lists
	LPush(ctx context.Context, key, value string) error
	RPush(ctx context.Context, key, value string) error
	LPop(ctx context.Context, key string) (string, bool, error)
	LIndex(ctx context.Context, key string, index int) (string, bool, error)
	LLen(ctx context.Context, key string) (int64, error)

	// Sets
	SAdd(ctx context.Context, key, member string) error
	SRem(ctx context.Context, key, member string) error

	// Counters
	Incr(ctx context.Context, key string) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)

	Close() error
}

// Disconnector is implemented by stores holding OS-level resources that must
// be released before forking a child. Subsequent operations reconnect on
// demand.
type Disconnector interface {
	Disconnect() error
}
