// internal/pkg/kv/kv.go
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get for absent keys.
var ErrKeyNotFound = errors.New("kv: key not found")

// Event describes a mutation observed on the shared store. Events are only
// delivered for writes that originated from a different handle or process,
// mirroring storage-change notifications: a writer never hears its own write.
type Event struct {
	Key     string
	Value   string
	Deleted bool
}

// Store is a durable key/value substrate shared across contexts. Values are
// opaque text. Last write observed wins; no additional locking is layered on
// top of the backend's natural semantics.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// Watch streams externally-originated mutations until ctx is done.
	Watch(ctx context.Context) <-chan Event

	Close() error
}
