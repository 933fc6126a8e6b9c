package localstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("localstore: not found")
	ErrUnavailable      = errors.New("localstore: store unavailable")
	ErrQuotaExceeded    = errors.New("localstore: quota exceeded")
	ErrInvalidNamespace = errors.New("localstore: invalid namespace")
)

// KeyValueStore is the synchronous string key-value facility the wrapper sits on.
// Implementations must be thread-safe. Get returns ErrNotFound for absent keys;
// Remove of an absent key is not an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)

	// Clear removes every key in the store, regardless of namespace.
	Clear(ctx context.Context) error
	// Keys lists every key currently present.
	Keys(ctx context.Context) ([]string, error)
}

// OpError records a failed wrapper operation.
type OpError struct {
	Op  string
	Key string
	Err error
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("localstore: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("localstore: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
