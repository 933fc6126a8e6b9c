package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Option customizes Storage behavior.
type Option func(*Storage)

// WithLogger specifies the logger failures are reported to.
// If not provided, a no-op logger is used.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.base = logger
		}
	}
}

// WithLogTag attaches a tag field to every log entry.
// Useful for telling apart several Storage values sharing a logger.
func WithLogTag(tag string) Option {
	return func(s *Storage) {
		s.tag = tag
	}
}

// Storage exposes fail-soft JSON accessors over a KeyValueStore.
// No method returns an error: failures are logged and masked behind the
// default value (reads) or false (writes and deletes).
type Storage struct {
	store  KeyValueStore
	base   *zap.Logger
	tag    string
	logger *zap.Logger
}

// New creates a Storage over store.
// If store is nil, a fresh Memory store is used.
func New(store KeyValueStore, opts ...Option) *Storage {
	s := &Storage{store: store}
	if s.store == nil {
		s.store = NewMemory()
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = named(s.base, s.tag)
	return s
}

// Store returns the underlying KeyValueStore.
func (s *Storage) Store() KeyValueStore {
	return s.store
}

// GetItem returns the decoded value stored under key, or defaultValue when the
// key is absent, the stored text is not valid JSON, or the store fails.
func (s *Storage) GetItem(ctx context.Context, key string, defaultValue any) any {
	var v any
	if !s.load(ctx, "GetItem", key, &v) {
		return defaultValue
	}
	return v
}

// Load decodes the value stored under key into dst.
// It reports false, leaving dst in an unspecified state, on absence or failure.
func (s *Storage) Load(ctx context.Context, key string, dst any) bool {
	return s.load(ctx, "Load", key, dst)
}

func (s *Storage) load(ctx context.Context, op, key string, dst any) bool {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		s.logFailure(op, key, err)
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logFailure(op, key, &encodingError{err: err})
		return false
	}
	return true
}

// SetItem encodes value as JSON and stores it under key.
// Encoding happens before the write, so an unencodable value never touches
// what is already stored.
func (s *Storage) SetItem(ctx context.Context, key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		s.logFailure("SetItem", key, &encodingError{err: err})
		return false
	}
	if err := s.store.Set(ctx, key, string(data)); err != nil {
		s.logFailure("SetItem", key, err)
		return false
	}
	return true
}

// RemoveItem deletes key. Removing an absent key succeeds.
func (s *Storage) RemoveItem(ctx context.Context, key string) bool {
	if err := s.store.Remove(ctx, key); err != nil {
		s.logFailure("RemoveItem", key, err)
		return false
	}
	return true
}

// Clear deletes every key in the underlying store, not only one namespace.
func (s *Storage) Clear(ctx context.Context) bool {
	if err := s.store.Clear(ctx); err != nil {
		s.logFailure("Clear", "", err)
		return false
	}
	return true
}

// HasItem reports whether a raw value exists for key.
// The stored text is not checked for valid JSON.
func (s *Storage) HasItem(ctx context.Context, key string) bool {
	ok, err := s.store.Has(ctx, key)
	if err != nil {
		s.logFailure("HasItem", key, err)
		return false
	}
	return ok
}

// GetItems resolves each key independently with a nil default.
func (s *Storage) GetItems(ctx context.Context, keys ...string) map[string]any {
	result := make(map[string]any, len(keys))
	for _, key := range keys {
		result[key] = s.GetItem(ctx, key, nil)
	}
	return result
}

// SetItems writes every entry and reports whether all writes succeeded.
// A failed entry does not stop the rest and nothing is rolled back.
func (s *Storage) SetItems(ctx context.Context, items map[string]any) bool {
	ok := true
	for key, value := range items {
		if !s.SetItem(ctx, key, value) {
			ok = false
		}
	}
	return ok
}

// Keys lists every key in the underlying store. Nil on failure.
func (s *Storage) Keys(ctx context.Context) []string {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		s.logFailure("Keys", "", err)
		return nil
	}
	return keys
}

// Get is the typed counterpart of GetItem.
func Get[T any](ctx context.Context, s *Storage, key string, defaultValue T) T {
	var v T
	if !s.load(ctx, "Get", key, &v) {
		return defaultValue
	}
	return v
}

type encodingError struct {
	err error
}

func (e *encodingError) Error() string {
	return fmt.Sprintf("json: %v", e.err)
}

func (e *encodingError) Unwrap() error { return e.err }

func isEncodingError(err error) bool {
	var ee *encodingError
	return errors.As(err, &ee)
}
