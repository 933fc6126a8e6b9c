package localstore

import (
	"context"
	"strings"
)

// Namespace scopes Storage operations to keys prefixed with "<namespace>:".
//
// Prefixes are not escaped. Namespaces "a" and "a:b" overlap: the raw key
// "a:b:x" belongs to both, and clearing "a" removes it.
type Namespace[TKey ~string] struct {
	storage *Storage
	name    string
	prefix  string
}

// NewNamespace creates a namespace-scoped view of s.
func NewNamespace[TKey ~string](s *Storage, namespace string) (*Namespace[TKey], error) {
	if namespace == "" {
		return nil, ErrInvalidNamespace
	}
	return &Namespace[TKey]{
		storage: s,
		name:    namespace,
		prefix:  namespace + ":",
	}, nil
}

// Namespace creates a string-keyed namespace view of s.
func (s *Storage) Namespace(namespace string) (*Namespace[string], error) {
	return NewNamespace[string](s, namespace)
}

// Name returns the namespace identifier without the trailing colon.
func (n *Namespace[TKey]) Name() string {
	return n.name
}

func (n *Namespace[TKey]) key(k TKey) string {
	return n.prefix + string(k)
}

func (n *Namespace[TKey]) Get(ctx context.Context, key TKey, defaultValue any) any {
	return n.storage.GetItem(ctx, n.key(key), defaultValue)
}

func (n *Namespace[TKey]) Load(ctx context.Context, key TKey, dst any) bool {
	return n.storage.Load(ctx, n.key(key), dst)
}

func (n *Namespace[TKey]) Set(ctx context.Context, key TKey, value any) bool {
	return n.storage.SetItem(ctx, n.key(key), value)
}

func (n *Namespace[TKey]) Remove(ctx context.Context, key TKey) bool {
	return n.storage.RemoveItem(ctx, n.key(key))
}

func (n *Namespace[TKey]) Has(ctx context.Context, key TKey) bool {
	return n.storage.HasItem(ctx, n.key(key))
}

// Keys returns the local keys currently stored in this namespace.
func (n *Namespace[TKey]) Keys(ctx context.Context) []TKey {
	fullKeys, err := n.storage.store.Keys(ctx)
	if err != nil {
		n.storage.logFailure("Keys", n.prefix, err)
		return nil
	}

	keys := make([]TKey, 0, len(fullKeys))
	for _, fullKey := range fullKeys {
		if strings.HasPrefix(fullKey, n.prefix) {
			keys = append(keys, TKey(fullKey[len(n.prefix):]))
		}
	}
	return keys
}

// Clear removes every key starting with "<namespace>:" and nothing else.
// Each call scans the whole store. A failed removal is logged and the scan
// continues; the result is false if anything failed.
func (n *Namespace[TKey]) Clear(ctx context.Context) bool {
	fullKeys, err := n.storage.store.Keys(ctx)
	if err != nil {
		n.storage.logFailure("Clear", n.prefix, err)
		return false
	}

	ok := true
	for _, fullKey := range fullKeys {
		if !strings.HasPrefix(fullKey, n.prefix) {
			continue
		}
		if !n.storage.RemoveItem(ctx, fullKey) {
			ok = false
		}
	}
	return ok
}
