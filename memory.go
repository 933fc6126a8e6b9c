package localstore

import (
	"context"
	"slices"
	"sync"
)

// MemoryOption customizes a Memory store.
type MemoryOption func(*Memory)

// WithQuota caps the store at n bytes, counted as len(key)+len(value) over
// all entries. Zero or negative means unlimited.
func WithQuota(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.quota = n
		}
	}
}

// Memory implements KeyValueStore with thread-safe in-memory storage.
type Memory struct {
	mu          sync.RWMutex
	data        map[string]string
	size        int
	quota       int
	unavailable bool
}

// NewMemory creates an in-memory KeyValueStore.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{data: make(map[string]string)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetAvailable toggles the store. While unavailable every call fails with
// ErrUnavailable, the way a disabled platform store rejects access.
func (m *Memory) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = !available
}

// Size returns the bytes currently counted against the quota.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return "", ErrUnavailable
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrUnavailable
	}

	size := m.size + len(value)
	if old, ok := m.data[key]; ok {
		size -= len(old)
	} else {
		size += len(key)
	}
	if m.quota > 0 && size > m.quota {
		return ErrQuotaExceeded
	}

	m.data[key] = value
	m.size = size
	return nil
}

func (m *Memory) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrUnavailable
	}
	if old, ok := m.data[key]; ok {
		m.size -= len(key) + len(old)
		delete(m.data, key)
	}
	return nil
}

func (m *Memory) Has(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return false, ErrUnavailable
	}
	_, ok := m.data[key]
	return ok, nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrUnavailable
	}
	m.data = make(map[string]string)
	m.size = 0
	return nil
}

// Keys returns every key in sorted order.
func (m *Memory) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return nil, ErrUnavailable
	}

	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}
