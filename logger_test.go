package localstore

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedStorage(store KeyValueStore, opts ...Option) (*Storage, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	opts = append([]Option{WithLogger(zap.New(core))}, opts...)
	return New(store, opts...), logs
}

func TestWithLogger_SerializationFailure(t *testing.T) {
	s, logs := newObservedStorage(NewMemory())

	assert.False(t, s.SetItem(context.Background(), "bad", math.Inf(-1)))

	entries := logs.FilterMessage("SetItem failed").All()
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "localstore", entry.LoggerName)

	fields := entry.ContextMap()
	assert.Equal(t, "SetItem", fields["op"])
	assert.Equal(t, "bad", fields["key"])
	assert.Equal(t, "serialization", fields["kind"])
}

func TestWithLogger_StoreFailure(t *testing.T) {
	mem := NewMemory(WithQuota(8))
	s, logs := newObservedStorage(mem)

	assert.False(t, s.SetItem(context.Background(), "key", "a long value"))

	entries := logs.FilterMessage("SetItem failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "store", fields["kind"])
	assert.Contains(t, fields["error"], "quota exceeded")
}

func TestWithLogTag(t *testing.T) {
	mock := newMockStore()
	mock.getFunc = func(ctx context.Context, key string) (string, error) {
		return "", ErrUnavailable
	}
	s, logs := newObservedStorage(mock, WithLogTag("[TestTag]"))

	s.GetItem(context.Background(), "key1", nil)

	entries := logs.FilterMessage("GetItem failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "[TestTag]", entries[0].ContextMap()["tag"])
	assert.Equal(t, "key1", entries[0].ContextMap()["key"])
}

func TestLogger_NoLogOnSuccessOrAbsence(t *testing.T) {
	s, logs := newObservedStorage(NewMemory())
	ctx := context.Background()

	s.SetItem(ctx, "k", "v")
	s.GetItem(ctx, "k", nil)
	s.HasItem(ctx, "k")
	s.RemoveItem(ctx, "k")

	// Absent keys are not failures.
	s.GetItem(ctx, "missing", nil)
	s.GetItems(ctx, "a", "b")
	s.RemoveItem(ctx, "missing")

	s.SetItems(ctx, map[string]any{"a": 1})
	s.Keys(ctx)
	s.Clear(ctx)

	ns, err := s.Namespace("ns")
	require.NoError(t, err)
	ns.Set(ctx, "x", 1)
	ns.Keys(ctx)
	ns.Clear(ctx)

	assert.Zero(t, logs.Len(), "unexpected log entries: %v", logs.All())
}

func TestLogger_ClearHasNoKeyField(t *testing.T) {
	mem := NewMemory()
	mem.SetAvailable(false)
	s, logs := newObservedStorage(mem)

	assert.False(t, s.Clear(context.Background()))

	entries := logs.FilterMessage("Clear failed").All()
	require.Len(t, entries, 1)
	_, ok := entries[0].ContextMap()["key"]
	assert.False(t, ok)
}
