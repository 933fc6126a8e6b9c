package sqlitestore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"code.byted.org/khicago/localstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "localstore.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestStore_CRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, localstore.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", `{"a":1}`))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	require.NoError(t, s.Set(ctx, "k", `2`))
	v, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `2`, v)

	ok, err := s.Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Remove(ctx, "k"))
	ok, err = s.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, s.Remove(ctx, "k"))
}

func TestStore_KeysAndClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	for _, k := range []string{"ns:b", "other", "ns:a"} {
		require.NoError(t, s.Set(ctx, k, "1"))
	}

	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ns:a", "ns:b", "other"}, keys)

	require.NoError(t, s.Clear(ctx))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", `"v"`))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"v"`, v)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	// Concurrent callers must all see the one in-memory database.
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			return s.Set(ctx, fmt.Sprintf("k%d", i), "v")
		})
	}
	require.NoError(t, g.Wait())

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 8)
}

func TestIsMemoryPath(t *testing.T) {
	assert.True(t, isMemoryPath(":memory:"))
	assert.True(t, isMemoryPath("file:cache?mode=memory&cache=shared"))
	assert.False(t, isMemoryPath("/var/lib/localstore.db"))
}

func TestStore_CanceledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Set(ctx, "k", "v"), context.Canceled)
	_, err := s.Keys(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_NilStore(t *testing.T) {
	var s *Store

	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, localstore.ErrUnavailable)
	assert.NoError(t, s.Close())
}

func TestStore_WithStorage(t *testing.T) {
	s := localstore.New(openTestStore(t))
	ctx := context.Background()

	require.True(t, s.SetItems(ctx, map[string]any{"ns:a": 1, "ns:b": 2, "other": 3}))

	ns, err := s.Namespace("ns")
	require.NoError(t, err)
	require.True(t, ns.Clear(ctx))

	assert.Equal(t, map[string]any{"other": 3.0}, s.GetItems(ctx, s.Keys(ctx)...))
}
