package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("miss returns ErrNotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "absent")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k1", []byte("v1")))

		got, err := store.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)
	})

	t.Run("last write wins", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k1", []byte("v2")))

		got, err := store.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "k3", []byte("original")))
		got, err := store.Get(ctx, "k3")
		require.NoError(t, err)
		got[0] = 'X'

		again, err := store.Get(ctx, "k3")
		require.NoError(t, err)
		assert.Equal(t, []byte("original"), again)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		_, err := store.Get(ctx, "")
		require.ErrorIs(t, err, ErrInvalidKey)
		require.ErrorIs(t, store.Set(ctx, "", nil), ErrInvalidKey)
	})
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))

	found, err := store.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("k%d", i), []byte("v")))
	}

	n, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 0, store.Len())

	n, err = store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemoryStoreConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%8)
			_ = store.Set(ctx, key, []byte(fmt.Sprintf("v%d", i)))
			_, _ = store.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, store.Len())
}
