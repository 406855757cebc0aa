package badger

import (
	"context"
	"testing"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache_PutGet(t *testing.T) {
	cache, err := NewMemoryEmbeddingCache()
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	key := core.ContentKey("text-embedding-3-large", "bonjour")

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Put(ctx, key, []float32{0.25, 0.5}))

	vec, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{0.25, 0.5}, vec)
}

func TestEmbeddingCache_KeysAreModelScoped(t *testing.T) {
	cache, err := NewMemoryEmbeddingCache()
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, core.ContentKey("model-a", "txt"), []float32{1}))

	_, ok, err := cache.Get(ctx, core.ContentKey("model-b", "txt"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEmbeddingCache_Persists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	key := core.ContentKey("m", "persisted")

	cache, err := OpenEmbeddingCache(dir, false)
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, key, []float32{3, 4}))
	require.NoError(t, cache.Close())

	cache, err = OpenEmbeddingCache(dir, false)
	require.NoError(t, err)
	defer cache.Close()

	vec, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{3, 4}, vec)
}

func TestEmbeddingCache_Closed(t *testing.T) {
	cache, err := NewMemoryEmbeddingCache()
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	_, _, err = cache.Get(context.Background(), 1)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	err = cache.Put(context.Background(), 1, []float32{1})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestNewEmbeddingCache_SharedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	cache, err := NewEmbeddingCache(backend)
	require.NoError(t, err)
	require.NoError(t, cache.Close())
	assert.False(t, backend.IsClosed())

	_, err = NewEmbeddingCache(nil)
	assert.Error(t, err)
}
