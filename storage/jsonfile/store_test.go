package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(id string) core.Chunk {
	return core.Chunk{ID: id, DocID: "100000000001", ChunkIndex: 1, TotalChunks: 1, Text: "texte " + id}
}

func ids(chunks []core.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "none.json"))
	chunks, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestAppend_MergesInOrder(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "out_chunks.json"))

	require.NoError(t, s.Append(ctx, []core.Chunk{chunk("a"), chunk("b")}))
	require.NoError(t, s.Append(ctx, []core.Chunk{chunk("c")}))

	chunks, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(chunks))
}

func TestAppend_CorruptFileStartsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := New(path)
	require.NoError(t, s.Append(ctx, []core.Chunk{chunk("x")}))

	chunks, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids(chunks))
}

func TestLoad_StrictCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("[{"), 0644))

	_, err := New(path, WithStrict(true)).Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrCorruptStore)
}

func TestWrite_FormatKeepsNonASCII(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fr.json")
	c := chunk("é")
	c.Text = "L'école <française>"

	require.NoError(t, New(path).Overwrite(ctx, []core.Chunk{c}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "L'école <française>")
	assert.Contains(t, string(data), "\n  {\n    \"id\"")
}

func TestOverwrite_ReplacesContent(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "o.json"))

	require.NoError(t, s.Append(ctx, []core.Chunk{chunk("a"), chunk("b")}))
	require.NoError(t, s.Overwrite(ctx, []core.Chunk{chunk("z")}))

	chunks, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, ids(chunks))
}

func TestAppend_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "c.json"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(ctx, []core.Chunk{chunk(core.ChunkID("d", i))}))
		}(i)
	}
	wg.Wait()

	chunks, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, chunks, 20)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "r.json")
	s := New(path)

	require.NoError(t, s.Remove())
	require.NoError(t, s.Append(ctx, []core.Chunk{chunk("a")}))
	require.NoError(t, s.Remove())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadChunks(t *testing.T) {
	_, err := LoadChunks(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "ok.json")
	require.NoError(t, New(path).Overwrite(context.Background(), []core.Chunk{chunk("a")}))
	chunks, err := LoadChunks(path)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestOverwrite_FileIsWorldReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out_chunks.json")
	s := New(path)
	require.NoError(t, s.Overwrite(context.Background(), []core.Chunk{chunk("a")}))
	require.NoError(t, s.Append(context.Background(), []core.Chunk{chunk("b")}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, FileMode, info.Mode().Perm())
}
