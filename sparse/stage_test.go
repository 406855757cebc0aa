package sparse

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/storage/jsonfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStage_RequiresAnalyzer(t *testing.T) {
	_, err := NewStage(nil)
	assert.ErrorIs(t, err, ErrAnalyzerRequired)
}

func TestStageRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out_chunks_with_embeddings_sparse.json")
	s, err := NewStage(&fakeAnalyzer{})
	require.NoError(t, err)

	chunks := []core.Chunk{
		{ID: "d_1", DocID: "d", ChunkIndex: 1, TotalChunks: 3, Text: "archive corpus"},
		{ID: "d_2", DocID: "d", ChunkIndex: 2, TotalChunks: 3, Text: ""},
		{ID: "d_3", DocID: "d", ChunkIndex: 3, TotalChunks: 3, Text: "_le ."},
	}
	chunks[0].SetEmbedding([]float32{1, 2, 3, 4})

	out, stats, err := s.Run(context.Background(), chunks, jsonfile.New(path))
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Empty: 2}, stats)
	assert.Equal(t, 2, out[0].SparseEmbedding.Len())
	assert.True(t, out[1].SparseEmbedding.Empty())
	assert.True(t, out[2].SparseEmbedding.Empty())

	loaded, err := jsonfile.LoadChunks(path)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, []float32{1, 2, 3, 4}, loaded[0].Embedding)
	require.NotNil(t, loaded[1].SparseEmbedding)
	assert.Equal(t, []string{}, loaded[1].SparseEmbedding.Indices)
}

func TestStageRun_AnalyzerFailureGivesEmptyVector(t *testing.T) {
	s, err := NewStage(&fakeAnalyzer{err: errors.New("model crashed")})
	require.NoError(t, err)

	out, stats, err := s.Run(context.Background(), []core.Chunk{{ID: "a", Text: "texte"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.True(t, out[0].SparseEmbedding.Empty())
}
