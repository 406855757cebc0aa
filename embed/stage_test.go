package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/poiesic/ragpipe/ai/mock"
	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/retry"
	"github.com/poiesic/ragpipe/storage/badger"
	"github.com/poiesic/ragpipe/storage/jsonfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	mu         sync.Mutex
	overwrites [][]core.Chunk
}

func (r *recordingStore) Append(context.Context, []core.Chunk) error { return nil }

func (r *recordingStore) Overwrite(_ context.Context, chunks []core.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overwrites = append(r.overwrites, append([]core.Chunk(nil), chunks...))
	return nil
}

func (r *recordingStore) Load(context.Context) ([]core.Chunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.overwrites) == 0 {
		return nil, nil
	}
	return r.overwrites[len(r.overwrites)-1], nil
}

func testChunks() []core.Chunk {
	return []core.Chunk{
		{ID: "a_1", DocID: "a", ChunkIndex: 1, TotalChunks: 2, Text: "alpha un"},
		{ID: "b_1", DocID: "b", ChunkIndex: 1, TotalChunks: 1, Text: "beta un"},
		{ID: "a_2", DocID: "a", ChunkIndex: 2, TotalChunks: 2, Text: "alpha deux"},
	}
}

func newTestStage(t *testing.T, embedder *mock.MockEmbedder, opts ...Option) *Stage {
	t.Helper()
	opts = append([]Option{WithRetryPolicy(retry.Once(0))}, opts...)
	s, err := NewStage(embedder, opts...)
	require.NoError(t, err)
	return s
}

func TestNewStage_Validation(t *testing.T) {
	_, err := NewStage(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewStage(mock.NewMockEmbedder(), WithBatchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	_, err = NewStage(mock.NewMockEmbedder(), WithSnapshotEvery(0))
	assert.Error(t, err)
}

func TestRun_GroupsByDocumentInFirstSeenOrder(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.Dim = 4
	out := &recordingStore{}
	s := newTestStage(t, embedder, WithBatchSize(32))

	result, stats, err := s.Run(context.Background(), testChunks(), out, nil)
	require.NoError(t, err)

	ids := []string{}
	for _, c := range result {
		ids = append(ids, c.ID)
		assert.Len(t, c.Embedding, 4)
	}
	assert.Equal(t, []string{"a_1", "a_2", "b_1"}, ids)
	assert.Equal(t, Stats{Total: 3, Documents: 2, Embedded: 3}, stats)

	// one request per document batch
	assert.Equal(t, [][]string{{"alpha un", "alpha deux"}, {"beta un"}}, embedder.Batches())
	require.Len(t, out.overwrites, 1)
	assert.Len(t, out.overwrites[0], 3)
}

func TestRun_BatchSizeSplitsRequests(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	s := newTestStage(t, embedder, WithBatchSize(1))

	_, _, err := s.Run(context.Background(), testChunks(), &recordingStore{}, nil)
	require.NoError(t, err)
	assert.Len(t, embedder.Batches(), 3)
}

func TestRun_FailedBatchYieldsNullEmbeddings(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("upstream unavailable")
	}
	path := filepath.Join(t.TempDir(), "out_chunks_with_embeddings.json")
	s := newTestStage(t, embedder)

	result, stats, err := s.Run(context.Background(), testChunks(), jsonfile.New(path), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Failed)
	// first attempt plus one retry per document batch
	assert.Equal(t, 4, embedder.CallCount())

	for _, c := range result {
		assert.Nil(t, c.Embedding)
		assert.True(t, c.EmbeddingSet)
	}

	loaded, err := jsonfile.LoadChunks(path)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	raw, err := json.Marshal(loaded[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"embedding":null`)
}

func TestRun_RetryRecovers(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	calls := 0
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("timeout")
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 2, 3, 4}
		}
		return out, nil
	}
	s := newTestStage(t, embedder)

	result, stats, err := s.Run(context.Background(), testChunks()[:1], &recordingStore{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Embedded)
	assert.Equal(t, []float32{1, 2, 3, 4}, result[0].Embedding)
}

func TestRun_CountMismatchIsFailure(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}
	s := newTestStage(t, embedder)

	_, stats, err := s.Run(context.Background(), testChunks(), &recordingStore{}, nil)
	require.NoError(t, err)
	// the two-chunk batch fails, the single-chunk batch succeeds
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 1, stats.Embedded)
}

func TestRun_EmptyTextSkipped(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	s := newTestStage(t, embedder)

	chunks := []core.Chunk{{ID: "x_1", DocID: "x", Text: "  "}}
	result, stats, err := s.Run(context.Background(), chunks, &recordingStore{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Nil(t, result[0].Embedding)
	assert.Zero(t, embedder.CallCount())
}

func TestRun_CacheAvoidsSecondCall(t *testing.T) {
	cache, err := badger.NewMemoryEmbeddingCache()
	require.NoError(t, err)
	defer cache.Close()

	embedder := mock.NewMockEmbedder()
	s := newTestStage(t, embedder, WithCache(cache, "text-embedding-3-large"))

	first, _, err := s.Run(context.Background(), testChunks(), &recordingStore{}, nil)
	require.NoError(t, err)
	calls := embedder.CallCount()

	second, stats, err := s.Run(context.Background(), testChunks(), &recordingStore{}, nil)
	require.NoError(t, err)
	assert.Equal(t, calls, embedder.CallCount())
	assert.Equal(t, 3, stats.Cached)
	assert.Equal(t, first[0].Embedding, second[0].Embedding)
}

func TestRun_Snapshots(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	snap := &recordingStore{}
	s := newTestStage(t, embedder, WithBatchSize(2), WithSnapshotEvery(2))

	// processed counts after each document: 2, 3 -> 2%2=0<2 and 3%2=1<2
	_, _, err := s.Run(context.Background(), testChunks(), &recordingStore{}, snap)
	require.NoError(t, err)
	require.Len(t, snap.overwrites, 2)
	assert.Len(t, snap.overwrites[0], 2)
	assert.Len(t, snap.overwrites[1], 3)
}

func TestRun_Progress(t *testing.T) {
	var buf bytes.Buffer
	s := newTestStage(t, mock.NewMockEmbedder(), WithProgress(&buf))

	_, _, err := s.Run(context.Background(), testChunks(), &recordingStore{}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "3/3 chunks")
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := &recordingStore{}
	s := newTestStage(t, mock.NewMockEmbedder())

	_, _, err := s.Run(ctx, testChunks(), out, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.overwrites)
}

func TestRun_RequiresOutput(t *testing.T) {
	s := newTestStage(t, mock.NewMockEmbedder())
	_, _, err := s.Run(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrOutputRequired)
}
