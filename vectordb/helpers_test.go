package vectordb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/retry"
)

func testSettings() Settings {
	return NewSettings("test", WithRetryPolicy(retry.Once(0)))
}

func makeChunks(n int) []core.Chunk {
	chunks := make([]core.Chunk, n)
	for i := range chunks {
		chunks[i] = core.Chunk{
			ID:          core.ChunkID("doc", i+1),
			DocID:       "doc",
			ChunkIndex:  i + 1,
			TotalChunks: n,
			Text:        "text",
			Embedding:   []float32{float32(i), 1},
		}
	}
	return chunks
}

func TestFilterEmbedded(t *testing.T) {
	chunks := makeChunks(3)
	chunks[1].Embedding = nil
	chunks[2].Embedding = []float32{}

	kept := FilterEmbedded(chunks, nil)
	require.Len(t, kept, 1)
	assert.Equal(t, "doc_1", kept[0].ID)
}

func TestFilterDimension(t *testing.T) {
	chunks := makeChunks(3)
	chunks[1].Embedding = []float32{1, 2, 3, 4, 5}

	kept := FilterDimension(chunks, len(chunks[0].Embedding), nil)
	require.Len(t, kept, 2)
	assert.Equal(t, chunks[0].ID, kept[0].ID)
	assert.Equal(t, chunks[2].ID, kept[1].ID)
}

func TestMetadata(t *testing.T) {
	c := core.Chunk{
		ID:          "d_2",
		Type:        "article",
		Title:       "Title",
		Authors:     "Doe John",
		Date:        "2020",
		Filename:    "a.pdf",
		DocID:       "d",
		ChunkIndex:  2,
		TotalChunks: 5,
		Text:        "body",
	}
	md := Metadata(c)
	assert.Equal(t, "body", md["chunk_text"])
	assert.Equal(t, 2, md["chunk_index"])
	assert.Equal(t, 5, md["total_chunks"])
	assert.Equal(t, "2020", md["date"])
	assert.Len(t, md, 9)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", EpochDate},
		{"   ", EpochDate},
		{"2021", "2021-01-01T00:00:00Z"},
		{"2021-3", "2021-03-01T00:00:00Z"},
		{"2021/11", "2021-11-01T00:00:00Z"},
		{"2021-13", EpochDate},
		{"2020-05-17", "2020-05-17T00:00:00Z"},
		{"2020-05-17T10:11:12Z", "2020-05-17T10:11:12Z"},
		{"March 15, 2023", "2023-03-15T00:00:00Z"},
		{"03/15/2023", "2023-03-15T00:00:00Z"},
		{"15/03/2023", "2023-03-15T00:00:00Z"},
		{"31/12/1998", "1998-12-31T00:00:00Z"},
		{"not a date at all", EpochDate},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.in))
		})
	}
}

func TestBatches(t *testing.T) {
	assert.Empty(t, Batches(0, 100))
	assert.Equal(t, [][2]int{{0, 100}, {100, 200}, {200, 250}}, Batches(250, 100))
	assert.Equal(t, [][2]int{{0, 3}}, Batches(3, 0))
}

func TestInsertBatches_RetriesOnce(t *testing.T) {
	chunks := makeChunks(5)
	s := testSettings()
	s.BatchSize = 2

	calls := 0
	inserted, failed := InsertBatches(context.Background(), chunks, s, func(_ context.Context, batch []core.Chunk) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("transient")
		}
		return len(batch), nil
	})

	assert.Equal(t, 5, inserted)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 4, calls)
}

func TestInsertBatches_FailedBatch(t *testing.T) {
	chunks := makeChunks(4)
	s := testSettings()
	s.BatchSize = 2

	inserted, failed := InsertBatches(context.Background(), chunks, s, func(_ context.Context, batch []core.Chunk) (int, error) {
		if batch[0].ID == "doc_1" {
			return 0, errors.New("permanent")
		}
		return len(batch), nil
	})

	assert.Equal(t, 2, inserted)
	assert.Equal(t, 1, failed)
}

func TestInsertBatches_PartialErrorIsNotRetried(t *testing.T) {
	chunks := makeChunks(3)
	s := testSettings()

	calls := 0
	inserted, failed := InsertBatches(context.Background(), chunks, s, func(_ context.Context, batch []core.Chunk) (int, error) {
		calls++
		return 2, &PartialError{Inserted: 2, Failed: 1}
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 1, failed)
}
