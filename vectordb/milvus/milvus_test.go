package milvus

import (
	"context"
	"errors"
	"testing"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/retry"
	"github.com/poiesic/ragpipe/vectordb"
)

type fakeClient struct {
	exists    bool
	schema    *entity.Schema
	upserts   [][]column.Column
	upsertErr error
	flushes   int
}

func (f *fakeClient) HasCollection(context.Context, string) (bool, error) {
	return f.exists, nil
}

func (f *fakeClient) CreateCollection(_ context.Context, _ string, schema *entity.Schema) error {
	f.schema = schema
	f.exists = true
	return nil
}

func (f *fakeClient) Upsert(_ context.Context, _ string, cols ...column.Column) (int64, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserts = append(f.upserts, cols)
	return int64(cols[0].Len()), nil
}

func (f *fakeClient) Flush(context.Context, string) error {
	f.flushes++
	return nil
}

func (f *fakeClient) Close(context.Context) error { return nil }

func chunks(n int) []core.Chunk {
	out := make([]core.Chunk, n)
	for i := range out {
		out[i] = core.Chunk{
			ID:          core.ChunkID("doc", i+1),
			DocID:       "doc",
			Date:        "2001/2",
			ChunkIndex:  i + 1,
			TotalChunks: n,
			Text:        "body",
			Embedding:   []float32{0.5, 0.5, 0.5},
		}
	}
	return out
}

func testInserter(f *fakeClient) *Inserter {
	return newInserter(f, Config{}, vectordb.WithRetryPolicy(retry.Once(0)))
}

func TestNew_RequiresAddress(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrAddressRequired)
}

func TestSchema(t *testing.T) {
	s := Schema("articles", 3)
	require.Len(t, s.Fields, 11)
	assert.Equal(t, "id", s.Fields[0].Name)
	assert.True(t, s.Fields[0].PrimaryKey)
	assert.Equal(t, entity.FieldTypeFloatVector, s.Fields[1].DataType)
}

func TestInsert_CreatesCollectionAndFlushes(t *testing.T) {
	f := &fakeClient{}
	res := testInserter(f).Insert(context.Background(), chunks(150))

	assert.Equal(t, vectordb.StatusSuccess, res.Status)
	assert.Equal(t, 150, res.InsertedCount)
	require.NotNil(t, f.schema)
	assert.Equal(t, DefaultCollection, f.schema.CollectionName)
	require.Len(t, f.upserts, 2)
	assert.Equal(t, 100, f.upserts[0][0].Len())
	assert.Equal(t, 1, f.flushes)
}

func TestColumns(t *testing.T) {
	cols := columns(chunks(2))
	require.Len(t, cols, 11)

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name()
		assert.Equal(t, 2, c.Len())
	}
	assert.Equal(t, []string{
		"id", "embedding", "text", "title", "authors", "date",
		"type", "filename", "doc_id", "chunk_index", "total_chunks",
	}, names)

	date, err := cols[5].GetAsString(0)
	require.NoError(t, err)
	assert.Equal(t, "2001-02-01T00:00:00Z", date)
}

func TestInsert_UpsertFailure(t *testing.T) {
	f := &fakeClient{exists: true, upsertErr: errors.New("down")}
	res := testInserter(f).Insert(context.Background(), chunks(1))

	assert.Equal(t, vectordb.StatusPartialError, res.Status)
	assert.Equal(t, 0, f.flushes)
}

func TestInsert_SkipsMismatchedDimensions(t *testing.T) {
	f := &fakeClient{}
	in := chunks(3)
	in[1].Embedding = []float32{0.1, 0.2}

	res := testInserter(f).Insert(context.Background(), in)

	assert.Equal(t, 2, res.InsertedCount)
	assert.Equal(t, vectordb.StatusSuccessPartialData, res.Status)
	require.Len(t, f.upserts, 1)
	assert.Equal(t, 2, f.upserts[0][1].Len())
}
