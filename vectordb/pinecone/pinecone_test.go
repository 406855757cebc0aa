package pinecone

import (
	"context"
	"errors"
	"testing"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/retry"
	"github.com/poiesic/ragpipe/vectordb"
)

type fakeConn struct {
	batches [][]*pinecone.Vector
	failFor map[string]int
	closed  bool
}

func (f *fakeConn) UpsertVectors(_ context.Context, vectors []*pinecone.Vector) (uint32, error) {
	if n, ok := f.failFor[vectors[0].Id]; ok && n > 0 {
		f.failFor[vectors[0].Id] = n - 1
		return 0, errors.New("upsert failed")
	}
	f.batches = append(f.batches, vectors)
	return uint32(len(vectors)), nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

type fakeAPI struct {
	indexes []*pinecone.Index
	listErr error
	conn    *fakeConn
	host    string
	ns      string
}

func (f *fakeAPI) ListIndexes(context.Context) ([]*pinecone.Index, error) {
	return f.indexes, f.listErr
}

func (f *fakeAPI) Connect(host, namespace string) (vectorUpserter, error) {
	f.host = host
	f.ns = namespace
	return f.conn, nil
}

func newFake() *fakeAPI {
	return &fakeAPI{
		indexes: []*pinecone.Index{{Name: "articles", Host: "articles.svc.pinecone.io"}},
		conn:    &fakeConn{failFor: map[string]int{}},
	}
}

func chunksFor(docID string, n int) []core.Chunk {
	out := make([]core.Chunk, n)
	for i := range out {
		out[i] = core.Chunk{
			ID:          core.ChunkID(docID, i+1),
			DocID:       docID,
			ChunkIndex:  i + 1,
			TotalChunks: n,
			Text:        "chunk text",
			Embedding:   []float32{0.1, 0.2, 0.3},
		}
	}
	return out
}

func testInserter(api indexAPI) *Inserter {
	return newInserter(api, Config{Namespace: "ns"}, vectordb.WithRetryPolicy(retry.Once(0)))
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}

func TestInsert_Success(t *testing.T) {
	api := newFake()
	chunks := append(chunksFor("a", 150), chunksFor("b", 3)...)

	res := testInserter(api).Insert(context.Background(), chunks)

	assert.Equal(t, vectordb.StatusSuccess, res.Status)
	assert.Equal(t, 153, res.InsertedCount)
	assert.Equal(t, "articles.svc.pinecone.io", api.host)
	assert.Equal(t, "ns", api.ns)
	assert.True(t, api.conn.closed)

	// batches never mix documents
	require.Len(t, api.conn.batches, 3)
	assert.Len(t, api.conn.batches[0], 100)
	assert.Len(t, api.conn.batches[1], 50)
	assert.Equal(t, "b_1", api.conn.batches[2][0].Id)

	v := api.conn.batches[0][0]
	require.NotNil(t, v.Values)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, *v.Values)
	assert.Equal(t, "chunk text", v.Metadata.Fields["chunk_text"].GetStringValue())
	assert.Equal(t, float64(1), v.Metadata.Fields["chunk_index"].GetNumberValue())
	assert.Nil(t, v.SparseValues)
}

func TestInsert_MissingIndex(t *testing.T) {
	api := newFake()
	api.indexes = []*pinecone.Index{{Name: "other", Host: "h"}}

	res := testInserter(api).Insert(context.Background(), chunksFor("a", 1))
	assert.Equal(t, vectordb.StatusError, res.Status)
	assert.Contains(t, res.Message, "articles")
}

func TestInsert_ListFailure(t *testing.T) {
	api := newFake()
	api.listErr = errors.New("unauthorized")

	res := testInserter(api).Insert(context.Background(), chunksFor("a", 1))
	assert.Equal(t, vectordb.StatusError, res.Status)
}

func TestInsert_PartialData(t *testing.T) {
	api := newFake()
	chunks := chunksFor("a", 4)
	chunks[2].Embedding = nil

	res := testInserter(api).Insert(context.Background(), chunks)
	assert.Equal(t, vectordb.StatusSuccessPartialData, res.Status)
	assert.Equal(t, 3, res.InsertedCount)
}

func TestInsert_RetryThenFail(t *testing.T) {
	api := newFake()
	api.conn.failFor["a_1"] = 2
	api.conn.failFor["b_1"] = 1
	chunks := append(chunksFor("a", 2), chunksFor("b", 2)...)

	res := testInserter(api).Insert(context.Background(), chunks)
	assert.Equal(t, vectordb.StatusPartialError, res.Status)
	assert.Equal(t, 2, res.InsertedCount)
}

func TestInsert_SparseValues(t *testing.T) {
	api := newFake()
	chunks := chunksFor("a", 2)
	chunks[0].SparseEmbedding = &core.SparseVector{Indices: []string{"42", "7"}, Values: []float64{0.5, 0.5}}
	chunks[1].SparseEmbedding = &core.SparseVector{Indices: []string{"x"}, Values: []float64{1}}

	res := testInserter(api).Insert(context.Background(), chunks)
	require.Equal(t, vectordb.StatusSuccess, res.Status)

	batch := api.conn.batches[0]
	require.NotNil(t, batch[0].SparseValues)
	assert.Equal(t, []uint32{42, 7}, batch[0].SparseValues.Indices)
	assert.Equal(t, []float32{0.5, 0.5}, batch[0].SparseValues.Values)
	assert.Nil(t, batch[1].SparseValues)
}

func TestSparseValues(t *testing.T) {
	sv, err := sparseValues(nil)
	assert.NoError(t, err)
	assert.Nil(t, sv)

	_, err = sparseValues(&core.SparseVector{Indices: []string{"1"}, Values: []float64{}})
	assert.Error(t, err)

	_, err = sparseValues(&core.SparseVector{Indices: []string{"99999999999"}, Values: []float64{1}})
	assert.Error(t, err)
}
