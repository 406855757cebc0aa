// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package milvus inserts chunks into a Milvus collection using the v2 Go SDK.
package milvus

import (
	"context"
	"errors"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/vectordb"
)

const (
	// DefaultCollection is used when Config.Collection is empty.
	DefaultCollection = "articles"

	idMaxLength   = 512
	textMaxLength = 65535
	metaMaxLength = 4096

	// nlist of the IVF_FLAT index.
	ivfClusters = 128
)

// ErrAddressRequired is returned when no Milvus address is configured.
var ErrAddressRequired = errors.New("milvus address is required")

// Config selects the Milvus server, database and collection.
type Config struct {
	Address    string
	Username   string
	Password   string
	DBName     string
	Collection string
}

type collectionAPI interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, name string, schema *entity.Schema) error
	Upsert(ctx context.Context, name string, columns ...column.Column) (int64, error)
	Flush(ctx context.Context, name string) error
	Close(ctx context.Context) error
}

type sdkClient struct {
	c *milvusclient.Client
}

func (s sdkClient) HasCollection(ctx context.Context, name string) (bool, error) {
	return s.c.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
}

// CreateCollection creates the collection, builds the vector index and
// loads the collection.
func (s sdkClient) CreateCollection(ctx context.Context, name string, schema *entity.Schema) error {
	if err := s.c.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, schema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(entity.COSINE, ivfClusters)
	idxTask, err := s.c.CreateIndex(ctx, milvusclient.NewCreateIndexOption(name, "embedding", idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := idxTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	loadTask, err := s.c.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

func (s sdkClient) Upsert(ctx context.Context, name string, columns ...column.Column) (int64, error) {
	res, err := s.c.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(name, columns...))
	if err != nil {
		return 0, err
	}
	return res.UpsertCount, nil
}

func (s sdkClient) Flush(ctx context.Context, name string) error {
	task, err := s.c.Flush(ctx, milvusclient.NewFlushOption(name))
	if err != nil {
		return err
	}
	return task.Await(ctx)
}

func (s sdkClient) Close(ctx context.Context) error {
	return s.c.Close(ctx)
}

// Inserter upserts chunks as rows of one collection.
type Inserter struct {
	api      collectionAPI
	cfg      Config
	settings vectordb.Settings
}

// New connects to Milvus.
func New(ctx context.Context, cfg Config, opts ...vectordb.Option) (*Inserter, error) {
	if cfg.Address == "" {
		return nil, ErrAddressRequired
	}
	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}
	return newInserter(sdkClient{c}, cfg, opts...), nil
}

func newInserter(a collectionAPI, cfg Config, opts ...vectordb.Option) *Inserter {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	return &Inserter{api: a, cfg: cfg, settings: vectordb.NewSettings("milvus", opts...)}
}

// Schema describes the collection layout for vectors of dim dimensions.
func Schema(name string, dim int) *entity.Schema {
	varchar := func(field string, maxLen int64) *entity.Field {
		return entity.NewField().WithName(field).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxLen)
	}
	return entity.NewSchema().
		WithName(name).
		WithDescription("document chunks").
		WithField(varchar("id", idMaxLength).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName("embedding").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim))).
		WithField(varchar("text", textMaxLength)).
		WithField(varchar("title", metaMaxLength)).
		WithField(varchar("authors", metaMaxLength)).
		WithField(varchar("date", 32)).
		WithField(varchar("type", 256)).
		WithField(varchar("filename", metaMaxLength)).
		WithField(varchar("doc_id", idMaxLength)).
		WithField(entity.NewField().WithName("chunk_index").WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName("total_chunks").WithDataType(entity.FieldTypeInt64))
}

// Insert creates the collection when missing, upserts the chunks in batches
// and flushes so the rows are visible immediately.
func (ins *Inserter) Insert(ctx context.Context, chunks []core.Chunk) vectordb.Result {
	logger := ins.settings.Logger
	valid := vectordb.FilterEmbedded(chunks, logger)
	if len(valid) > 0 {
		valid = vectordb.FilterDimension(valid, len(valid[0].Embedding), logger)
	}

	exists, err := ins.api.HasCollection(ctx, ins.cfg.Collection)
	if err != nil {
		return vectordb.Errorf("failed to check collection %q: %v", ins.cfg.Collection, err)
	}
	if !exists {
		if len(valid) == 0 {
			return vectordb.Errorf("collection %q does not exist and no embedding is available to size it", ins.cfg.Collection)
		}
		dim := len(valid[0].Embedding)
		if err := ins.api.CreateCollection(ctx, ins.cfg.Collection, Schema(ins.cfg.Collection, dim)); err != nil {
			return vectordb.Errorf("collection %q: %v", ins.cfg.Collection, err)
		}
		logger.Info("collection created", "collection", ins.cfg.Collection, "dim", dim)
	}

	inserted, failed := vectordb.InsertBatches(ctx, valid, ins.settings, func(ctx context.Context, batch []core.Chunk) (int, error) {
		n, err := ins.api.Upsert(ctx, ins.cfg.Collection, columns(batch)...)
		return int(n), err
	})
	if inserted > 0 {
		if err := ins.api.Flush(ctx, ins.cfg.Collection); err != nil {
			logger.Warn("flush failed", "collection", ins.cfg.Collection, "err", err)
		}
	}

	res := vectordb.Summarize(len(chunks), inserted, failed)
	logger.Info("milvus insertion finished", "status", res.Status, "inserted", inserted, "total", len(chunks))
	return res
}

func columns(batch []core.Chunk) []column.Column {
	n := len(batch)
	var (
		ids       = make([]string, n)
		vectors   = make([][]float32, n)
		texts     = make([]string, n)
		titles    = make([]string, n)
		authors   = make([]string, n)
		dates     = make([]string, n)
		types     = make([]string, n)
		filenames = make([]string, n)
		docIDs    = make([]string, n)
		indexes   = make([]int64, n)
		totals    = make([]int64, n)
	)
	for i, c := range batch {
		ids[i] = c.ID
		vectors[i] = c.Embedding
		texts[i] = c.Text
		titles[i] = c.Title
		authors[i] = c.Authors
		dates[i] = vectordb.NormalizeDate(c.Date)
		types[i] = c.Type
		filenames[i] = c.Filename
		docIDs[i] = c.DocID
		indexes[i] = int64(c.ChunkIndex)
		totals[i] = int64(c.TotalChunks)
	}
	return []column.Column{
		column.NewColumnVarChar("id", ids),
		column.NewColumnFloatVector("embedding", len(vectors[0]), vectors),
		column.NewColumnVarChar("text", texts),
		column.NewColumnVarChar("title", titles),
		column.NewColumnVarChar("authors", authors),
		column.NewColumnVarChar("date", dates),
		column.NewColumnVarChar("type", types),
		column.NewColumnVarChar("filename", filenames),
		column.NewColumnVarChar("doc_id", docIDs),
		column.NewColumnInt64("chunk_index", indexes),
		column.NewColumnInt64("total_chunks", totals),
	}
}

// Close closes the client connection.
func (ins *Inserter) Close() error {
	return ins.api.Close(context.Background())
}
