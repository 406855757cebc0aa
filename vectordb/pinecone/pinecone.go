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

// Package pinecone inserts chunks into a Pinecone index, with optional
// sparse values for hybrid search.
package pinecone

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/vectordb"
)

// DefaultIndexName is used when Config.IndexName is empty.
const DefaultIndexName = "articles"

// ErrAPIKeyRequired is returned when no API key is configured.
var ErrAPIKeyRequired = errors.New("pinecone api key is required")

// Config selects the Pinecone project, index and namespace.
type Config struct {
	APIKey    string
	IndexName string
	Namespace string
}

// indexAPI is the subset of the Pinecone control and data planes used here.
type indexAPI interface {
	ListIndexes(ctx context.Context) ([]*pinecone.Index, error)
	Connect(host, namespace string) (vectorUpserter, error)
}

type vectorUpserter interface {
	UpsertVectors(ctx context.Context, vectors []*pinecone.Vector) (uint32, error)
	Close() error
}

type sdkClient struct {
	*pinecone.Client
}

func (c sdkClient) Connect(host, namespace string) (vectorUpserter, error) {
	return c.Index(pinecone.NewIndexConnParams{Host: host, Namespace: namespace})
}

// Inserter upserts chunks into one Pinecone index.
type Inserter struct {
	api      indexAPI
	cfg      Config
	settings vectordb.Settings
}

// New creates a Pinecone inserter. The index itself is resolved on Insert.
func New(cfg Config, opts ...vectordb.Option) (*Inserter, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}
	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}
	return newInserter(sdkClient{pc}, cfg, opts...), nil
}

func newInserter(api indexAPI, cfg Config, opts ...vectordb.Option) *Inserter {
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultIndexName
	}
	return &Inserter{
		api:      api,
		cfg:      cfg,
		settings: vectordb.NewSettings("pinecone", opts...),
	}
}

// Insert upserts chunks document by document, in batches within each
// document. The index must already exist.
func (ins *Inserter) Insert(ctx context.Context, chunks []core.Chunk) vectordb.Result {
	logger := ins.settings.Logger

	indexes, err := ins.api.ListIndexes(ctx)
	if err != nil {
		return vectordb.Errorf("failed to list pinecone indexes: %v", err)
	}
	var host string
	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		if idx == nil {
			continue
		}
		names = append(names, idx.Name)
		if idx.Name == ins.cfg.IndexName {
			host = idx.Host
		}
	}
	if host == "" {
		return vectordb.Errorf("index %q does not exist, create it first (available: %v)", ins.cfg.IndexName, names)
	}

	conn, err := ins.api.Connect(host, ins.cfg.Namespace)
	if err != nil {
		return vectordb.Errorf("failed to connect to index %q: %v", ins.cfg.IndexName, err)
	}
	defer conn.Close()
	logger.Info("connected to pinecone index", "index", ins.cfg.IndexName, "namespace", ins.cfg.Namespace)

	var inserted, failed int
	for _, group := range core.GroupByDocument(chunks) {
		valid := vectordb.FilterEmbedded(group.Chunks, logger)
		logger.Debug("inserting document", "docID", group.DocID, "chunks", len(group.Chunks), "valid", len(valid))
		n, f := vectordb.InsertBatches(ctx, valid, ins.settings, func(ctx context.Context, batch []core.Chunk) (int, error) {
			vectors, err := ins.vectors(batch)
			if err != nil {
				return 0, err
			}
			count, err := conn.UpsertVectors(ctx, vectors)
			if err != nil {
				return 0, err
			}
			return int(count), nil
		})
		inserted += n
		failed += f
	}

	res := vectordb.Summarize(len(chunks), inserted, failed)
	logger.Info("pinecone insertion finished", "status", res.Status, "inserted", inserted, "total", len(chunks))
	return res
}

func (ins *Inserter) vectors(batch []core.Chunk) ([]*pinecone.Vector, error) {
	out := make([]*pinecone.Vector, 0, len(batch))
	for _, c := range batch {
		md, err := structpb.NewStruct(vectordb.Metadata(c))
		if err != nil {
			return nil, fmt.Errorf("metadata for chunk %s: %w", c.ID, err)
		}
		values := c.Embedding
		v := &pinecone.Vector{
			Id:       c.ID,
			Values:   &values,
			Metadata: md,
		}
		if sv, err := sparseValues(c.SparseEmbedding); err != nil {
			ins.settings.Logger.Warn("malformed sparse embedding, sparse values ignored", "chunkID", c.ID, "err", err)
		} else {
			v.SparseValues = sv
		}
		out = append(out, v)
	}
	return out, nil
}

// sparseValues converts the string indices of a sparse vector. A nil or
// empty vector yields nil.
func sparseValues(sv *core.SparseVector) (*pinecone.SparseValues, error) {
	if sv.Empty() {
		return nil, nil
	}
	if len(sv.Indices) != len(sv.Values) {
		return nil, fmt.Errorf("%d indices for %d values", len(sv.Indices), len(sv.Values))
	}
	out := &pinecone.SparseValues{
		Indices: make([]uint32, len(sv.Indices)),
		Values:  make([]float32, len(sv.Values)),
	}
	for i, s := range sv.Indices {
		idx, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, err
		}
		out.Indices[i] = uint32(idx)
		out.Values[i] = float32(sv.Values[i])
	}
	return out, nil
}

// Close is a no-op; index connections are closed after each Insert.
func (ins *Inserter) Close() error {
	return nil
}
