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

// Package qdrant inserts chunks into a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/vectordb"
)

const (
	// GRPCPort is the default Qdrant gRPC port.
	GRPCPort = 6334

	restPort = 6333
)

// ErrURLRequired is returned when no Qdrant URL is configured.
var ErrURLRequired = errors.New("qdrant url is required")

// Config selects the Qdrant instance and collection.
type Config struct {
	URL        string
	APIKey     string
	Collection string
}

// pointsAPI is satisfied by *qdrant.Client.
type pointsAPI interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Close() error
}

// Inserter upserts chunks as points of one collection.
type Inserter struct {
	api      pointsAPI
	cfg      Config
	settings vectordb.Settings
}

// New connects to Qdrant. The REST port 6333 of a URL is mapped to the gRPC
// port, and an https URL enables TLS.
func New(cfg Config, opts ...vectordb.Option) (*Inserter, error) {
	if cfg.URL == "" {
		return nil, ErrURLRequired
	}
	if cfg.Collection == "" {
		return nil, errors.New("qdrant collection name is required")
	}
	qc, err := clientConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := qdrant.NewClient(qc)
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	ins := newInserter(client, cfg, opts...)
	ins.settings.Logger.Debug("qdrant client created", "host", qc.Host, "port", qc.Port, "tls", qc.UseTLS)
	return ins, nil
}

func newInserter(a pointsAPI, cfg Config, opts ...vectordb.Option) *Inserter {
	return &Inserter{api: a, cfg: cfg, settings: vectordb.NewSettings("qdrant", opts...)}
}

func clientConfig(cfg Config) (*qdrant.Config, error) {
	raw := cfg.URL
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant url %q: %w", cfg.URL, err)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("invalid qdrant url %q: missing host", cfg.URL)
	}
	port := GRPCPort
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port %q: %w", p, err)
		}
		if n != restPort {
			port = n
		}
	}
	return &qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	}, nil
}

// Insert creates the collection when missing, sized from the first
// embedding, then upserts points in batches.
func (ins *Inserter) Insert(ctx context.Context, chunks []core.Chunk) vectordb.Result {
	logger := ins.settings.Logger
	valid := vectordb.FilterEmbedded(chunks, logger)
	if len(valid) > 0 {
		valid = vectordb.FilterDimension(valid, len(valid[0].Embedding), logger)
	}

	exists, err := ins.api.CollectionExists(ctx, ins.cfg.Collection)
	if err != nil {
		return vectordb.Errorf("failed to check collection %q: %v", ins.cfg.Collection, err)
	}
	if !exists {
		if len(valid) == 0 {
			return vectordb.Errorf("collection %q does not exist and no embedding is available to size it", ins.cfg.Collection)
		}
		dim := len(valid[0].Embedding)
		err := ins.api.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: ins.cfg.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return vectordb.Errorf("failed to create collection %q: %v", ins.cfg.Collection, err)
		}
		logger.Info("collection created", "collection", ins.cfg.Collection, "dim", dim)
	}

	inserted, failed := vectordb.InsertBatches(ctx, valid, ins.settings, ins.upsert)

	res := vectordb.Summarize(len(chunks), inserted, failed)
	logger.Info("qdrant insertion finished", "status", res.Status, "inserted", inserted, "total", len(chunks))
	return res
}

func (ins *Inserter) upsert(ctx context.Context, batch []core.Chunk) (int, error) {
	points := make([]*qdrant.PointStruct, len(batch))
	for i, c := range batch {
		payload := vectordb.Metadata(c)
		payload["original_id"] = c.ID
		payload["text"] = c.Text
		values, err := qdrant.TryValueMap(payload)
		if err != nil {
			return 0, fmt.Errorf("payload for chunk %s: %w", c.ID, err)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(core.StableUUID(c.ID)),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: values,
		}
	}

	res, err := ins.api.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: ins.cfg.Collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return 0, err
	}
	if res.GetStatus() != qdrant.UpdateStatus_Completed {
		return 0, fmt.Errorf("unexpected upsert status %s", res.GetStatus())
	}
	return len(batch), nil
}

// Close closes the gRPC connection.
func (ins *Inserter) Close() error {
	return ins.api.Close()
}
