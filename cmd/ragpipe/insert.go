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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/poiesic/ragpipe/config"
	"github.com/poiesic/ragpipe/vectordb"
	"github.com/poiesic/ragpipe/vectordb/milvus"
	"github.com/poiesic/ragpipe/vectordb/pgvector"
	"github.com/poiesic/ragpipe/vectordb/pinecone"
	"github.com/poiesic/ragpipe/vectordb/qdrant"
	"github.com/poiesic/ragpipe/vectordb/weaviate"
	"github.com/urfave/cli/v2"
)

// backends lists the accepted --db values.
var backends = []string{"pinecone", "weaviate", "qdrant", "milvus", "pgvector"}

func insertCommand() *cli.Command {
	return &cli.Command{
		Name:   "insert",
		Usage:  "Upsert an embeddings JSON file into a vector database",
		Action: insertAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Chunk JSON file with embeddings",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "db",
				Usage:    "Target database (" + strings.Join(backends, ", ") + ")",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "index",
				Usage: "Pinecone index name",
				Value: pinecone.DefaultIndexName,
			},
			&cli.StringFlag{
				Name:  "namespace",
				Usage: "Pinecone namespace",
			},
			&cli.StringFlag{
				Name:  "class",
				Usage: "Weaviate class name",
				Value: weaviate.DefaultClassName,
			},
			&cli.StringFlag{
				Name:  "tenant",
				Usage: "Weaviate tenant",
				Value: weaviate.DefaultTenant,
			},
			&cli.StringFlag{
				Name:  "collection",
				Usage: "Qdrant or Milvus collection name",
				Value: milvus.DefaultCollection,
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Server URL, address or DSN overriding the credentials file",
			},
			&cli.StringFlag{
				Name:  "table",
				Usage: "pgvector table name",
				Value: pgvector.DefaultTable,
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of vectors per upsert request",
				Value: vectordb.DefaultBatchSize,
			},
		},
	}
}

func insertAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	db := strings.ToLower(c.String("db"))
	if !slices.Contains(backends, db) {
		return fmt.Errorf("unknown database %q: must be one of %s", db, strings.Join(backends, ", "))
	}
	if c.Int("batch-size") <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	env, err := loadEnv(c)
	if err != nil {
		return err
	}

	inserter, err := newInserter(ctx, c, env, db)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", db, err)
	}
	defer inserter.Close()

	result := vectordb.InsertFile(ctx, inserter, c.String("input"))
	if err := printResult(c.App.Writer, result); err != nil {
		return err
	}
	if result.Status == vectordb.StatusError {
		return fmt.Errorf("insert into %s failed: %s", db, result.Message)
	}
	return nil
}

func newInserter(ctx context.Context, c *cli.Context, env *config.Env, db string) (vectordb.Inserter, error) {
	opts := []vectordb.Option{vectordb.WithBatchSize(c.Int("batch-size"))}
	url := c.String("url")

	switch db {
	case "pinecone":
		cfg, err := env.Pinecone(c.String("index"), c.String("namespace"))
		if err != nil {
			return nil, err
		}
		return pinecone.New(cfg, opts...)
	case "weaviate":
		cfg, err := env.Weaviate(url, c.String("class"), c.String("tenant"))
		if err != nil {
			return nil, err
		}
		return weaviate.New(cfg, opts...)
	case "qdrant":
		cfg, err := env.Qdrant(url, c.String("collection"))
		if err != nil {
			return nil, err
		}
		return qdrant.New(cfg, opts...)
	case "milvus":
		cfg, err := env.Milvus(url, c.String("collection"))
		if err != nil {
			return nil, err
		}
		return milvus.New(ctx, cfg, opts...)
	case "pgvector":
		cfg, err := env.PGVector(url, c.String("table"))
		if err != nil {
			return nil, err
		}
		return pgvector.New(ctx, cfg, opts...)
	default:
		return nil, fmt.Errorf("unknown database %q", db)
	}
}

func printResult(w io.Writer, result vectordb.Result) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
