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

// Package pgvector inserts chunks into a PostgreSQL table with a pgvector
// embedding column.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/vectordb"
)

// DefaultTable is used when Config.Table is empty.
const DefaultTable = "document_chunks"

var (
	// ErrDSNRequired is returned when no connection string is configured.
	ErrDSNRequired = errors.New("postgres dsn is required")

	// ErrInvalidTable is returned for table names that are not plain identifiers.
	ErrInvalidTable = errors.New("invalid table name")

	identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Config selects the database and table.
type Config struct {
	DSN   string
	Table string
}

// Inserter upserts chunks as table rows.
type Inserter struct {
	db       *sql.DB
	table    string
	settings vectordb.Settings
}

// New opens the database through the pgx stdlib driver and pings it.
func New(ctx context.Context, cfg Config, opts ...vectordb.Option) (*Inserter, error) {
	if cfg.DSN == "" {
		return nil, ErrDSNRequired
	}
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	ins, err := NewFromDB(db, cfg.Table, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return ins, nil
}

// NewFromDB wraps an open database. Close closes db.
func NewFromDB(db *sql.DB, table string, opts ...vectordb.Option) (*Inserter, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &Inserter{db: db, table: table, settings: vectordb.NewSettings("pgvector", opts...)}, nil
}

func (ins *Inserter) ensureSchema(ctx context.Context, dim int) error {
	if _, err := ins.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create extension: %w", err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		total_chunks INTEGER NOT NULL,
		title TEXT,
		authors TEXT,
		date TIMESTAMPTZ,
		type TEXT,
		filename TEXT,
		text TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, ins.table, dim)
	if _, err := ins.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Insert creates the table when missing and upserts each batch in one
// transaction.
func (ins *Inserter) Insert(ctx context.Context, chunks []core.Chunk) vectordb.Result {
	logger := ins.settings.Logger
	valid := vectordb.FilterEmbedded(chunks, logger)

	if len(valid) > 0 {
		valid = vectordb.FilterDimension(valid, len(valid[0].Embedding), logger)
		if err := ins.ensureSchema(ctx, len(valid[0].Embedding)); err != nil {
			return vectordb.Errorf("failed to prepare table %s: %v", ins.table, err)
		}
	}

	inserted, failed := vectordb.InsertBatches(ctx, valid, ins.settings, ins.upsert)

	res := vectordb.Summarize(len(chunks), inserted, failed)
	logger.Info("pgvector insertion finished", "status", res.Status, "inserted", inserted, "total", len(chunks))
	return res
}

func (ins *Inserter) upsert(ctx context.Context, batch []core.Chunk) (int, error) {
	tx, err := ins.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	q := fmt.Sprintf(`
		INSERT INTO %s
			(id, doc_id, chunk_index, total_chunks, title, authors, date, type, filename, text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			doc_id = EXCLUDED.doc_id,
			chunk_index = EXCLUDED.chunk_index,
			total_chunks = EXCLUDED.total_chunks,
			title = EXCLUDED.title,
			authors = EXCLUDED.authors,
			date = EXCLUDED.date,
			type = EXCLUDED.type,
			filename = EXCLUDED.filename,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding
	`, ins.table)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for _, c := range batch {
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.DocID, c.ChunkIndex, c.TotalChunks, c.Title, c.Authors,
			vectordb.NormalizeDate(c.Date), c.Type, c.Filename, c.Text,
			pgvector.NewVector(c.Embedding),
		); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("chunk %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(batch), nil
}

// Close closes the database.
func (ins *Inserter) Close() error {
	return ins.db.Close()
}
