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

package sparse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/storage"
)

// Stats summarizes a Run.
type Stats struct {
	Total  int
	Empty  int
	Failed int
}

// Stage attaches sparse vectors to chunks.
type Stage struct {
	analyzer Analyzer
	logger   *slog.Logger
}

// Option configures a Stage.
type Option func(*Stage)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewStage(analyzer Analyzer, opts ...Option) (*Stage, error) {
	if analyzer == nil {
		return nil, ErrAnalyzerRequired
	}
	s := &Stage{analyzer: analyzer, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sparse-embedding")
	return s, nil
}

// Run sets SparseEmbedding on every chunk, sequentially, and overwrites out
// with the result when out is not nil. A chunk whose analysis fails gets an
// empty vector.
func (s *Stage) Run(ctx context.Context, chunks []core.Chunk, out storage.ChunkStore) ([]core.Chunk, Stats, error) {
	stats := Stats{Total: len(chunks)}
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		c := &chunks[i]
		if c.Text == "" {
			s.logger.Debug("chunk has empty text, sparse vector is empty", "id", c.ID)
		}

		vec, err := Extract(ctx, s.analyzer, c.Text)
		if err != nil {
			s.logger.Warn("sparse extraction failed", "id", c.ID, "err", err)
			vec = core.EmptySparseVector()
			stats.Failed++
		}
		if vec.Empty() {
			stats.Empty++
		}
		c.SparseEmbedding = vec
	}

	if out != nil {
		if err := out.Overwrite(ctx, chunks); err != nil {
			return nil, stats, fmt.Errorf("failed to save sparse embeddings: %w", err)
		}
	}
	s.logger.Info("sparse embeddings complete", "total", stats.Total, "empty", stats.Empty, "failed", stats.Failed)
	return chunks, stats, nil
}
