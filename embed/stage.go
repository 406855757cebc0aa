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

package embed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/retry"
	"github.com/poiesic/ragpipe/storage"
)

const (
	DefaultBatchSize     = 32
	DefaultSnapshotEvery = 1000
)

// Stats summarizes a Run.
type Stats struct {
	Total     int
	Documents int
	Embedded  int
	Cached    int
	Failed    int
	Skipped   int
}

// Stage computes dense embeddings for chunk collections.
type Stage struct {
	embedder      ai.Embedder
	batchSize     int
	policy        retry.Policy
	cache         storage.EmbeddingCache
	model         string
	snapshotEvery int
	progress      io.Writer
	logger        *slog.Logger
}

// Option configures a Stage.
type Option func(*Stage) error

// WithBatchSize sets the number of texts per embedding request. Default is 32.
func WithBatchSize(size int) Option {
	return func(s *Stage) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		s.batchSize = size
		return nil
	}
}

// WithRetryPolicy sets the per-batch retry policy. Default is retry.Default().
func WithRetryPolicy(policy retry.Policy) Option {
	return func(s *Stage) error {
		if policy.MaxAttempts < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		s.policy = policy
		return nil
	}
}

// WithCache enables the embedding cache. model namespaces the cache keys.
func WithCache(cache storage.EmbeddingCache, model string) Option {
	return func(s *Stage) error {
		s.cache = cache
		s.model = model
		return nil
	}
}

// WithSnapshotEvery sets the approximate number of chunks between
// intermediate snapshots. Default is 1000.
func WithSnapshotEvery(n int) Option {
	return func(s *Stage) error {
		if n < 1 {
			return fmt.Errorf("snapshot interval must be greater than 0, got %d", n)
		}
		s.snapshotEvery = n
		return nil
	}
}

// WithProgress writes a progress line to w.
func WithProgress(w io.Writer) Option {
	return func(s *Stage) error {
		s.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stage) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewStage creates a dense embedding stage.
func NewStage(embedder ai.Embedder, opts ...Option) (*Stage, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	s := &Stage{
		embedder:      embedder,
		batchSize:     DefaultBatchSize,
		policy:        retry.Default(),
		snapshotEvery: DefaultSnapshotEvery,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "dense-embedding")
	return s, nil
}

// Run embeds chunks and overwrites out with the result, ordered by document
// in first-seen order. When snapshot is not nil the partial collection is
// written to it whenever the processed count crosses a multiple of the
// snapshot interval.
func (s *Stage) Run(ctx context.Context, chunks []core.Chunk, out, snapshot storage.ChunkStore) ([]core.Chunk, Stats, error) {
	if out == nil {
		return nil, Stats{}, ErrOutputRequired
	}

	stats := Stats{Total: len(chunks)}
	groups := core.GroupByDocument(chunks)
	stats.Documents = len(groups)

	var tracker *ProgressTracker
	if s.progress != nil {
		tracker = NewProgressTracker(s.progress, "Dense embeddings", len(chunks), s.batchSize)
		tracker.Start()
	}

	result := make([]core.Chunk, 0, len(chunks))
	processed := 0
	for _, group := range groups {
		s.logger.Debug("embedding document", "docID", group.DocID, "chunks", len(group.Chunks))
		for start := 0; start < len(group.Chunks); start += s.batchSize {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
			batch := group.Chunks[start:min(start+s.batchSize, len(group.Chunks))]
			s.embedBatch(ctx, batch, &stats)
			if tracker != nil {
				tracker.Increment(len(batch))
			}
		}

		result = append(result, group.Chunks...)
		processed += len(group.Chunks)

		if snapshot != nil && processed > 0 && processed%s.snapshotEvery < s.batchSize {
			if err := snapshot.Overwrite(ctx, result); err != nil {
				s.logger.Warn("failed to write embedding snapshot", "err", err)
			} else {
				s.logger.Info("embedding snapshot saved", "chunks", len(result))
			}
		}
	}
	if tracker != nil {
		tracker.Finish()
	}

	if err := out.Overwrite(ctx, result); err != nil {
		return nil, stats, fmt.Errorf("failed to save embeddings: %w", err)
	}
	s.logger.Info("dense embeddings complete",
		"total", stats.Total,
		"embedded", stats.Embedded,
		"cached", stats.Cached,
		"failed", stats.Failed,
		"skipped", stats.Skipped)
	return result, stats, nil
}

// embedBatch sets the embedding of every chunk in batch, leaving nil on failure.
func (s *Stage) embedBatch(ctx context.Context, batch []core.Chunk, stats *Stats) {
	var (
		pending []int
		texts   []string
	)
	for i := range batch {
		batch[i].SetEmbedding(nil)
		text := batch[i].Text
		if strings.TrimSpace(text) == "" {
			s.logger.Warn("chunk has empty text, no embedding", "id", batch[i].ID)
			stats.Skipped++
			continue
		}
		if vec, ok := s.cached(ctx, text); ok {
			batch[i].SetEmbedding(vec)
			stats.Cached++
			continue
		}
		pending = append(pending, i)
		texts = append(texts, text)
	}
	if len(pending) == 0 {
		return
	}

	var embeddings [][]float32
	err := s.policy.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			s.logger.Info("retrying embedding batch", "size", len(texts), "attempt", attempt)
		}
		var err error
		embeddings, err = s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("%w: expected %d, got %d", ai.ErrEmbeddingMismatch, len(texts), len(embeddings))
		}
		return nil
	})
	if err != nil {
		s.logger.Error("embedding batch failed after retry", "size", len(texts), "err", err)
		for _, i := range pending {
			s.logger.Warn("embedding not generated", "id", batch[i].ID)
		}
		stats.Failed += len(pending)
		return
	}

	for j, i := range pending {
		vec := embeddings[j]
		if len(vec) == 0 {
			s.logger.Warn("embedding not generated", "id", batch[i].ID)
			stats.Failed++
			continue
		}
		batch[i].SetEmbedding(vec)
		stats.Embedded++
		s.store(ctx, texts[j], vec)
	}
}

func (s *Stage) cached(ctx context.Context, text string) ([]float32, bool) {
	if s.cache == nil {
		return nil, false
	}
	vec, ok, err := s.cache.Get(ctx, core.ContentKey(s.model, text))
	if err != nil {
		s.logger.Warn("embedding cache read failed", "err", err)
		return nil, false
	}
	if !ok || len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

func (s *Stage) store(ctx context.Context, text string, vec []float32) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, core.ContentKey(s.model, text), vec); err != nil {
		s.logger.Warn("embedding cache write failed", "err", err)
	}
}
