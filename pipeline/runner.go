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

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/embed"
	"github.com/poiesic/ragpipe/ingestion"
	"github.com/poiesic/ragpipe/sparse"
	"github.com/poiesic/ragpipe/storage"
	"github.com/poiesic/ragpipe/storage/jsonfile"
)

// Chunker is the initial stage bound to a chunk store.
type Chunker interface {
	Run(ctx context.Context, docs []core.Document) (ingestion.Stats, error)
	Release()
}

// ChunkerFactory builds a Chunker that appends to store.
type ChunkerFactory func(store storage.ChunkStore) (Chunker, error)

// DenseStage computes dense embeddings. *embed.Stage satisfies it.
type DenseStage interface {
	Run(ctx context.Context, chunks []core.Chunk, out, snapshot storage.ChunkStore) ([]core.Chunk, embed.Stats, error)
}

// SparseStage computes sparse vectors. *sparse.Stage satisfies it.
type SparseStage interface {
	Run(ctx context.Context, chunks []core.Chunk, out storage.ChunkStore) ([]core.Chunk, sparse.Stats, error)
}

// Report describes a completed run.
type Report struct {
	Phase    Phase
	Files    Files
	Initial  *ingestion.Stats
	Dense    *embed.Stats
	Sparse   *sparse.Stats
	Duration time.Duration
}

// Runner executes phases. Only the stages a phase needs must be configured.
type Runner struct {
	newChunker ChunkerFactory
	dense      DenseStage
	sparse     SparseStage
	csvOptions ingestion.CSVOptions
	logger     *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithChunker sets the initial stage factory.
func WithChunker(factory ChunkerFactory) Option {
	return func(r *Runner) {
		r.newChunker = factory
	}
}

// WithDenseStage sets the dense embedding stage.
func WithDenseStage(stage DenseStage) Option {
	return func(r *Runner) {
		r.dense = stage
	}
}

// WithSparseStage sets the sparse embedding stage.
func WithSparseStage(stage SparseStage) Option {
	return func(r *Runner) {
		r.sparse = stage
	}
}

// WithCSVOptions sets how the initial phase reads its input.
// Default is ingestion.DefaultCSVOptions().
func WithCSVOptions(opts ingestion.CSVOptions) Option {
	return func(r *Runner) {
		r.csvOptions = opts
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		csvOptions: ingestion.DefaultCSVOptions(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "pipeline")
	return r
}

// Run executes phase on input and writes its files to outputDir. With
// PhaseAll each phase reads the previous phase's output instead of input.
func (r *Runner) Run(ctx context.Context, phase Phase, input, outputDir string) (Report, error) {
	start := time.Now()
	if _, err := ParsePhase(string(phase)); err != nil {
		return Report{}, err
	}
	if err := r.checkStages(phase); err != nil {
		return Report{}, err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return Report{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	files := Paths(outputDir, phase, input)
	report := Report{Phase: phase, Files: files}
	r.logger.Info("starting run",
		"phase", phase,
		"input", input,
		"output_dir", outputDir,
		"chunks", files.Chunks,
		"dense", files.Dense,
		"sparse", files.Sparse)

	if phase.runsInitial() {
		stats, err := r.runInitial(ctx, input, files)
		if err != nil {
			return report, err
		}
		report.Initial = &stats
	}

	if phase.runsDense() {
		src := input
		if phase == PhaseAll {
			src = files.Chunks
		}
		stats, err := r.runDense(ctx, src, files)
		if err != nil {
			return report, err
		}
		report.Dense = &stats
	}

	if phase.runsSparse() {
		src := input
		if phase == PhaseAll {
			src = files.Dense
		}
		stats, err := r.runSparse(ctx, src, files)
		if err != nil {
			return report, err
		}
		report.Sparse = &stats
	}

	report.Duration = time.Since(start)
	r.logger.Info("run complete", "phase", phase, "duration", report.Duration)
	return report, nil
}

func (r *Runner) checkStages(phase Phase) error {
	if phase.runsInitial() && r.newChunker == nil {
		return fmt.Errorf("%w: initial", ErrStageNotConfigured)
	}
	if phase.runsDense() && r.dense == nil {
		return fmt.Errorf("%w: dense", ErrStageNotConfigured)
	}
	if phase.runsSparse() && r.sparse == nil {
		return fmt.Errorf("%w: sparse", ErrStageNotConfigured)
	}
	return nil
}

func (r *Runner) runInitial(ctx context.Context, input string, files Files) (ingestion.Stats, error) {
	if !hasExt(input, ".csv") {
		return ingestion.Stats{}, fmt.Errorf("%w: initial phase expects a .csv file, got %s", ErrInputFormat, input)
	}
	docs, err := ingestion.ReadCSV(input, r.csvOptions)
	if err != nil {
		return ingestion.Stats{}, err
	}
	r.logger.Info("loaded documents", "count", len(docs), "input", input)

	store := jsonfile.New(files.Chunks, jsonfile.WithLogger(r.logger))
	if err := store.Remove(); err != nil {
		r.logger.Warn("could not remove stale chunk file, new chunks may be appended to it", "path", files.Chunks, "err", err)
	}

	chunker, err := r.newChunker(store)
	if err != nil {
		return ingestion.Stats{}, err
	}
	defer chunker.Release()

	stats, err := chunker.Run(ctx, docs)
	if err != nil {
		return stats, err
	}
	r.logger.Info("initial phase done",
		"documents", stats.Documents,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"chunks", stats.Chunks,
		"recode_fallbacks", stats.RecodeFallbacks)
	return stats, requireOutput(files.Chunks)
}

func (r *Runner) runDense(ctx context.Context, input string, files Files) (embed.Stats, error) {
	chunks, err := loadPhaseInput(input)
	if err != nil {
		return embed.Stats{}, err
	}
	r.logger.Info("loaded chunks for dense embedding", "count", len(chunks), "input", input)

	out := jsonfile.New(files.Dense, jsonfile.WithLogger(r.logger))
	snapshot := jsonfile.New(files.DenseSnapshot, jsonfile.WithLogger(r.logger))
	_, stats, err := r.dense.Run(ctx, chunks, out, snapshot)
	if err != nil {
		return stats, err
	}
	r.logger.Info("dense phase done",
		"total", stats.Total,
		"embedded", stats.Embedded,
		"cached", stats.Cached,
		"failed", stats.Failed,
		"skipped", stats.Skipped)
	return stats, requireOutput(files.Dense)
}

func (r *Runner) runSparse(ctx context.Context, input string, files Files) (sparse.Stats, error) {
	chunks, err := loadPhaseInput(input)
	if err != nil {
		return sparse.Stats{}, err
	}
	r.logger.Info("loaded chunks for sparse embedding", "count", len(chunks), "input", input)

	out := jsonfile.New(files.Sparse, jsonfile.WithLogger(r.logger))
	_, stats, err := r.sparse.Run(ctx, chunks, out)
	if err != nil {
		return stats, err
	}
	r.logger.Info("sparse phase done", "total", stats.Total, "empty", stats.Empty, "failed", stats.Failed)
	return stats, requireOutput(files.Sparse)
}

func loadPhaseInput(path string) ([]core.Chunk, error) {
	if !hasExt(path, ".json") {
		return nil, fmt.Errorf("%w: expected a .json chunk file, got %s", ErrInputFormat, path)
	}
	chunks, err := jsonfile.LoadChunks(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoChunks, path)
	}
	return chunks, nil
}

func requireOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyOutput, path)
	}
	return nil
}

func hasExt(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}
