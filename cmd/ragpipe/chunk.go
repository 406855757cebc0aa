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
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/ai/openai"
	"github.com/poiesic/ragpipe/embed"
	"github.com/poiesic/ragpipe/ingestion"
	"github.com/poiesic/ragpipe/pipeline"
	"github.com/poiesic/ragpipe/sparse"
	"github.com/poiesic/ragpipe/splitter"
	"github.com/poiesic/ragpipe/storage"
	"github.com/poiesic/ragpipe/storage/badger"
	"github.com/urfave/cli/v2"
)

// newProvider builds the AI clients. Tests swap it for a mock.
var newProvider = openai.NewProvider

func chunkCommand() *cli.Command {
	return &cli.Command{
		Name:   "chunk",
		Usage:  "Split a CSV corpus into chunks and compute dense and sparse embeddings",
		Action: chunkAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Input file: CSV for the initial phase, chunk JSON for dense and sparse",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Output directory",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "phase",
				Usage: "Phase to run (initial, dense, sparse, all)",
				Value: string(pipeline.PhaseAll),
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent recoding calls",
				Value: ingestion.DefaultWorkers(),
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Maximum chunk size in tokens",
				Value: splitter.DefaultChunkSize,
			},
			&cli.IntFlag{
				Name:  "chunk-overlap",
				Usage: "Overlap between consecutive chunks in tokens",
				Value: splitter.DefaultChunkOverlap,
			},
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of chunks per embedding request",
				Value: embed.DefaultBatchSize,
			},
			&cli.StringFlag{
				Name:  "language",
				Usage: "Language of the corpus for sparse features (fr, en)",
				Value: "fr",
			},
			&cli.StringFlag{
				Name:  "cache-dir",
				Usage: "Directory of a persistent embedding cache (disabled when empty)",
			},
			&cli.StringFlag{
				Name:  "text-column",
				Usage: "CSV column holding the document text",
				Value: ingestion.DefaultTextColumn,
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
				Value: ai.DefaultConfig().EmbeddingModel,
			},
			&cli.StringFlag{
				Name:  "recode-model",
				Usage: "Chat model used to clean OCR text",
				Value: ai.DefaultConfig().GeneratorModel,
			},
		},
	}
}

func chunkAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	phase, err := pipeline.ParsePhase(c.String("phase"))
	if err != nil {
		return err
	}

	logFile, err := pipeline.OpenLogFile(c.String("output"))
	if err != nil {
		return err
	}
	defer logFile.Close()
	restore := teeDefaultLogger(ctx, logFile)
	defer restore()

	var opts []pipeline.Option

	if phase != pipeline.PhaseSparse {
		env, err := loadEnv(c)
		if err != nil {
			return err
		}
		aiConfig, err := env.AI(
			ai.WithEmbeddingModel(c.String("embedding-model")),
			ai.WithGeneratorModel(c.String("recode-model")),
		)
		if err != nil {
			return fmt.Errorf("invalid AI configuration: %w", err)
		}
		provider, err := newProvider(aiConfig)
		if err != nil {
			return fmt.Errorf("failed to create AI provider: %w", err)
		}
		defer provider.Close()

		if phase == pipeline.PhaseInitial || phase == pipeline.PhaseAll {
			chunker, err := newChunkerFactory(c, provider.Generator())
			if err != nil {
				return err
			}
			csvOptions := ingestion.DefaultCSVOptions()
			csvOptions.TextColumn = c.String("text-column")
			opts = append(opts, pipeline.WithChunker(chunker), pipeline.WithCSVOptions(csvOptions))
		}

		if phase == pipeline.PhaseDense || phase == pipeline.PhaseAll {
			denseOpts := []embed.Option{
				embed.WithBatchSize(c.Int("batch-size")),
				embed.WithProgress(os.Stderr),
			}
			if dir := c.String("cache-dir"); dir != "" {
				cache, err := badger.OpenEmbeddingCache(dir, false)
				if err != nil {
					return err
				}
				defer cache.Close()
				denseOpts = append(denseOpts, embed.WithCache(cache, aiConfig.EmbeddingModel))
			}
			stage, err := embed.NewStage(provider.Embedder(), denseOpts...)
			if err != nil {
				return fmt.Errorf("failed to create dense stage: %w", err)
			}
			opts = append(opts, pipeline.WithDenseStage(stage))
		}
	}

	if phase == pipeline.PhaseSparse || phase == pipeline.PhaseAll {
		analyzer, err := sparse.NewAnalyzer(c.String("language"))
		if err != nil {
			return err
		}
		stage, err := sparse.NewStage(analyzer)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithSparseStage(stage))
	}

	fmt.Fprintf(os.Stderr, "Phase: %s\n", phase)
	fmt.Fprintf(os.Stderr, "Input: %s\n", c.String("input"))
	fmt.Fprintf(os.Stderr, "Output directory: %s\n", c.String("output"))
	fmt.Fprintln(os.Stderr)

	report, err := pipeline.NewRunner(opts...).Run(ctx, phase, c.String("input"), c.String("output"))
	if err != nil {
		return fmt.Errorf("phase %s failed: %w", phase, err)
	}

	slog.Info("chunking finished", "phase", phase, "duration", report.Duration)
	return nil
}

func newChunkerFactory(c *cli.Context, generator ai.Generator) (pipeline.ChunkerFactory, error) {
	workers := c.Int("workers")
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be greater than 0")
	}
	sp, err := splitter.New(
		splitter.WithChunkSize(c.Int("chunk-size")),
		splitter.WithChunkOverlap(c.Int("chunk-overlap")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create splitter: %w", err)
	}
	return func(store storage.ChunkStore) (pipeline.Chunker, error) {
		return ingestion.NewPipeline(store, sp, generator, ingestion.WithWorkers(workers))
	}, nil
}

// teeDefaultLogger copies the default logger's output to w, at info level or
// debug when the console already logs debug. The returned func restores the
// previous default.
func teeDefaultLogger(ctx context.Context, w io.Writer) func() {
	prev := slog.Default()
	level := slog.LevelInfo
	if prev.Enabled(ctx, slog.LevelDebug) {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(pipeline.TeeHandler{
		prev.Handler(),
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	}))
	return func() { slog.SetDefault(prev) }
}
