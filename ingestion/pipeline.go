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

package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/retry"
	"github.com/poiesic/ragpipe/storage"
)

const (
	// DefaultRecodeBatchSize is the number of chunks recoded together.
	DefaultRecodeBatchSize = 5

	// maxDocumentWorkers caps concurrent documents to limit API pressure.
	maxDocumentWorkers = 3
)

// TextSplitter cuts document text into ordered segments.
type TextSplitter interface {
	Split(text string) ([]string, error)
}

// Stats summarizes a Run.
type Stats struct {
	Documents       int
	Skipped         int
	Failed          int
	Chunks          int
	RecodeFallbacks int
}

// Pipeline runs the initial chunking stage.
type Pipeline struct {
	store      storage.ChunkStore
	splitter   TextSplitter
	docPool    *ants.Pool
	recodePool *ants.Pool
	recoder    *recoder
	batchSize  int
	newDocID   func() string
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// DefaultWorkers returns runtime.NumCPU() - 1, with a minimum of 1.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// WithWorkers sets the recode pool size. The document pool is sized
// min(3, workers).
func WithWorkers(workers int) Option {
	return func(p *Pipeline) error {
		if workers < 1 {
			workers = 1
		}

		// Release old pools
		p.releasePools()

		recodePool, err := ants.NewPool(workers)
		if err != nil {
			return err
		}
		docPool, err := ants.NewPool(min(maxDocumentWorkers, workers))
		if err != nil {
			recodePool.Release()
			return err
		}

		p.recodePool = recodePool
		p.docPool = docPool
		return nil
	}
}

// WithBatchSize sets how many chunks are recoded together. Default is 5.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return errors.New("batch size must be greater than 0")
		}
		p.batchSize = size
		return nil
	}
}

// WithRetryPolicy sets the recoding retry policy. Default is retry.Default().
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) error {
		if policy.MaxAttempts < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		p.recoder.policy = policy
		return nil
	}
}

// WithInstructions replaces the recoding instructions.
func WithInstructions(instructions string) Option {
	return func(p *Pipeline) error {
		if strings.TrimSpace(instructions) == "" {
			return errors.New("instructions cannot be empty")
		}
		p.recoder.instructions = instructions
		return nil
	}
}

// WithDocIDFunc overrides document id generation. Default is core.NewDocID.
func WithDocIDFunc(fn func() string) Option {
	return func(p *Pipeline) error {
		if fn == nil {
			return errors.New("doc id func cannot be nil")
		}
		p.newDocID = fn
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates the initial stage pipeline.
func NewPipeline(store storage.ChunkStore, splitter TextSplitter, generator ai.Generator, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrChunkStoreRequired
	}
	if splitter == nil {
		return nil, ErrSplitterRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	p := &Pipeline{
		store:     store,
		splitter:  splitter,
		batchSize: DefaultRecodeBatchSize,
		newDocID:  core.NewDocID,
		logger:    slog.Default(),
		recoder: &recoder{
			generator:    generator,
			policy:       retry.Default(),
			instructions: RecodeInstructions,
		},
	}

	if err := WithWorkers(DefaultWorkers())(p); err != nil {
		return nil, err
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}

	p.logger = p.logger.With("component", "chunking")
	p.recoder.logger = p.logger
	p.recoder.pool = p.recodePool
	return p, nil
}

// Run processes every document and appends its chunks to the store.
// A failing document is logged and does not stop the others. The returned
// error is non-nil only when ctx was canceled.
func (p *Pipeline) Run(ctx context.Context, docs []core.Document) (Stats, error) {
	var (
		mu    sync.Mutex
		stats Stats
		wg    sync.WaitGroup
	)

	for i := range docs {
		if ctx.Err() != nil {
			break
		}
		doc := &docs[i]
		wg.Add(1)
		err := p.docPool.Submit(func() {
			defer wg.Done()
			res, err := p.processDocument(ctx, doc)

			mu.Lock()
			defer mu.Unlock()
			stats.Documents++
			stats.RecodeFallbacks += res.fallbacks
			switch {
			case err != nil:
				stats.Failed++
				p.logger.Error("error processing document", "document", doc.DisplayName(), "err", err)
			case res.skipped:
				stats.Skipped++
			default:
				stats.Chunks += res.chunks
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			stats.Documents++
			stats.Failed++
			mu.Unlock()
			p.logger.Error("error submitting document", "document", doc.DisplayName(), "err", err)
		}
	}
	wg.Wait()

	p.logger.Info("chunking complete",
		"documents", stats.Documents,
		"chunks", stats.Chunks,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"recodeFallbacks", stats.RecodeFallbacks)
	return stats, ctx.Err()
}

type documentResult struct {
	chunks    int
	fallbacks int
	skipped   bool
}

func (p *Pipeline) processDocument(ctx context.Context, doc *core.Document) (documentResult, error) {
	var res documentResult

	if err := core.ValidateDocument(doc); err != nil {
		p.logger.Info("skipping document with empty text", "document", doc.DisplayName())
		res.skipped = true
		return res, nil
	}

	pieces, err := p.splitter.Split(strings.TrimSpace(doc.Text))
	if err != nil {
		return res, err
	}
	if len(pieces) == 0 {
		p.logger.Info("skipping document without chunks", "document", doc.DisplayName())
		res.skipped = true
		return res, nil
	}

	docID := p.newDocID()
	provider := strings.ToLower(strings.TrimSpace(doc.OCRProvider))
	recode := doc.RecodeRequired()
	total := len(pieces)
	totalBatches := (total-1)/p.batchSize + 1

	p.logger.Info("document split", "document", doc.DisplayName(), "docID", docID, "chunks", total)
	if !recode {
		p.logger.Info("clean OCR provider, recoding skipped", "document", doc.DisplayName(), "provider", provider)
	}

	chunks := make([]core.Chunk, 0, total)
	for start := 0; start < total; start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		batch := pieces[start:min(start+p.batchSize, total)]

		cleaned := batch
		if recode {
			p.logger.Debug("recoding batch", "docID", docID, "batch", start/p.batchSize+1, "of", totalBatches)
			var fallbacks int
			cleaned, fallbacks = p.recoder.recodeBatch(ctx, batch)
			res.fallbacks += fallbacks
		}

		for i, text := range cleaned {
			index := start + i + 1
			chunks = append(chunks, core.Chunk{
				ID:          core.ChunkID(docID, index),
				Type:        doc.Type,
				Title:       doc.Title,
				Authors:     doc.Authors,
				Date:        doc.Date,
				Filename:    doc.Filename,
				DocID:       docID,
				ChunkIndex:  index,
				TotalChunks: total,
				Text:        text,
				OCRProvider: provider,
			})
		}
	}

	if err := p.store.Append(ctx, chunks); err != nil {
		return res, err
	}
	res.chunks = len(chunks)
	p.logger.Info("document chunks saved", "document", doc.DisplayName(), "docID", docID, "chunks", len(chunks))
	return res, nil
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.releasePools()
}

func (p *Pipeline) releasePools() {
	if p.docPool != nil {
		p.docPool.Release()
		p.docPool = nil
	}
	if p.recodePool != nil {
		p.recodePool.Release()
		p.recodePool = nil
	}
}
