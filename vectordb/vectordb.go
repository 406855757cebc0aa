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

package vectordb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/retry"
	"github.com/poiesic/ragpipe/storage/jsonfile"
)

// DefaultBatchSize is the number of chunks sent per upsert request.
const DefaultBatchSize = 100

// DefaultRetryDelay is the pause before a failed batch is sent again.
const DefaultRetryDelay = 2 * time.Second

// Status is the outcome class of an insertion run.
type Status string

const (
	// StatusSuccess means every chunk was inserted.
	StatusSuccess Status = "success"

	// StatusSuccessPartialData means every batch succeeded but some chunks
	// had no usable embedding and were left out.
	StatusSuccessPartialData Status = "success_partial_data"

	// StatusPartialError means at least one batch failed after its retry.
	StatusPartialError Status = "partial_error"

	// StatusError means nothing was inserted or the run could not start.
	StatusError Status = "error"
)

// Result reports an insertion run.
type Result struct {
	Status        Status `json:"status"`
	Message       string `json:"message"`
	InsertedCount int    `json:"inserted_count"`
}

// OK reports whether the run inserted what it could without failures.
func (r Result) OK() bool {
	return r.Status == StatusSuccess || r.Status == StatusSuccessPartialData
}

// Errorf builds an error result with a formatted message.
func Errorf(format string, args ...any) Result {
	return Result{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// Inserter uploads chunks to one vector database.
type Inserter interface {
	// Insert uploads chunks and reports the outcome. Failures are reported
	// through the result, never through a panic or an error value.
	Insert(ctx context.Context, chunks []core.Chunk) Result

	// Close releases the connection to the database.
	Close() error
}

// Summarize classifies a run. total is the number of chunks loaded,
// inserted the number acknowledged by the database and failedBatches the
// number of batches that failed after their retry.
func Summarize(total, inserted, failedBatches int) Result {
	msg := fmt.Sprintf("insertion finished: %d of %d chunks inserted", inserted, total)
	switch {
	case failedBatches > 0:
		return Result{
			Status:        StatusPartialError,
			Message:       fmt.Sprintf("%s; %d batch(es) could not be inserted", msg, failedBatches),
			InsertedCount: inserted,
		}
	case inserted == 0 && total > 0:
		return Result{
			Status:        StatusError,
			Message:       msg + "; no chunk was inserted",
			InsertedCount: inserted,
		}
	case inserted < total:
		return Result{
			Status:        StatusSuccessPartialData,
			Message:       msg + "; some chunks had no usable embedding",
			InsertedCount: inserted,
		}
	}
	return Result{Status: StatusSuccess, Message: msg, InsertedCount: inserted}
}

// InsertFile loads a chunk collection from path and hands it to ins. A file
// that is missing or not valid JSON yields an error result.
func InsertFile(ctx context.Context, ins Inserter, path string) Result {
	chunks, err := jsonfile.LoadChunks(path)
	if err != nil {
		return Errorf("failed to load %s: %v", path, err)
	}
	return ins.Insert(ctx, chunks)
}

// Settings are the tuning knobs shared by every backend.
type Settings struct {
	BatchSize int
	Policy    retry.Policy
	Logger    *slog.Logger
}

// Option configures Settings.
type Option func(*Settings)

// WithBatchSize sets the number of chunks per upsert. Values below 1 are ignored.
func WithBatchSize(size int) Option {
	return func(s *Settings) {
		if size > 0 {
			s.BatchSize = size
		}
	}
}

// WithRetryPolicy sets the per-batch retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(s *Settings) {
		s.Policy = policy
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Settings) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// NewSettings applies opts over the defaults. backend tags the logger.
func NewSettings(backend string, opts ...Option) Settings {
	s := Settings{
		BatchSize: DefaultBatchSize,
		Policy:    retry.Once(DefaultRetryDelay),
		Logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.Logger = s.Logger.With("component", "vectordb", "backend", backend)
	return s
}
