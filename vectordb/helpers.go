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
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/poiesic/ragpipe/core"
)

// EpochDate is the normalized form of an empty or unparseable date.
const EpochDate = "1970-01-01T00:00:00Z"

const dateLayout = "2006-01-02T15:04:05Z"

var (
	yearOnly  = regexp.MustCompile(`^\d{4}$`)
	yearMonth = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})$`)
)

// FilterEmbedded returns the chunks carrying a dense vector. Every dropped
// chunk is logged at warn level.
func FilterEmbedded(chunks []core.Chunk, logger *slog.Logger) []core.Chunk {
	if logger == nil {
		logger = slog.Default()
	}
	kept := make([]core.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if !c.HasEmbedding() {
			logger.Warn("chunk has no dense embedding, skipped", "chunkID", c.ID)
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// FilterDimension keeps the chunks whose embedding has dim values. The
// others are dropped with a warning.
func FilterDimension(chunks []core.Chunk, dim int, logger *slog.Logger) []core.Chunk {
	if logger == nil {
		logger = slog.Default()
	}
	kept := make([]core.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != dim {
			logger.Warn("embedding dimension mismatch, skipped", "chunkID", c.ID, "dim", len(c.Embedding), "expected", dim)
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// Metadata returns the properties stored next to a vector. chunk_text
// carries the chunk text.
func Metadata(c core.Chunk) map[string]any {
	return map[string]any{
		"title":        c.Title,
		"authors":      c.Authors,
		"date":         c.Date,
		"type":         c.Type,
		"filename":     c.Filename,
		"doc_id":       c.DocID,
		"chunk_index":  c.ChunkIndex,
		"total_chunks": c.TotalChunks,
		"chunk_text":   c.Text,
	}
}

// NormalizeDate converts a free-form date into YYYY-MM-DDTHH:MM:SSZ in UTC.
// Year-only and year-month inputs are completed with the first day. Numeric
// dates are read month first, then day first when that fails. Empty or
// unparseable inputs yield EpochDate.
func NormalizeDate(s string) (out string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EpochDate
	}
	if yearOnly.MatchString(s) {
		return s + "-01-01T00:00:00Z"
	}
	if m := yearMonth.FindStringSubmatch(s); m != nil {
		month, err := strconv.Atoi(m[2])
		if err != nil || month < 1 || month > 12 {
			return EpochDate
		}
		return fmt.Sprintf("%s-%02d-01T00:00:00Z", m[1], month)
	}

	// dateparse panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			out = EpochDate
		}
	}()
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		// 15/03/2023: day-first numeric dates are common in French records.
		t, err = dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(false))
		if err != nil {
			return EpochDate
		}
	}
	return t.UTC().Format(dateLayout)
}

// Batches splits n items into consecutive [start, end) ranges of at most size.
func Batches(n, size int) [][2]int {
	if size < 1 {
		size = DefaultBatchSize
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}

// UpsertFunc sends one batch and returns how many chunks the database
// acknowledged. A returned error triggers the retry policy, except a
// *PartialError which reports a batch the database accepted only in part.
type UpsertFunc func(ctx context.Context, batch []core.Chunk) (int, error)

// PartialError reports per-object failures inside an accepted batch.
type PartialError struct {
	Inserted int
	Failed   int
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%d object(s) rejected, %d inserted", e.Failed, e.Inserted)
}

// InsertBatches sends chunks in batches with the retry policy of s. A batch
// that still fails after its retries counts as failed and contributes
// nothing to inserted. A partially accepted batch counts as failed and
// contributes its accepted objects.
func InsertBatches(ctx context.Context, chunks []core.Chunk, s Settings, upsert UpsertFunc) (inserted, failed int) {
	policy := s.Policy
	retryable := policy.Retryable
	policy.Retryable = func(err error) bool {
		var pe *PartialError
		if errors.As(err, &pe) {
			return false
		}
		return retryable == nil || retryable(err)
	}

	for i, r := range Batches(len(chunks), s.BatchSize) {
		batch := chunks[r[0]:r[1]]
		var n int
		err := policy.Do(ctx, func(attempt int) error {
			var err error
			n, err = upsert(ctx, batch)
			if err != nil {
				s.Logger.Warn("batch upsert failed", "batch", i+1, "attempt", attempt, "err", err)
			}
			return err
		})
		var pe *PartialError
		switch {
		case errors.As(err, &pe):
			inserted += pe.Inserted
			failed++
		case err != nil:
			s.Logger.Error("batch could not be inserted", "batch", i+1, "chunks", len(batch), "err", err)
			failed++
		default:
			s.Logger.Debug("batch inserted", "batch", i+1, "chunks", n)
			inserted += n
		}
	}
	return inserted, failed
}
