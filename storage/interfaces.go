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

package storage

import (
	"context"

	"github.com/poiesic/ragpipe/core"
)

// ChunkStore persists an ordered collection of chunk records.
type ChunkStore interface {
	// Append merges chunks after the records already stored.
	// The read-merge-write cycle is atomic with respect to other writers.
	Append(ctx context.Context, chunks []core.Chunk) error

	// Overwrite replaces the stored collection with chunks.
	Overwrite(ctx context.Context, chunks []core.Chunk) error

	// Load returns every stored chunk in insertion order.
	// A missing store yields an empty collection.
	Load(ctx context.Context) ([]core.Chunk, error)
}

// EmbeddingCache stores dense vectors keyed by a content hash.
type EmbeddingCache interface {
	// Get returns the cached vector for key. The boolean is false on a miss.
	Get(ctx context.Context, key core.ID) ([]float32, bool, error)

	// Put stores vec under key, replacing any previous value.
	Put(ctx context.Context, key core.ID, vec []float32) error

	// Close releases the cache resources.
	Close() error
}
