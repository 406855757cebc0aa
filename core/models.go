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

package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Chunk is a bounded text segment of a source document and the unit of
// embedding and vector database storage.
type Chunk struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Authors     string `json:"authors"`
	Date        string `json:"date"`
	Filename    string `json:"filename"`
	DocID       string `json:"doc_id"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
	Text        string `json:"text"`
	OCRProvider string `json:"ocr_provider"`

	// Embedding is the dense vector. Nil means not computed yet or failed.
	Embedding []float32 `json:"-"`

	// EmbeddingSet reports whether the dense stage has visited this chunk.
	// A visited chunk serializes its embedding even when it is nil.
	EmbeddingSet bool `json:"-"`

	// SparseEmbedding is absent until the sparse stage runs.
	SparseEmbedding *SparseVector `json:"-"`
}

// HasEmbedding reports whether the chunk carries a usable dense vector.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// SetEmbedding records the dense stage outcome for the chunk.
func (c *Chunk) SetEmbedding(vec []float32) {
	c.Embedding = vec
	c.EmbeddingSet = true
}

type chunkAlias Chunk

type chunkWire struct {
	*chunkAlias
	Embedding       json.RawMessage `json:"embedding,omitempty"`
	SparseEmbedding *SparseVector   `json:"sparse_embedding,omitempty"`
}

var jsonNull = json.RawMessage("null")

// MarshalJSON writes the embedding key only once the dense stage has run,
// so the initial snapshot carries pre-embedding fields only.
func (c Chunk) MarshalJSON() ([]byte, error) {
	w := chunkWire{
		chunkAlias:      (*chunkAlias)(&c),
		SparseEmbedding: c.SparseEmbedding,
	}
	if c.EmbeddingSet || c.Embedding != nil {
		if c.Embedding == nil {
			w.Embedding = jsonNull
		} else {
			raw, err := json.Marshal(c.Embedding)
			if err != nil {
				return nil, err
			}
			w.Embedding = raw
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON accepts records with or without the embedding key. An
// explicit null is kept as a visited chunk without a vector.
func (c *Chunk) UnmarshalJSON(data []byte) error {
	w := chunkWire{chunkAlias: (*chunkAlias)(c)}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.SparseEmbedding = w.SparseEmbedding
	c.Embedding = nil
	c.EmbeddingSet = false
	if len(w.Embedding) == 0 {
		return nil
	}
	c.EmbeddingSet = true
	if string(w.Embedding) == "null" {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal(w.Embedding, &vec); err != nil {
		// Malformed vectors are treated like a failed embedding.
		return nil
	}
	if len(vec) > 0 {
		c.Embedding = vec
	}
	return nil
}

// SparseVector is a term-frequency sparse representation with parallel
// index and value arrays. Indices are decimal strings of hashed lemmas.
type SparseVector struct {
	Indices []string  `json:"indices"`
	Values  []float64 `json:"values"`
}

// EmptySparseVector returns a vector with non-nil empty arrays so it
// serializes as {"indices": [], "values": []}.
func EmptySparseVector() *SparseVector {
	return &SparseVector{Indices: []string{}, Values: []float64{}}
}

// Len returns the number of entries.
func (s *SparseVector) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Indices)
}

// Empty reports whether the vector has no entries.
func (s *SparseVector) Empty() bool {
	return s.Len() == 0
}

// Document is a tabular source row prior to chunking.
type Document struct {
	Text        string
	Title       string
	Authors     string
	Date        string
	Filename    string
	Type        string
	OCRProvider string
	Meta        map[string]string
	SourceType  string
	IngestedAt  time.Time
}

// RecodeRequired reports whether chunks of this document need LLM cleanup.
// Text from the Mistral OCR provider is already clean.
func (d *Document) RecodeRequired() bool {
	return strings.ToLower(strings.TrimSpace(d.OCRProvider)) != "mistral"
}

// DisplayName returns a name suitable for log lines.
func (d *Document) DisplayName() string {
	if d.Filename != "" {
		return d.Filename
	}
	if d.Title != "" {
		return d.Title
	}
	return "<unnamed document>"
}
