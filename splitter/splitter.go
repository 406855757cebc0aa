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

package splitter

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 2500
	DefaultChunkOverlap = 250
)

// DefaultSeparators is the separator priority list, coarsest first.
// The empty separator splits between characters and always matches.
var DefaultSeparators = []string{"\n\n", "#", "##", "\n", " ", ""}

// Splitter configures the recursive split.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
	Counter      TokenCounter

	rc textsplitter.RecursiveCharacter
}

// Option configures a Splitter.
type Option func(*Splitter) error

func WithChunkSize(n int) Option {
	return func(s *Splitter) error {
		if n <= 0 {
			return ErrInvalidChunkSize
		}
		s.ChunkSize = n
		return nil
	}
}

func WithChunkOverlap(n int) Option {
	return func(s *Splitter) error {
		if n < 0 {
			return ErrInvalidChunkOverlap
		}
		s.ChunkOverlap = n
		return nil
	}
}

func WithSeparators(seps []string) Option {
	return func(s *Splitter) error {
		s.Separators = append([]string(nil), seps...)
		return nil
	}
}

func WithCounter(c TokenCounter) Option {
	return func(s *Splitter) error {
		if c == nil {
			return ErrNilCounter
		}
		s.Counter = c
		return nil
	}
}

// New builds a Splitter. Without WithCounter the tiktoken tokenizer of
// DefaultEncodingModel is loaded.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		Separators:   append([]string(nil), DefaultSeparators...),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.ChunkOverlap >= s.ChunkSize {
		return nil, fmt.Errorf("%w: overlap %d, size %d", ErrInvalidChunkOverlap, s.ChunkOverlap, s.ChunkSize)
	}
	if s.Counter == nil {
		counter, err := NewTiktokenCounter(DefaultEncodingModel)
		if err != nil {
			return nil, err
		}
		s.Counter = counter
	}

	s.rc = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.ChunkSize),
		textsplitter.WithChunkOverlap(s.ChunkOverlap),
		textsplitter.WithSeparators(s.Separators),
		textsplitter.WithLenFunc(s.Counter.Count),
	)
	return s, nil
}

// Split returns the ordered, trimmed, non-blank segments of text.
func (s *Splitter) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	parts, err := s.rc.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}

	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chunks = append(chunks, p)
	}
	return chunks, nil
}
