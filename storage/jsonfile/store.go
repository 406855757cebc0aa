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

package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/storage"
)

// FileMode is the permission of written chunk files.
const FileMode fs.FileMode = 0o644

// writeMu serializes every read-merge-write cycle in the process, whatever
// file it targets.
var writeMu sync.Mutex

// Store is a chunk collection persisted as one indented JSON array.
type Store struct {
	path   string
	strict bool
	logger *slog.Logger
}

var _ storage.ChunkStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithStrict makes a corrupt file an error instead of an empty collection.
func WithStrict(strict bool) Option {
	return func(s *Store) {
		s.strict = strict
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a store backed by the file at path. The file is created on
// the first write.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		logger: slog.Default().With("component", "chunk-store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Append(ctx context.Context, chunks []core.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	writeMu.Lock()
	defer writeMu.Unlock()

	existing, err := s.read()
	if err != nil {
		return err
	}
	merged := make([]core.Chunk, 0, len(existing)+len(chunks))
	merged = append(merged, existing...)
	merged = append(merged, chunks...)
	return s.write(merged)
}

func (s *Store) Overwrite(ctx context.Context, chunks []core.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	return s.write(chunks)
}

func (s *Store) Load(ctx context.Context) ([]core.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	return s.read()
}

// Remove deletes the backing file if it exists.
func (s *Store) Remove() error {
	writeMu.Lock()
	defer writeMu.Unlock()
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) read() ([]core.Chunk, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var chunks []core.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		if s.strict {
			return nil, fmt.Errorf("%w: %s: %w", storage.ErrCorruptStore, s.path, err)
		}
		s.logger.Warn("chunk store is not valid JSON, starting from an empty collection", "path", s.path, "err", err)
		return nil, nil
	}
	return chunks, nil
}

func (s *Store) write(chunks []core.Chunk) error {
	if chunks == nil {
		chunks = []core.Chunk{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(chunks); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// LoadChunks reads a chunk file strictly. Missing or corrupt files are errors.
func LoadChunks(path string) ([]core.Chunk, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return New(path, WithStrict(true)).Load(context.Background())
}
