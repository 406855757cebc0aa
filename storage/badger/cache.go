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

package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/storage"
)

type embeddingCache struct {
	backend *Backend
	owned   bool
}

var _ storage.EmbeddingCache = (*embeddingCache)(nil)

// NewEmbeddingCache creates a cache on an already opened backend.
// Closing the cache leaves the backend open.
func NewEmbeddingCache(backend *Backend) (storage.EmbeddingCache, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return &embeddingCache{backend: backend}, nil
}

// OpenEmbeddingCache opens a badger database at dir and returns a cache that
// owns it. With inMemory set, dir is ignored.
func OpenEmbeddingCache(dir string, inMemory bool) (storage.EmbeddingCache, error) {
	backend, err := OpenBackend(dir, inMemory)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	return &embeddingCache{backend: backend, owned: true}, nil
}

func (c *embeddingCache) Get(ctx context.Context, key core.ID) ([]float32, bool, error) {
	if c.backend.IsClosed() {
		return nil, false, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var vec []float32
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			vec, err = storage.UnmarshalVector(val)
			return err
		})
	}, false)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return vec, true, nil
}

func (c *embeddingCache) Put(ctx context.Context, key core.ID, vec []float32) error {
	if c.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Set(makeEmbeddingKey(key), storage.MarshalVector(vec))
	}, true)
}

func (c *embeddingCache) Close() error {
	if !c.owned || c.backend.IsClosed() {
		return nil
	}
	return c.backend.Close()
}
