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

// Package storage provides the persistence abstractions used by the pipeline.
//
// Two concerns live here:
//
//   - ChunkStore: the incremental JSON snapshot files written by each phase
//     (see the jsonfile subpackage)
//   - EmbeddingCache: a content-addressed cache of dense vectors so reruns
//     do not pay for identical texts twice (see the badger subpackage)
//
// # Constructor Return Type Pattern
//
// Public constructors return the interfaces defined here:
//
//	cache, err := badger.OpenEmbeddingCache(dir, false)  // returns storage.EmbeddingCache
//
// Consumers depend on the interface and tests substitute in-memory versions.
package storage
