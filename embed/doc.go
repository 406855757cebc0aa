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

// Package embed implements the dense embedding stage.
//
// Chunks are grouped by source document in first-seen order and sent to an
// ai.Embedder in fixed-size batches. A batch that still fails after its retry
// leaves every chunk in it without a vector; such chunks are written with a
// null embedding and later skipped by the vector database inserters.
//
// An optional storage.EmbeddingCache short-circuits texts embedded by a
// previous run with the same model.
package embed
