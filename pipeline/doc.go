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

// Package pipeline sequences the chunking, dense embedding and sparse
// embedding phases over files in an output directory.
//
// File names derive from a base name. The initial phase always uses
// DefaultBaseName; the dense and sparse phases reuse the base of their
// input so that reruns land next to the files they came from:
//
//	<base>_chunks.json
//	<base>_chunks_with_embeddings.json
//	<base>_chunks_with_embeddings_sparse.json
package pipeline
