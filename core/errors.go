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

import "errors"

var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyChunkID indicates the chunk id is missing.
	ErrEmptyChunkID = errors.New("chunk id cannot be empty")

	// ErrEmptyDocID indicates the document id is missing.
	ErrEmptyDocID = errors.New("doc id cannot be empty")

	// ErrInvalidChunkIndex indicates chunk_index is outside 1..total_chunks.
	ErrInvalidChunkIndex = errors.New("chunk index out of range")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyContent indicates the text is empty.
	ErrEmptyContent = errors.New("content cannot be empty")
)
