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

// Package vectordb uploads embedded chunks to a vector database.
//
// Every backend implements Inserter and reports a Result whose status follows
// the same precedence: a failed batch wins over an empty insert, which wins
// over chunks dropped for missing embeddings.
//
// Backends live in subpackages (pinecone, weaviate, qdrant, milvus and
// pgvector). They share FilterEmbedded, Metadata, NormalizeDate and
// InsertBatches from this package.
package vectordb
