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

// Package ingestion implements the initial chunking stage.
//
// Documents are read from a CSV file, split into token-bounded segments,
// optionally cleaned by a text-generation model and appended to a chunk
// store, one document at a time.
//
// # Concurrency
//
// Two ants pools are used. The document pool bounds how many documents are
// processed at once (at most three). The recode pool bounds the concurrent
// model calls issued for the chunks of a batch.
//
// # Failure Policy
//
// Recoding never fails a document. A chunk whose first call fails gets a
// second, sequential attempt after a short delay; if that fails too the
// original text is kept unchanged.
package ingestion
