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

// Package sparse implements the sparse embedding stage.
//
// Text is run through a language Analyzer that yields lemmas tagged with
// universal part-of-speech classes. Content lemmas (nouns, proper nouns,
// adjectives and verbs that are neither stop words nor punctuation) are
// hashed into a fixed 100,000 slot vocabulary and weighted by term
// frequency within the chunk. Hash collisions are accepted.
package sparse
