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

// UnknownDocID groups chunks that carry no document id.
const UnknownDocID = "unknown_doc"

// DocumentGroup is the ordered set of chunks of one document.
type DocumentGroup struct {
	DocID  string
	Chunks []Chunk
}

// GroupByDocument groups chunks by doc id, keeping first-seen document order
// and the original order within each document. Chunks without a doc id share
// one group.
func GroupByDocument(chunks []Chunk) []DocumentGroup {
	index := make(map[string]int)
	var groups []DocumentGroup
	for _, c := range chunks {
		id := c.DocID
		if id == "" {
			id = UnknownDocID
		}
		g, ok := index[id]
		if !ok {
			g = len(groups)
			index[id] = g
			groups = append(groups, DocumentGroup{DocID: id})
		}
		groups[g].Chunks = append(groups[g].Chunks, c)
	}
	return groups
}
