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

import (
	"encoding/binary"
	"math/rand/v2"
	"strconv"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

const (
	minDocID = int64(100_000_000_000)
	maxDocID = int64(999_999_999_999)
)

// ID is a 64-bit content-derived identifier.
type ID uint64

// IDFromContent hashes text into a stable 64-bit identifier.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ContentKey derives a cache key from a model name and a text.
func ContentKey(model, text string) ID {
	return IDFromContent(model + "\x00" + text)
}

// NewDocID returns a random 12 digit document identifier. Collisions across
// runs are possible and accepted.
func NewDocID() string {
	return strconv.FormatInt(minDocID+rand.Int64N(maxDocID-minDocID+1), 10)
}

// ChunkID composes a chunk identifier from its document id and 1-based index.
func ChunkID(docID string, index int) string {
	return docID + "_" + strconv.Itoa(index)
}

// StableUUID derives a deterministic name-based UUID (SHA-1, DNS namespace)
// from a chunk id, so repeated upserts of the same chunk hit the same object.
func StableUUID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(id)).String()
}
