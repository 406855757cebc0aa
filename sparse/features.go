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

package sparse

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/ragpipe/core"
)

const (
	// Dimensions is the size of the hashed vocabulary.
	Dimensions = 100000

	// MaxTextLength caps the characters analyzed per chunk.
	MaxTextLength = 50000
)

var relevantPOS = map[string]bool{
	POSNoun:  true,
	POSPropn: true,
	POSAdj:   true,
	POSVerb:  true,
}

// IndexFor maps a lemma to its slot in the hashed vocabulary.
func IndexFor(lemma string) string {
	return strconv.FormatUint(uint64(core.IDFromContent(lemma))%Dimensions, 10)
}

// Features builds a term-frequency vector from analyzed tokens. Indices
// appear in order of first occurrence. Lemmas sharing a slot overwrite each
// other's weight.
func Features(tokens []Token) *core.SparseVector {
	var (
		lemmas []string
		counts = make(map[string]int)
	)
	for _, t := range tokens {
		if !relevantPOS[t.POS] || t.Stop || t.Punct {
			continue
		}
		lemma := strings.ToLower(t.Lemma)
		if utf8.RuneCountInString(lemma) <= 1 {
			continue
		}
		if counts[lemma] == 0 {
			lemmas = append(lemmas, lemma)
		}
		counts[lemma]++
	}

	vec := core.EmptySparseVector()
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return vec
	}

	position := make(map[string]int)
	for _, lemma := range lemmas {
		index := IndexFor(lemma)
		value := float64(counts[lemma]) / float64(total)
		if pos, ok := position[index]; ok {
			vec.Values[pos] = value
			continue
		}
		position[index] = len(vec.Indices)
		vec.Indices = append(vec.Indices, index)
		vec.Values = append(vec.Values, value)
	}
	return vec
}

// Extract analyzes text and returns its sparse vector. Empty text yields an
// empty vector. Text beyond the analyzer limit (or MaxTextLength) is cut.
func Extract(ctx context.Context, analyzer Analyzer, text string) (*core.SparseVector, error) {
	if strings.TrimSpace(text) == "" {
		return core.EmptySparseVector(), nil
	}

	limit := MaxTextLength
	if m := analyzer.MaxLength(); m > 0 && m < limit {
		limit = m
	}
	if n := utf8.RuneCountInString(text); n > limit {
		slog.Info("text too long for sparse features, truncating", "length", n, "limit", limit)
		text = truncateRunes(text, limit)
	}

	tokens, err := analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}
	return Features(tokens), nil
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
