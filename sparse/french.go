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
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/fr"
)

var (
	frenchWord = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’-][\p{L}\p{N}]+)*|[^\s\p{L}\p{N}]`)
	elision    = regexp.MustCompile(`^(?i)(l|d|j|m|n|s|t|c|qu|jusqu|lorsqu|puisqu)['’](.+)$`)
)

var adjectiveSuffixes = []string{
	"ique", "iques", "able", "ables", "ible", "ibles", "eux", "euse", "euses",
	"al", "ale", "aux", "ales", "if", "ive", "ifs", "ives", "el", "elle", "els", "elles",
	"aire", "aires", "ien", "ienne", "iens", "iennes",
}

var infinitiveSuffixes = []string{"er", "ir", "re", "oir"}

// FrenchAnalyzer tokenizes French text with rules, lemmatizes with golem and
// assigns part-of-speech classes from capitalization, suffixes and lemmas.
type FrenchAnalyzer struct {
	lemmatizer *golem.Lemmatizer
}

var _ Analyzer = (*FrenchAnalyzer)(nil)

func NewFrenchAnalyzer() (*FrenchAnalyzer, error) {
	lemmatizer, err := golem.New(fr.New())
	if err != nil {
		return nil, fmt.Errorf("failed to load French lemmas: %w", err)
	}
	return &FrenchAnalyzer{lemmatizer: lemmatizer}, nil
}

// MaxLength matches the one million character default of common NLP models.
func (a *FrenchAnalyzer) MaxLength() int {
	return 1_000_000
}

func (a *FrenchAnalyzer) Analyze(ctx context.Context, text string) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tokens []Token
	sentenceStart := true
	for _, word := range splitFrench(text) {
		tok := a.analyzeWord(word, sentenceStart)
		tokens = append(tokens, tok)
		if tok.Punct {
			sentenceStart = word == "." || word == "!" || word == "?" || word == "…"
		} else {
			sentenceStart = false
		}
	}
	return tokens, nil
}

func (a *FrenchAnalyzer) analyzeWord(word string, sentenceStart bool) Token {
	lower := strings.ToLower(word)
	tok := Token{Text: word, Lemma: lower, Stop: frenchStopWords[strings.TrimRight(lower, "'’")]}

	switch {
	case isPunctuation(word):
		tok.POS = POSPunct
		tok.Punct = true
		return tok
	case isNumber(word):
		tok.POS = POSNum
		return tok
	case tok.Stop:
		tok.POS = POSOther
		return tok
	}

	if startsUpper(word) && (!sentenceStart || !a.lemmatizer.InDict(lower)) {
		tok.POS = POSPropn
		tok.Lemma = word
		return tok
	}

	lemma := a.lemmatizer.Lemma(lower)
	if lemma == "" {
		lemma = lower
	}
	tok.Lemma = lemma

	switch {
	case strings.HasSuffix(lower, "ment") && len(lower) > 6:
		tok.POS = POSAdv
	case lemma != lower && hasAnySuffix(lemma, infinitiveSuffixes):
		tok.POS = POSVerb
	case hasAnySuffix(lower, adjectiveSuffixes):
		tok.POS = POSAdj
	default:
		tok.POS = POSNoun
	}
	return tok
}

// splitFrench cuts text into words and punctuation, detaching elided
// articles and pronouns ("l'archive" -> "l'", "archive").
func splitFrench(text string) []string {
	var out []string
	for _, w := range frenchWord.FindAllString(text, -1) {
		if m := elision.FindStringSubmatch(w); m != nil && !frenchStopWords[strings.ToLower(w)] {
			out = append(out, w[:len(w)-len(m[2])], m[2])
			continue
		}
		out = append(out, w)
	}
	return out
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) && len(s) > len(suf)+1 {
			return true
		}
	}
	return false
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != ',' && r != '.' {
			return false
		}
	}
	return s != ""
}

func isPunctuation(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return s != ""
}
