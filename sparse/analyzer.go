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
	"strings"
)

// Universal part-of-speech tags used by analyzers.
const (
	POSNoun  = "NOUN"
	POSPropn = "PROPN"
	POSAdj   = "ADJ"
	POSVerb  = "VERB"
	POSAdv   = "ADV"
	POSNum   = "NUM"
	POSPunct = "PUNCT"
	POSSym   = "SYM"
	POSOther = "X"
)

// Token is one analyzed word.
type Token struct {
	Text  string
	Lemma string
	POS   string
	Stop  bool
	Punct bool
}

// Analyzer turns text into lemmatized, tagged tokens.
type Analyzer interface {
	Analyze(ctx context.Context, text string) ([]Token, error)

	// MaxLength is the longest text, in characters, the analyzer accepts.
	// Zero means no limit of its own.
	MaxLength() int
}

// NewAnalyzer returns the analyzer for a language code ("fr" or "en").
func NewAnalyzer(lang string) (Analyzer, error) {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "fr", "french", "":
		return NewFrenchAnalyzer()
	case "en", "english":
		return NewProseAnalyzer()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
}
