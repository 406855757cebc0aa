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

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/jdkato/prose/v2"
)

// ProseAnalyzer tags English text with the prose averaged perceptron and
// lemmatizes with golem.
type ProseAnalyzer struct {
	lemmatizer *golem.Lemmatizer
}

var _ Analyzer = (*ProseAnalyzer)(nil)

func NewProseAnalyzer() (*ProseAnalyzer, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("failed to load English lemmas: %w", err)
	}
	return &ProseAnalyzer{lemmatizer: lemmatizer}, nil
}

func (a *ProseAnalyzer) MaxLength() int {
	return 0
}

func (a *ProseAnalyzer) Analyze(ctx context.Context, text string) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("failed to tag text: %w", err)
	}

	raw := doc.Tokens()
	tokens := make([]Token, 0, len(raw))
	for _, tok := range raw {
		lower := strings.ToLower(tok.Text)
		pos := pennToUniversal(tok.Tag)
		punct := pos == POSPunct || isPunctuation(tok.Text)

		lemma := tok.Text
		if pos != POSPropn && !punct {
			lemma = a.lemmatizer.Lemma(lower)
		}
		tokens = append(tokens, Token{
			Text:  tok.Text,
			Lemma: lemma,
			POS:   pos,
			Stop:  englishStopWords[lower],
			Punct: punct,
		})
	}
	return tokens, nil
}

// pennToUniversal maps Penn Treebank tags onto universal POS classes.
func pennToUniversal(tag string) string {
	switch tag {
	case "NN", "NNS":
		return POSNoun
	case "NNP", "NNPS":
		return POSPropn
	case "JJ", "JJR", "JJS":
		return POSAdj
	case "VB", "VBD", "VBG", "VBN", "VBP", "VBZ":
		return POSVerb
	case "RB", "RBR", "RBS", "WRB":
		return POSAdv
	case "CD":
		return POSNum
	case ".", ",", ":", "(", ")", "``", "''", "-LRB-", "-RRB-", "HYPH", "NFP":
		return POSPunct
	case "#", "$", "SYM":
		return POSSym
	default:
		return POSOther
	}
}
