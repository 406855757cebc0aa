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
	"bufio"
	_ "embed"
	"strings"
)

//go:embed stopwords/fr.txt
var frenchStopList string

//go:embed stopwords/en.txt
var englishStopList string

func parseStopList(list string) map[string]bool {
	words := make(map[string]bool)
	sc := bufio.NewScanner(strings.NewReader(list))
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			words[w] = true
		}
	}
	return words
}

var (
	frenchStopWords  = parseStopList(frenchStopList)
	englishStopWords = parseStopList(englishStopList)
)
