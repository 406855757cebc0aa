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

package zotero

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Creator is an item author or editor.
type Creator struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	CreatorType string `json:"creatorType"`
}

// Attachment is a file linked to an item.
type Attachment struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

// Item is one bibliographic record of the export.
type Item struct {
	Key         string       `json:"key"`
	ItemType    string       `json:"itemType"`
	Title       string       `json:"title"`
	Date        string       `json:"date"`
	URL         string       `json:"url"`
	DOI         string       `json:"DOI"`
	URI         string       `json:"uri"`
	Creators    []Creator    `json:"creators"`
	Attachments []Attachment `json:"attachments"`
}

// Authors formats creators as "Last First" joined by ", ". Creators
// without any name part are skipped.
func (it Item) Authors() string {
	names := make([]string, 0, len(it.Creators))
	for _, c := range it.Creators {
		last := strings.TrimSpace(c.LastName)
		first := strings.TrimSpace(c.FirstName)
		if last == "" && first == "" {
			continue
		}
		names = append(names, last+" "+first)
	}
	return strings.Join(names, ", ")
}

// ParseExport decodes a Zotero JSON export. Both a bare item array and an
// object with an "items" array are accepted.
func ParseExport(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrInvalidExport
	}

	var items []Item
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidExport, err)
		}
	case '{':
		var wrapper struct {
			Items *[]Item `json:"items"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidExport, err)
		}
		if wrapper.Items == nil {
			return nil, ErrInvalidExport
		}
		items = *wrapper.Items
	default:
		return nil, ErrInvalidExport
	}

	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

// LoadExport reads and parses the export file at path.
func LoadExport(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseExport(f)
}
