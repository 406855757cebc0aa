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
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxFuzzyDistance is the largest edit distance accepted between the
// alphanumeric forms of two file names.
const MaxFuzzyDistance = 2

// Resolver finds attachment files on disk. Zotero exports often carry
// names whose Unicode normalization, accents or punctuation differ from the
// files actually stored.
type Resolver struct {
	// BaseDir anchors relative attachment paths.
	BaseDir string

	logger *slog.Logger
}

// NewResolver creates a resolver for paths relative to baseDir.
func NewResolver(baseDir string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{BaseDir: baseDir, logger: logger}
}

// Resolve returns the path of the file matching p. An existing path wins.
// Otherwise the entries of its directory are compared by normalized forms,
// then by edit distance. The first match in name order wins.
func (r *Resolver) Resolve(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", ErrAttachmentNotFound
	}
	candidate := p
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(r.BaseDir, candidate)
	}
	if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
		return candidate, nil
	}

	dir := filepath.Dir(candidate)
	entries, err := os.ReadDir(dir)
	if err != nil {
		r.logger.Debug("attachment directory unreadable", "dir", dir, "err", err)
		return "", ErrAttachmentNotFound
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	target := filepath.Base(candidate)
	if name, ok := matchNormalized(target, names); ok {
		r.logger.Debug("attachment matched by normalized name", "path", p, "file", name)
		return filepath.Join(dir, name), nil
	}
	if name, ok := matchFuzzy(target, names); ok {
		r.logger.Debug("attachment matched by edit distance", "path", p, "file", name)
		return filepath.Join(dir, name), nil
	}
	return "", ErrAttachmentNotFound
}

func matchNormalized(target string, names []string) (string, bool) {
	targetForms := nameForms(target)
	for _, name := range names {
		for _, f := range nameForms(name) {
			if f == "" {
				continue
			}
			for _, t := range targetForms {
				if f == t {
					return name, true
				}
			}
		}
	}
	return "", false
}

func matchFuzzy(target string, names []string) (string, bool) {
	t := alphanumOnly(target)
	if t == "" {
		return "", false
	}
	for _, name := range names {
		f := alphanumOnly(name)
		if f == "" {
			continue
		}
		if levenshtein.ComputeDistance(t, f) <= MaxFuzzyDistance {
			return name, true
		}
	}
	return "", false
}

// nameForms lists the comparison forms of a file name: lowercased NFC and
// NFD, both without combining marks, the ASCII fold and the alphanumeric
// skeleton.
func nameForms(s string) []string {
	nfc := norm.NFC.String(s)
	nfd := norm.NFD.String(s)
	return []string{
		strings.ToLower(nfc),
		strings.ToLower(nfd),
		strings.ToLower(stripAccents(nfc)),
		strings.ToLower(stripAccents(nfd)),
		asciiFold(s),
		alphanumOnly(s),
	}
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// asciiFold decomposes compatibility characters, drops everything outside
// ASCII and lowercases.
func asciiFold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

func alphanumOnly(s string) string {
	var sb strings.Builder
	for _, r := range asciiFold(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
