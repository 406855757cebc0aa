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
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/poiesic/ragpipe/core"
)

// DirectorySourceType tags documents built from a bare PDF directory.
const DirectorySourceType = "pdf"

var doiPattern = regexp.MustCompile(`10\.\d{4,}(?:\.\d+)*/\S+[^;,.\s]`)

// pdfInfo is the document information dictionary of a PDF.
type pdfInfo struct {
	Title        string
	Author       string
	CreationDate string
	DOI          string
	Text         string
}

// LoadDirectory builds one document per PDF file of dir, without an export.
// Metadata comes from the PDF information dictionary and the DOI from the
// metadata or the text of the first pages.
func (l *Loader) LoadDirectory(ctx context.Context, dir string) ([]core.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		l.logger.Warn("no pdf files found", "dir", dir)
		return nil, nil
	}

	var docs []core.Document
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, name)
		res, err := l.extractor.Extract(ctx, path)
		if err != nil {
			l.logger.Warn("text extraction failed, file skipped", "path", path, "err", err)
			continue
		}
		info, err := readPDFInfo(path)
		if err != nil {
			l.logger.Debug("pdf metadata unreadable", "path", path, "err", err)
		}
		doi := info.DOI
		if doi == "" {
			doi = findDOI(info.Text)
		}
		docs = append(docs, core.Document{
			Text:        res.Text,
			Title:       info.Title,
			Authors:     info.Author,
			Date:        formatPDFDate(info.CreationDate),
			Filename:    name,
			Type:        "article",
			OCRProvider: res.Provider,
			Meta: map[string]string{
				MetaURL:             "",
				MetaDOI:             doi,
				MetaPath:            path,
				MetaAttachmentTitle: strings.TrimSuffix(name, filepath.Ext(name)),
			},
			SourceType: DirectorySourceType,
			IngestedAt: time.Now(),
		})
	}
	return docs, nil
}

// readPDFInfo reads the information dictionary and the text of the first
// three pages.
func readPDFInfo(path string) (info pdfInfo, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return info, err
	}
	defer f.Close()

	// The pdf package panics on some malformed dictionaries.
	defer func() {
		if rec := recover(); rec != nil {
			err = os.ErrInvalid
		}
	}()

	meta := r.Trailer().Key("Info")
	info.Title = strings.TrimSpace(meta.Key("Title").Text())
	info.Author = strings.TrimSpace(meta.Key("Author").Text())
	info.CreationDate = strings.TrimSpace(meta.Key("CreationDate").Text())
	info.DOI = strings.TrimSpace(meta.Key("doi").Text())

	var sb strings.Builder
	for i := 1; i <= min(3, r.NumPage()); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		if text, err := p.GetPlainText(nil); err == nil {
			sb.WriteString(text)
			sb.WriteByte('\n')
		}
	}
	info.Text = sb.String()
	return info, nil
}

// formatPDFDate turns "D:YYYYMMDDHHmmSS..." into YYYY-MM-DD. Other values
// are returned unchanged.
func formatPDFDate(s string) string {
	if !strings.HasPrefix(s, "D:") {
		return s
	}
	d := s[2:]
	if len(d) < 8 {
		return s
	}
	return d[0:4] + "-" + d[4:6] + "-" + d[6:8]
}

func findDOI(text string) string {
	return doiPattern.FindString(text)
}
