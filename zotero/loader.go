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
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/ocr"
)

// SourceType tags documents built from a Zotero export.
const SourceType = "zotero"

// Meta keys carried next to the standard document fields.
const (
	MetaURL             = "url"
	MetaDOI             = "doi"
	MetaPath            = "path"
	MetaAttachmentTitle = "attachment_title"
)

// TextExtractor produces the text of a PDF file. *ocr.Chain implements it.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ocr.Result, error)
}

// Loader builds documents from export items.
type Loader struct {
	extractor   TextExtractor
	resolver    *Resolver
	concurrency int
	logger      *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConcurrency sets how many attachments are extracted at once.
// Default is 1.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader resolving relative attachment paths against baseDir.
func NewLoader(extractor TextExtractor, baseDir string, opts ...LoaderOption) (*Loader, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	l := &Loader{
		extractor:   extractor,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "zotero")
	l.resolver = NewResolver(baseDir, l.logger)
	return l, nil
}

type job struct {
	item       Item
	attachment Attachment
	path       string
}

// Load returns one document per PDF attachment, in export order.
// Attachments that cannot be found or whose text extraction fails are
// skipped with a warning.
func (l *Loader) Load(ctx context.Context, items []Item) ([]core.Document, error) {
	var jobs []job
	for _, it := range items {
		for _, att := range it.Attachments {
			p := strings.TrimSpace(att.Path)
			if p == "" || !strings.EqualFold(filepath.Ext(p), ".pdf") {
				continue
			}
			resolved, err := l.resolver.Resolve(p)
			if err != nil {
				l.logger.Warn("pdf not found", "path", p, "baseDir", l.resolver.BaseDir)
				continue
			}
			jobs = append(jobs, job{item: it, attachment: att, path: resolved})
		}
	}
	l.logger.Info("attachments resolved", "items", len(items), "pdfs", len(jobs))

	docs := make([]*core.Document, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			res, err := l.extractor.Extract(gctx, j.path)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				l.logger.Warn("text extraction failed, attachment skipped", "path", j.path, "err", err)
				return nil
			}
			doc := buildDocument(j, res)
			docs[i] = &doc
			l.logger.Debug("attachment processed", "path", j.path, "provider", res.Provider)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]core.Document, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

func buildDocument(j job, res ocr.Result) core.Document {
	return core.Document{
		Text:        res.Text,
		Title:       j.item.Title,
		Authors:     j.item.Authors(),
		Date:        j.item.Date,
		Filename:    filepath.Base(strings.TrimSpace(j.attachment.Path)),
		Type:        j.item.ItemType,
		OCRProvider: res.Provider,
		Meta: map[string]string{
			MetaURL:             j.item.URL,
			MetaDOI:             j.item.DOI,
			MetaPath:            j.path,
			MetaAttachmentTitle: j.attachment.Title,
		},
		SourceType: SourceType,
		IngestedAt: time.Now(),
	}
}
