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

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"
)

// MinPageWords is the word count under which a page is considered to lack
// a usable text layer.
const MinPageWords = 50

// PageCount returns the number of pages of a PDF file.
func PageCount(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return r.NumPage(), nil
}

// ImageOCR recognizes the text of a page image.
type ImageOCR func(ctx context.Context, image []byte) (string, error)

// DocconvOCR runs tesseract through docconv. docconv only links tesseract
// when built with the ocr tag; otherwise every call fails and the legacy
// tier keeps the text layer.
func DocconvOCR(_ context.Context, image []byte) (string, error) {
	text, _, err := docconv.ConvertImage(bytes.NewReader(image))
	if err != nil {
		return "", err
	}
	return text, nil
}

// Legacy reads the embedded text layer locally. A page with fewer than
// MinPageWords words is rendered and passed through OCR instead.
type Legacy struct {
	maxPages int
	renderer PageRenderer
	ocr      ImageOCR
	logger   *slog.Logger
}

// NewLegacy creates the local tier with Poppler rendering and DocconvOCR.
// maxPages <= 0 reads every page.
func NewLegacy(maxPages int, logger *slog.Logger) *Legacy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Legacy{
		maxPages: maxPages,
		renderer: Poppler{},
		ocr:      DocconvOCR,
		logger:   logger.With("component", "ocr", "provider", ProviderLegacy),
	}
}

// Name implements Extractor.
func (l *Legacy) Name() string {
	return ProviderLegacy
}

// Extract implements Extractor.
func (l *Legacy) Extract(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	if l.maxPages > 0 {
		n = min(n, l.maxPages)
	}

	var pages []string
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		layer, err := p.GetPlainText(nil)
		if err != nil {
			l.logger.Warn("page text layer unreadable", "path", path, "page", i, "err", err)
			layer = ""
		}
		if text := l.pageText(ctx, path, i, layer); text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n\n"), nil
}

// pageText returns the text layer of a page, or its OCR text when the layer
// has fewer than MinPageWords words. OCR failures keep the layer.
func (l *Legacy) pageText(ctx context.Context, path string, page int, layer string) string {
	layer = strings.TrimSpace(layer)
	if wordCount(layer) >= MinPageWords {
		return layer
	}

	image, err := l.renderer.RenderPage(ctx, path, page)
	if err != nil {
		l.logger.Warn("page rendering failed, keeping text layer", "path", path, "page", page, "err", err)
		return layer
	}
	text, err := l.ocr(ctx, image)
	if err != nil {
		l.logger.Warn("page ocr failed, keeping text layer", "path", path, "page", page, "err", err)
		return layer
	}
	if text = strings.TrimSpace(text); text != "" {
		l.logger.Debug("using ocr text", "path", path, "page", page, "words", wordCount(text))
		return text
	}
	return layer
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
