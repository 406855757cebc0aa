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

package ingestion

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/poiesic/ragpipe/core"
	"golang.org/x/text/encoding/charmap"
)

// DefaultTextColumn holds the OCR text in pipeline CSV files.
const DefaultTextColumn = "texteocr"

// CSVOptions controls how a CSV file maps onto documents.
type CSVOptions struct {
	// TextColumn names the column holding document text. Default: texteocr
	TextColumn string

	// Delimiter separates fields. Default: ','
	Delimiter rune

	// MetaColumns restricts the columns copied into Document.Meta.
	// Empty means every column except the text column.
	MetaColumns []string

	// SkipEmpty drops rows whose text is blank.
	SkipEmpty bool

	// AddRowIndex records the 0-based data row index as meta "row_index".
	AddRowIndex bool
}

// DefaultCSVOptions returns the options used for pipeline CSV files.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		TextColumn:  DefaultTextColumn,
		Delimiter:   ',',
		SkipEmpty:   true,
		AddRowIndex: true,
	}
}

var (
	parenthesized = regexp.MustCompile(`\([^)]*\)`)
	nonIdentifier = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	underscores   = regexp.MustCompile(`_+`)
)

// SanitizeColumnName turns a header into a lower snake_case identifier.
// "Date (création)" becomes "date".
func SanitizeColumnName(col string) string {
	col = parenthesized.ReplaceAllString(col, "")
	col = strings.TrimSpace(col)
	col = nonIdentifier.ReplaceAllString(col, "_")
	col = underscores.ReplaceAllString(col, "_")
	col = strings.ToLower(strings.Trim(col, "_"))
	if col == "" {
		return "unnamed"
	}
	return col
}

// ReadCSV loads documents from the CSV file at path.
func ReadCSV(path string, opts CSVOptions) ([]core.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()
	return DecodeCSV(f, opts)
}

// DecodeCSV parses CSV data. Input that is not valid UTF-8 is decoded as
// Windows-1252.
func DecodeCSV(r io.Reader, opts CSVOptions) ([]core.Document, error) {
	logger := slog.Default().With("component", "csv")

	if opts.TextColumn == "" {
		opts.TextColumn = DefaultTextColumn
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		logger.Warn("CSV is not valid UTF-8, decoding as Windows-1252")
		data, err = charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode CSV: %w", err)
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = opts.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = SanitizeColumnName(header[i])
	}

	textColumn := SanitizeColumnName(opts.TextColumn)
	textIdx := -1
	for i, col := range header {
		if col == textColumn {
			textIdx = i
			break
		}
	}
	if textIdx < 0 {
		return nil, fmt.Errorf("%w: %q not in %v", ErrTextColumnMissing, textColumn, header)
	}

	hasProvider := false
	for _, col := range header {
		if col == "texteocr_provider" {
			hasProvider = true
		}
	}

	metaFilter := make(map[string]bool, len(opts.MetaColumns))
	for _, col := range opts.MetaColumns {
		metaFilter[SanitizeColumnName(col)] = true
	}

	var docs []core.Document
	skipped := 0
	now := time.Now().UTC()
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn("skipping malformed CSV line", "row", row, "err", err)
			continue
		}
		if len(record) != len(header) {
			logger.Warn("skipping CSV line with wrong field count", "row", row, "fields", len(record), "expected", len(header))
			continue
		}

		text := strings.TrimSpace(record[textIdx])
		if text == "" && opts.SkipEmpty {
			skipped++
			logger.Debug("skipping row with empty text", "row", row)
			continue
		}

		doc := core.Document{
			Text:       text,
			Meta:       make(map[string]string),
			SourceType: "csv",
			IngestedAt: now,
		}
		for i, col := range header {
			if i == textIdx {
				continue
			}
			value := strings.TrimSpace(record[i])
			switch col {
			case "title":
				doc.Title = value
			case "authors":
				doc.Authors = value
			case "date":
				doc.Date = value
			case "filename":
				doc.Filename = value
			case "type":
				doc.Type = value
			case "texteocr_provider":
				doc.OCRProvider = value
			}
			if len(metaFilter) == 0 || metaFilter[col] {
				doc.Meta[col] = value
			}
		}
		if !hasProvider && textColumn != DefaultTextColumn {
			// Free-form CSV text did not come from an OCR engine.
			doc.OCRProvider = "csv"
		}
		if opts.AddRowIndex {
			doc.Meta["row_index"] = strconv.Itoa(row)
		}
		docs = append(docs, doc)
	}

	logger.Info("CSV loaded", "documents", len(docs), "skipped", skipped)
	if len(docs) == 0 {
		logger.Warn("no documents created from CSV", "textColumn", textColumn)
	}
	return docs, nil
}
