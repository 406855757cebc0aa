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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/poiesic/ragpipe/core"
)

// CSVColumns is the header of the pipeline input file.
var CSVColumns = []string{
	"type", "title", "authors", "date", "url", "doi", "filename", "path",
	"attachment_title", "texteocr", "texteocr_provider",
}

const utf8BOM = "\uFEFF"

// WriteCSV writes documents as pipeline input rows, preceded by a UTF-8 BOM
// so spreadsheet tools detect the encoding.
func WriteCSV(w io.Writer, docs []core.Document) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns); err != nil {
		return err
	}
	for _, d := range docs {
		meta := d.Meta
		if meta == nil {
			meta = map[string]string{}
		}
		row := []string{
			d.Type, d.Title, d.Authors, d.Date, meta[MetaURL], meta[MetaDOI],
			d.Filename, meta[MetaPath], meta[MetaAttachmentTitle], d.Text, d.OCRProvider,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes documents to path, creating parent directories.
func WriteCSVFile(path string, docs []core.Document) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, docs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
