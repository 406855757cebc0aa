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

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/poiesic/ragpipe/core"
	"github.com/poiesic/ragpipe/ocr"
	"github.com/poiesic/ragpipe/zotero"
	"github.com/urfave/cli/v2"
)

func zoteroCommand() *cli.Command {
	return &cli.Command{
		Name:   "zotero",
		Usage:  "OCR the PDF attachments of a Zotero export (or a PDF directory) into a pipeline CSV",
		Action: zoteroAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "export",
				Usage: "Zotero JSON export",
			},
			&cli.StringFlag{
				Name:  "pdf-dir",
				Usage: "Directory of PDFs to load instead of a Zotero export",
			},
			&cli.StringFlag{
				Name:  "base-dir",
				Usage: "Directory attachment paths are resolved against (default: the export's directory)",
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Output CSV path",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of documents extracted in parallel",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "max-pages",
				Usage: "Maximum pages sent to each OCR provider (0 uses OCR_MAX_PAGES)",
			},
		},
	}
}

func zoteroAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	exportPath := c.String("export")
	pdfDir := c.String("pdf-dir")
	if (exportPath == "") == (pdfDir == "") {
		return fmt.Errorf("exactly one of --export or --pdf-dir is required")
	}
	if c.Int("concurrency") <= 0 {
		return fmt.Errorf("concurrency must be greater than 0")
	}

	env, err := loadEnv(c)
	if err != nil {
		return err
	}
	ocrConfig, err := env.OCR(c.Int("max-pages"))
	if err != nil {
		return err
	}
	chain, closeChain, err := ocr.NewStandardChain(ctx, ocrConfig, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create OCR chain: %w", err)
	}
	defer closeChain()

	baseDir := c.String("base-dir")
	if baseDir == "" && exportPath != "" {
		baseDir = filepath.Dir(exportPath)
	}
	loader, err := zotero.NewLoader(chain, baseDir, zotero.WithConcurrency(c.Int("concurrency")))
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "OCR providers: %v\n", chain.Providers())
	fmt.Fprintln(os.Stderr)

	var docs []core.Document
	if exportPath != "" {
		items, err := zotero.LoadExport(exportPath)
		if err != nil {
			return err
		}
		if docs, err = loader.Load(ctx, items); err != nil {
			return err
		}
	} else {
		if docs, err = loader.LoadDirectory(ctx, pdfDir); err != nil {
			return err
		}
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents extracted")
	}

	if err := zotero.WriteCSVFile(c.String("output"), docs); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	slog.Info("wrote pipeline CSV", "path", c.String("output"), "documents", len(docs))
	return nil
}
