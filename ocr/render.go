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
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRenderScale renders pages at twice the PDF's 72 dpi.
const DefaultRenderScale = 2.0

// PageRenderer rasterizes one page (1-based) of a PDF to PNG.
type PageRenderer interface {
	RenderPage(ctx context.Context, path string, page int) ([]byte, error)
}

// Poppler renders pages with poppler's pdftoppm, the toolkit docconv also
// relies on for PDFs.
type Poppler struct {
	// Scale multiplies the 72 dpi page size. Zero means DefaultRenderScale.
	Scale float64

	// Bin is the pdftoppm executable. Empty means "pdftoppm" on PATH.
	Bin string
}

// RenderPage implements PageRenderer.
func (p Poppler) RenderPage(ctx context.Context, path string, page int) ([]byte, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}
	scale := p.Scale
	if scale <= 0 {
		scale = DefaultRenderScale
	}
	bin := p.Bin
	if bin == "" {
		bin = "pdftoppm"
	}

	dir, err := os.MkdirTemp("", "ragpipe-page-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	root := filepath.Join(dir, "page")
	n := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, bin,
		"-png",
		"-r", strconv.Itoa(int(math.Round(72*scale))),
		"-f", n, "-l", n,
		"-singlefile",
		path, root,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: page %d: %v %s", ErrRender, page, err, strings.TrimSpace(stderr.String()))
	}
	return os.ReadFile(root + ".png")
}
