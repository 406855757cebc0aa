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
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAPIKeyRequired is returned when a remote provider has no credentials.
	ErrAPIKeyRequired = errors.New("api key is required")

	// ErrNoText indicates a provider returned nothing usable.
	ErrNoText = errors.New("no text extracted")

	// ErrRender indicates a page could not be rasterized.
	ErrRender = errors.New("page rendering failed")

	// ErrInvalidPage is returned for page numbers below 1.
	ErrInvalidPage = errors.New("invalid page number")

	// ErrNoExtractors indicates an empty chain.
	ErrNoExtractors = errors.New("no extractor configured")
)

// ExtractionError reports that every provider failed for a document.
type ExtractionError struct {
	Path string
	Errs []error
}

func (e *ExtractionError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("text extraction failed for %s: %s", e.Path, strings.Join(msgs, "; "))
}

func (e *ExtractionError) Unwrap() []error {
	return e.Errs
}
