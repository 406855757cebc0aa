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
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Provider names recorded next to the extracted text.
const (
	ProviderMistral = "mistral"
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
	ProviderLegacy  = "legacy"
)

// Extractor turns a PDF file into text.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, path string) (string, error)
}

// Result is the text of a document and the provider that produced it.
type Result struct {
	Text     string
	Provider string
}

// Chain tries extractors in order until one returns non-empty text.
type Chain struct {
	extractors []Extractor
	logger     *slog.Logger
}

// NewChain builds a chain. Nil extractors are skipped.
func NewChain(logger *slog.Logger, extractors ...Extractor) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{logger: logger.With("component", "ocr")}
	for _, e := range extractors {
		if e != nil {
			c.extractors = append(c.extractors, e)
		}
	}
	return c
}

// Providers lists the names of the configured extractors in order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.extractors))
	for i, e := range c.extractors {
		names[i] = e.Name()
	}
	return names
}

// Extract returns the first non-empty result. When every extractor fails
// the error is an *ExtractionError.
func (c *Chain) Extract(ctx context.Context, path string) (Result, error) {
	if len(c.extractors) == 0 {
		return Result{}, &ExtractionError{Path: path, Errs: []error{ErrNoExtractors}}
	}

	var errs []error
	for _, e := range c.extractors {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		c.logger.Debug("trying extractor", "provider", e.Name(), "path", path)
		text, err := e.Extract(ctx, path)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrNoText
		}
		if err != nil {
			c.logger.Warn("extractor failed", "provider", e.Name(), "path", path, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
			continue
		}
		return Result{Text: strings.TrimSpace(text), Provider: e.Name()}, nil
	}
	return Result{}, &ExtractionError{Path: path, Errs: errs}
}

// Config holds credentials and limits for the standard chain.
type Config struct {
	MistralAPIKey  string
	MistralBaseURL string
	MistralModel   string
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	GeminiAPIKey   string
	GeminiModel    string

	// MaxPages caps the pages sent to every provider. Zero means no cap for
	// Mistral and the legacy tier, and DefaultMaxPages for the vision tier.
	MaxPages int
}

// NewStandardChain builds the Mistral, OpenAI vision, Gemini vision, legacy
// chain. Remote tiers without an API key are left out. Close the returned
// closer when done.
func NewStandardChain(ctx context.Context, cfg Config, logger *slog.Logger) (*Chain, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var extractors []Extractor
	closer := func() error { return nil }

	if cfg.MistralAPIKey != "" {
		m, err := NewMistral(MistralConfig{
			APIKey:   cfg.MistralAPIKey,
			BaseURL:  cfg.MistralBaseURL,
			Model:    cfg.MistralModel,
			MaxPages: cfg.MaxPages,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		extractors = append(extractors, m)
	} else {
		logger.Debug("MISTRAL_API_KEY not set, mistral ocr disabled")
	}

	if cfg.OpenAIAPIKey != "" {
		v, err := NewOpenAIVision(VisionConfig{
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OpenAIBaseURL,
			Model:    cfg.OpenAIModel,
			MaxPages: cfg.MaxPages,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		extractors = append(extractors, v)
	} else {
		logger.Debug("OPENAI_API_KEY not set, openai vision ocr disabled")
	}

	if cfg.GeminiAPIKey != "" {
		v, err := NewGeminiVision(ctx, VisionConfig{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiModel,
			MaxPages: cfg.MaxPages,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		extractors = append(extractors, v)
		closer = v.Close
	} else {
		logger.Debug("GEMINI_API_KEY not set, gemini vision ocr disabled")
	}

	if len(extractors) == 0 {
		logger.Warn("no ocr api key configured, falling back to local text extraction only")
	}
	extractors = append(extractors, NewLegacy(cfg.MaxPages, logger))

	return NewChain(logger, extractors...), closer, nil
}
