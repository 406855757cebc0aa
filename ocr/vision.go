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
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

const (
	// DefaultGeminiModel is the Gemini model used for page transcription.
	DefaultGeminiModel = "gemini-2.0-flash"

	// DefaultMaxPages caps the pages transcribed by a vision tier.
	DefaultMaxPages = 10

	// DefaultVisionMaxTokens bounds the transcription of one page.
	DefaultVisionMaxTokens = 2048

	// DefaultVisionRPM is the request rate allowed against a vision API.
	DefaultVisionRPM = 60

	// VisionPrompt asks for a faithful Markdown transcription of one page.
	VisionPrompt = "Transcris cette page PDF en Markdown lisible sans résumer ni modifier le contenu."

	visionSystemInstruction = "You are a meticulous OCR engine that outputs Markdown without omitting any content."
)

// VisionConfig configures a vision tier.
type VisionConfig struct {
	APIKey string

	// BaseURL overrides the endpoint of OpenAI-compatible providers.
	BaseURL string

	Model     string
	MaxPages  int
	MaxTokens int

	// RequestsPerMinute throttles page requests. Zero means DefaultVisionRPM.
	RequestsPerMinute int

	// Renderer rasterizes pages. Nil means Poppler at DefaultRenderScale.
	Renderer PageRenderer
}

func (c VisionConfig) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return DefaultVisionMaxTokens
}

// PageTranscriber transcribes one rendered page image (PNG).
type PageTranscriber interface {
	TranscribePage(ctx context.Context, image []byte, page int) (string, error)
}

func pagePrompt(page int) string {
	return fmt.Sprintf("%s\nPage %d.", VisionPrompt, page)
}

type geminiTranscriber struct {
	model *genai.GenerativeModel
}

func (g geminiTranscriber) TranscribePage(ctx context.Context, image []byte, page int) (string, error) {
	resp, err := g.model.GenerateContent(ctx,
		genai.Text(pagePrompt(page)),
		genai.ImageData("png", image),
	)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		break
	}
	return strings.TrimSpace(sb.String()), nil
}

// Vision renders PDF pages and transcribes them one request at a time with a
// multimodal model.
type Vision struct {
	name        string
	transcriber PageTranscriber
	renderer    PageRenderer
	pageCount   func(path string) (int, error)
	maxPages    int
	limiter     *rate.Limiter
	closeFn     func() error
	logger      *slog.Logger
}

// NewGeminiVision creates a vision tier backed by Gemini.
func NewGeminiVision(ctx context.Context, cfg VisionConfig, logger *slog.Logger) (*Vision, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrAPIKeyRequired)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	name := cfg.Model
	if name == "" {
		name = DefaultGeminiModel
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(int32(cfg.maxTokens()))
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(visionSystemInstruction)},
	}

	v := NewVision(ProviderGemini, geminiTranscriber{model: model}, cfg, logger)
	v.closeFn = client.Close
	return v, nil
}

// NewVision creates a vision tier named provider around any page transcriber.
func NewVision(provider string, t PageTranscriber, cfg VisionConfig, logger *slog.Logger) *Vision {
	if logger == nil {
		logger = slog.Default()
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultVisionRPM
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = Poppler{}
	}
	return &Vision{
		name:        provider,
		transcriber: t,
		renderer:    renderer,
		pageCount:   PageCount,
		maxPages:    maxPages,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		closeFn:     func() error { return nil },
		logger:      logger.With("component", "ocr", "provider", provider),
	}
}

// Name implements Extractor.
func (v *Vision) Name() string {
	return v.name
}

// Extract transcribes up to the page cap and joins the pages with
// <!-- Page N --> markers. Empty pages are left out.
func (v *Vision) Extract(ctx context.Context, path string) (string, error) {
	total, err := v.pageCount(path)
	if err != nil {
		return "", fmt.Errorf("count pages: %w", err)
	}

	limit := min(total, v.maxPages)
	var pages []string
	for page := 1; page <= limit; page++ {
		image, err := v.renderer.RenderPage(ctx, path, page)
		if err != nil {
			return "", err
		}
		if err := v.limiter.Wait(ctx); err != nil {
			return "", err
		}
		text, err := v.transcriber.TranscribePage(ctx, image, page)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			v.logger.Debug("empty page transcription", "path", path, "page", page)
			continue
		}
		pages = append(pages, fmt.Sprintf("<!-- Page %d -->\n%s", page, text))
	}
	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n\n"), nil
}

// Close releases the underlying client.
func (v *Vision) Close() error {
	return v.closeFn()
}
