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
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultOpenAIVisionModel is the OpenAI model used for page transcription.
const DefaultOpenAIVisionModel = "gpt-4o-mini"

type openAITranscriber struct {
	model     llms.Model
	maxTokens int
}

func (o openAITranscriber) TranscribePage(ctx context.Context, image []byte, page int) (string, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(visionSystemInstruction)},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(pagePrompt(page)),
				llms.ImageURLPart("data:image/png;base64," + base64.StdEncoding.EncodeToString(image)),
			},
		},
	}
	resp, err := o.model.GenerateContent(ctx, content, llms.WithMaxTokens(o.maxTokens))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// NewOpenAIVision creates a vision tier backed by an OpenAI-compatible chat
// model that accepts image input.
func NewOpenAIVision(cfg VisionConfig, logger *slog.Logger) (*Vision, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrAPIKeyRequired)
	}
	name := cfg.Model
	if name == "" {
		name = DefaultOpenAIVisionModel
	}
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(name),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return NewVision(ProviderOpenAI, openAITranscriber{model: client, maxTokens: cfg.maxTokens()}, cfg, logger), nil
}
