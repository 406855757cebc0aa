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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultMistralBaseURL is the public Mistral API endpoint.
	DefaultMistralBaseURL = "https://api.mistral.ai"

	// DefaultMistralModel is the OCR model requested when none is configured.
	DefaultMistralModel = "mistral-ocr-latest"

	// DefaultMistralTimeout bounds each upload and OCR request.
	DefaultMistralTimeout = 300 * time.Second

	mistralCleanupTimeout = 15 * time.Second
)

// MistralConfig configures the Mistral OCR client.
type MistralConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	MaxPages int
	Timeout  time.Duration

	// KeepUploads disables deletion of the uploaded file after OCR.
	KeepUploads bool
}

// Mistral extracts Markdown text with the Mistral OCR API.
type Mistral struct {
	cfg    MistralConfig
	http   *http.Client
	logger *slog.Logger
}

// NewMistral creates a Mistral OCR client.
func NewMistral(cfg MistralConfig, logger *slog.Logger) (*Mistral, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("mistral: %w", ErrAPIKeyRequired)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultMistralBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultMistralModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultMistralTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mistral{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "ocr", "provider", ProviderMistral),
	}, nil
}

// Name implements Extractor.
func (m *Mistral) Name() string {
	return ProviderMistral
}

// Extract uploads the file, runs OCR on it and deletes the upload.
func (m *Mistral) Extract(ctx context.Context, path string) (string, error) {
	fileID, err := m.upload(ctx, path)
	if err != nil {
		return "", err
	}
	if !m.cfg.KeepUploads {
		defer m.deleteFile(ctx, fileID)
	}

	resp, err := m.ocr(ctx, fileID)
	if err != nil {
		return "", err
	}
	text := resp.combined()
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

type uploadResponse struct {
	ID     string `json:"id"`
	FileID string `json:"file_id"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (u uploadResponse) fileID() string {
	switch {
	case u.ID != "":
		return u.ID
	case u.FileID != "":
		return u.FileID
	}
	return u.Data.ID
}

func (m *Mistral) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("purpose", "ocr"); err != nil {
		return "", err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/v1/files", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var up uploadResponse
	if err := m.do(req, &up); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	id := up.fileID()
	if id == "" {
		return "", fmt.Errorf("upload: response carries no file id")
	}
	return id, nil
}

type ocrRequest struct {
	Model              string      `json:"model"`
	Document           ocrDocument `json:"document"`
	IncludeImageBase64 bool        `json:"include_image_base64"`
	Pages              []int       `json:"pages,omitempty"`
}

type ocrDocument struct {
	Type   string `json:"type"`
	FileID string `json:"file_id"`
}

type ocrResponse struct {
	Text  string `json:"text"`
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
		Text     string `json:"text"`
	} `json:"pages"`
}

// combined joins the document text and every page text, dropping blanks
// and exact duplicates while keeping the first occurrence order.
func (r ocrResponse) combined() string {
	seen := make(map[string]bool)
	var parts []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		parts = append(parts, s)
	}
	add(r.Text)
	for _, p := range r.Pages {
		add(p.Markdown)
		add(p.Text)
	}
	return strings.Join(parts, "\n\n")
}

func (m *Mistral) ocr(ctx context.Context, fileID string) (ocrResponse, error) {
	payload := ocrRequest{
		Model:    m.cfg.Model,
		Document: ocrDocument{Type: "file", FileID: fileID},
	}
	for i := range m.cfg.MaxPages {
		payload.Pages = append(payload.Pages, i)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ocrResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/v1/ocr", bytes.NewReader(data))
	if err != nil {
		return ocrResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out ocrResponse
	if err := m.do(req, &out); err != nil {
		return ocrResponse{}, fmt.Errorf("ocr: %w", err)
	}
	return out, nil
}

// deleteFile removes an upload. Failures are only logged.
func (m *Mistral) deleteFile(ctx context.Context, fileID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mistralCleanupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, m.cfg.BaseURL+"/v1/files/"+fileID, nil)
	if err != nil {
		m.logger.Debug("failed to build delete request", "fileID", fileID, "err", err)
		return
	}
	if err := m.do(req, nil); err != nil {
		m.logger.Debug("failed to delete uploaded file", "fileID", fileID, "err", err)
	}
}

func (m *Mistral) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
