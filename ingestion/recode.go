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
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/retry"
)

const (
	// RecodeSystemPrompt is the system message of every recoding request.
	RecodeSystemPrompt = "Assistant spécialisé en recodage de textes académiques."

	// RecodeInstructions asks the model to strip OCR noise without rewriting.
	RecodeInstructions = "ce chunk est issu d'un ocr brut qui laisse beaucoup de blocs de texte inutiles comme des titres de pages, des numeros, etc. Nettoie ce chunk pour en faire un texte propre qui commence par une phrase complète et se termine par un point. Supprime le bruit d'OCR et les imperfections en conservant le sens original. Ne echange ni ajoute aucun mot du texte d'origine. C'est une correction et un nettoyage de texte (suppression des erreurs) pas une réécriture"
)

// RecodePrompt builds the user message for one chunk.
func RecodePrompt(instructions, chunk string) string {
	return fmt.Sprintf("Instructions : %s\n\nTexte à recoder :\n%s\n\nTexte recodé :", instructions, chunk)
}

// recoder cleans batches of chunks through a text generator.
type recoder struct {
	generator    ai.Generator
	pool         *ants.Pool
	policy       retry.Policy
	instructions string
	logger       *slog.Logger
}

// recodeBatch returns one text per input chunk, in input order. The first
// attempt for every chunk runs concurrently on the pool; remaining attempts
// run sequentially. A chunk that exhausts its attempts keeps its original text.
// The second return value counts those fallbacks.
func (r *recoder) recodeBatch(ctx context.Context, chunks []string) ([]string, int) {
	results := make([]string, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	for i := range chunks {
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = r.call(ctx, chunks[i])
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	fallbacks := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		r.logger.Warn("recoding failed on first pass", "chunk", i+1, "err", err)
		text, err := r.retryChunk(ctx, chunks[i], err)
		if err != nil {
			r.logger.Warn("recoding failed after retry, keeping original text", "chunk", i+1, "err", err)
			results[i] = chunks[i]
			fallbacks++
			continue
		}
		r.logger.Debug("chunk recoded on retry", "chunk", i+1)
		results[i] = text
	}
	return results, fallbacks
}

func (r *recoder) retryChunk(ctx context.Context, chunk string, firstErr error) (string, error) {
	lastErr := firstErr
	for attempt := 2; attempt <= r.policy.MaxAttempts; attempt++ {
		if r.policy.Retryable != nil && !r.policy.Retryable(lastErr) {
			break
		}
		if err := r.policy.Wait(ctx, attempt-1); err != nil {
			return "", err
		}
		text, err := r.call(ctx, chunk)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (r *recoder) call(ctx context.Context, chunk string) (string, error) {
	out, err := r.generator.Generate(ctx, RecodeSystemPrompt, RecodePrompt(r.instructions, chunk))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ai.ErrEmptyCompletion
	}
	return out, nil
}
