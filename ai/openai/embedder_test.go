package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/poiesic/ragpipe/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// embeddingServer answers the embeddings endpoint and records the inputs.
func embeddingServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu     sync.Mutex
		inputs []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []string `json:"input"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		mu.Lock()
		inputs = append(inputs, body.Input...)
		mu.Unlock()

		data := make([]map[string]any, len(body.Input))
		for i := range body.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{0.5, 0.25}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-large",
			"usage":  map[string]int{"prompt_tokens": 4, "total_tokens": 4},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), inputs...)
	}
}

func TestEmbedder_KeepsNewlines(t *testing.T) {
	srv, inputs := embeddingServer(t)
	e, err := newEmbedder(ai.NewConfig(ai.WithAPIKey("test"), ai.WithHost(srv.URL)))
	require.NoError(t, err)

	text := "Chapitre premier\n\nLes registres paroissiaux\nde la commune."
	vectors, err := e.EmbedTexts(context.Background(), []string{text})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, []float32{0.5, 0.25}, vectors[0])
	assert.Equal(t, []string{text}, inputs())
}
