package ocr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mistralServer struct {
	mu         sync.Mutex
	uploadBody string
	ocrRequest ocrRequest
	deleted    []string
	ocrStatus  int
	ocrBody    string
}

func (s *mistralServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/files", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "ocr", r.FormValue("purpose"))
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		s.mu.Lock()
		s.uploadBody = hdr.Filename + ":" + string(data)
		s.mu.Unlock()
		_, _ = w.Write([]byte(`{"id":"file-123"}`))
	})
	mux.HandleFunc("POST /v1/ocr", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&s.ocrRequest))
		s.mu.Unlock()
		if s.ocrStatus != 0 {
			w.WriteHeader(s.ocrStatus)
		}
		_, _ = w.Write([]byte(s.ocrBody))
	})
	mux.HandleFunc("DELETE /v1/files/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.deleted = append(s.deleted, r.PathValue("id"))
		s.mu.Unlock()
		_, _ = w.Write([]byte(`{"deleted":true}`))
	})
	return mux
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "article.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))
	return path
}

func TestMistral_Extract(t *testing.T) {
	s := &mistralServer{
		ocrBody: `{"pages":[{"index":0,"markdown":"# Titre"},{"index":1,"markdown":"Corps"},{"index":2,"markdown":"Corps"}]}`,
	}
	srv := httptest.NewServer(s.handler(t))
	defer srv.Close()

	m, err := NewMistral(MistralConfig{APIKey: "secret", BaseURL: srv.URL + "/", MaxPages: 3}, nil)
	require.NoError(t, err)

	text, err := m.Extract(context.Background(), writePDF(t))
	require.NoError(t, err)
	assert.Equal(t, "# Titre\n\nCorps", text)

	assert.Equal(t, "article.pdf:%PDF-1.4 fake", s.uploadBody)
	assert.Equal(t, DefaultMistralModel, s.ocrRequest.Model)
	assert.Equal(t, ocrDocument{Type: "file", FileID: "file-123"}, s.ocrRequest.Document)
	assert.False(t, s.ocrRequest.IncludeImageBase64)
	assert.Equal(t, []int{0, 1, 2}, s.ocrRequest.Pages)
	assert.Equal(t, []string{"file-123"}, s.deleted)
}

func TestMistral_HTTPError(t *testing.T) {
	s := &mistralServer{ocrStatus: http.StatusTooManyRequests, ocrBody: `{"message":"rate limited"}`}
	srv := httptest.NewServer(s.handler(t))
	defer srv.Close()

	m, err := NewMistral(MistralConfig{APIKey: "secret", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = m.Extract(context.Background(), writePDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, []string{"file-123"}, s.deleted)
}

func TestMistral_EmptyResponse(t *testing.T) {
	s := &mistralServer{ocrBody: `{"pages":[{"markdown":"   "}]}`}
	srv := httptest.NewServer(s.handler(t))
	defer srv.Close()

	m, err := NewMistral(MistralConfig{APIKey: "secret", BaseURL: srv.URL, KeepUploads: true}, nil)
	require.NoError(t, err)

	_, err = m.Extract(context.Background(), writePDF(t))
	assert.ErrorIs(t, err, ErrNoText)
	assert.Empty(t, s.deleted)
}

func TestMistral_RequiresKey(t *testing.T) {
	_, err := NewMistral(MistralConfig{}, nil)
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}

func TestOCRResponse_Combined(t *testing.T) {
	r := ocrResponse{Text: "full"}
	r.Pages = append(r.Pages, struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
		Text     string `json:"text"`
	}{Markdown: "page", Text: "full"})
	assert.Equal(t, "full\n\npage", r.combined())
}

func TestUploadResponse_FileID(t *testing.T) {
	var u uploadResponse
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"id":"nested"}}`), &u))
	assert.Equal(t, "nested", u.fileID())

	require.NoError(t, json.Unmarshal([]byte(`{"file_id":"flat"}`), &u))
	assert.Equal(t, "flat", u.fileID())
}
