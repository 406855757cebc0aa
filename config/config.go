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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/ocr"
	"github.com/poiesic/ragpipe/vectordb/milvus"
	"github.com/poiesic/ragpipe/vectordb/pgvector"
	"github.com/poiesic/ragpipe/vectordb/pinecone"
	"github.com/poiesic/ragpipe/vectordb/qdrant"
	"github.com/poiesic/ragpipe/vectordb/weaviate"
)

// Recognized keys.
const (
	KeyOpenAIAPIKey           = "OPENAI_API_KEY"
	KeyOpenAIBaseURL          = "OPENAI_BASE_URL"
	KeyOpenRouterAPIKey       = "OPENROUTER_API_KEY"
	KeyOpenRouterDefaultModel = "OPENROUTER_DEFAULT_MODEL"
	KeyMistralAPIKey          = "MISTRAL_API_KEY"
	KeyMistralBaseURL         = "MISTRAL_API_BASE_URL"
	KeyMistralOCRModel        = "MISTRAL_OCR_MODEL"
	KeyOpenAIOCRModel         = "OPENAI_OCR_MODEL"
	KeyGeminiAPIKey           = "GEMINI_API_KEY"
	KeyGeminiOCRModel         = "GEMINI_OCR_MODEL"
	KeyOCRMaxPages            = "OCR_MAX_PAGES"
	KeyPineconeAPIKey         = "PINECONE_API_KEY"
	KeyWeaviateURL            = "WEAVIATE_URL"
	KeyWeaviateAPIKey         = "WEAVIATE_API_KEY"
	KeyQdrantURL              = "QDRANT_URL"
	KeyQdrantAPIKey           = "QDRANT_API_KEY"
	KeyMilvusAddress          = "MILVUS_ADDRESS"
	KeyMilvusUsername         = "MILVUS_USERNAME"
	KeyMilvusPassword         = "MILVUS_PASSWORD"
	KeyPGVectorDSN            = "PGVECTOR_DSN"
)

// DefaultEnvFile is read when Load is called with an empty path.
const DefaultEnvFile = ".env"

// OpenRouterHost is the generator endpoint used when an OpenRouter key is set.
const OpenRouterHost = "https://openrouter.ai/api/v1"

// Env is a read-only view over the env file and the process environment.
type Env struct {
	file   map[string]string
	source string
}

// Load reads key=value pairs from path. An empty path means DefaultEnvFile,
// which may be absent. An explicit path that does not exist is an error.
func Load(path string) (*Env, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return &Env{file: map[string]string{}}, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return &Env{file: values, source: path}, nil
}

// FromMap builds an Env over fixed values. The process environment still
// takes precedence.
func FromMap(values map[string]string) *Env {
	file := make(map[string]string, len(values))
	for k, v := range values {
		file[k] = v
	}
	return &Env{file: file}
}

// Source returns the file the values were read from, or "" if none.
func (e *Env) Source() string {
	return e.source
}

// Lookup returns the trimmed value for key. Empty values count as unset.
func (e *Env) Lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v, true
		}
	}
	if v, ok := e.file[key]; ok {
		if v = strings.TrimSpace(v); v != "" {
			return v, true
		}
	}
	return "", false
}

// String returns the value for key or fallback.
func (e *Env) String(key, fallback string) string {
	if v, ok := e.Lookup(key); ok {
		return v
	}
	return fallback
}

// Require returns the value for key or ErrMissingKey.
func (e *Env) Require(key string) (string, error) {
	v, ok := e.Lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return v, nil
}

// Int returns the integer value for key or fallback when unset.
func (e *Env) Int(key string, fallback int) (int, error) {
	v, ok := e.Lookup(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v)
	}
	return n, nil
}

// AI builds the embedding and recoding configuration. OPENAI_API_KEY is
// required. When OPENROUTER_API_KEY is set, recoding goes through
// OpenRouter while embeddings stay on the OpenAI endpoint. Extra options
// are applied last and the result is validated.
func (e *Env) AI(opts ...ai.ConfigOption) (*ai.Config, error) {
	key, err := e.Require(KeyOpenAIAPIKey)
	if err != nil {
		return nil, err
	}

	base := []ai.ConfigOption{ai.WithAPIKey(key)}
	if host, ok := e.Lookup(KeyOpenAIBaseURL); ok {
		base = append(base, ai.WithHost(host))
	}
	if orKey, ok := e.Lookup(KeyOpenRouterAPIKey); ok {
		base = append(base,
			ai.WithGeneratorHost(OpenRouterHost),
			ai.WithGeneratorAPIKey(orKey),
		)
		if model, ok := e.Lookup(KeyOpenRouterDefaultModel); ok {
			base = append(base, ai.WithGeneratorModel(model))
		}
	}

	cfg := ai.NewConfig(append(base, opts...)...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OCR builds the extraction chain configuration. maxPages overrides
// OCR_MAX_PAGES when positive.
func (e *Env) OCR(maxPages int) (ocr.Config, error) {
	if maxPages <= 0 {
		n, err := e.Int(KeyOCRMaxPages, 0)
		if err != nil {
			return ocr.Config{}, err
		}
		maxPages = n
	}
	if maxPages < 0 {
		return ocr.Config{}, fmt.Errorf("%w: %s must not be negative", ErrInvalidValue, KeyOCRMaxPages)
	}
	return ocr.Config{
		MistralAPIKey:  e.String(KeyMistralAPIKey, ""),
		MistralBaseURL: e.String(KeyMistralBaseURL, ""),
		MistralModel:   e.String(KeyMistralOCRModel, ""),
		OpenAIAPIKey:   e.String(KeyOpenAIAPIKey, ""),
		OpenAIBaseURL:  e.String(KeyOpenAIBaseURL, ""),
		OpenAIModel:    e.String(KeyOpenAIOCRModel, ""),
		GeminiAPIKey:   e.String(KeyGeminiAPIKey, ""),
		GeminiModel:    e.String(KeyGeminiOCRModel, ""),
		MaxPages:       maxPages,
	}, nil
}

// Pinecone returns the Pinecone settings for index and namespace.
func (e *Env) Pinecone(index, namespace string) (pinecone.Config, error) {
	key, err := e.Require(KeyPineconeAPIKey)
	if err != nil {
		return pinecone.Config{}, err
	}
	return pinecone.Config{APIKey: key, IndexName: index, Namespace: namespace}, nil
}

// Weaviate returns the Weaviate settings. url overrides WEAVIATE_URL.
func (e *Env) Weaviate(url, class, tenant string) (weaviate.Config, error) {
	if url == "" {
		var err error
		if url, err = e.Require(KeyWeaviateURL); err != nil {
			return weaviate.Config{}, err
		}
	}
	key, err := e.Require(KeyWeaviateAPIKey)
	if err != nil {
		return weaviate.Config{}, err
	}
	return weaviate.Config{URL: url, APIKey: key, ClassName: class, Tenant: tenant}, nil
}

// Qdrant returns the Qdrant settings. url overrides QDRANT_URL and the API
// key is optional.
func (e *Env) Qdrant(url, collection string) (qdrant.Config, error) {
	if url == "" {
		var err error
		if url, err = e.Require(KeyQdrantURL); err != nil {
			return qdrant.Config{}, err
		}
	}
	return qdrant.Config{
		URL:        url,
		APIKey:     e.String(KeyQdrantAPIKey, ""),
		Collection: collection,
	}, nil
}

// Milvus returns the Milvus settings. address overrides MILVUS_ADDRESS.
func (e *Env) Milvus(address, collection string) (milvus.Config, error) {
	if address == "" {
		var err error
		if address, err = e.Require(KeyMilvusAddress); err != nil {
			return milvus.Config{}, err
		}
	}
	return milvus.Config{
		Address:    address,
		Username:   e.String(KeyMilvusUsername, ""),
		Password:   e.String(KeyMilvusPassword, ""),
		Collection: collection,
	}, nil
}

// PGVector returns the Postgres settings. dsn overrides PGVECTOR_DSN.
func (e *Env) PGVector(dsn, table string) (pgvector.Config, error) {
	if dsn == "" {
		var err error
		if dsn, err = e.Require(KeyPGVectorDSN); err != nil {
			return pgvector.Config{}, err
		}
	}
	return pgvector.Config{DSN: dsn, Table: table}, nil
}
