package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://api.openai.com/v1", cfg.EmbeddingHost)
	assert.Equal(t, "https://api.openai.com/v1", cfg.GeneratorHost)
	assert.Equal(t, "text-embedding-3-large", cfg.EmbeddingModel)
	assert.Equal(t, "gpt-4o-mini", cfg.GeneratorModel)
	assert.Equal(t, 0.3, cfg.Temperature)
	assert.Equal(t, 8000, cfg.MaxTokens)
	assert.Empty(t, cfg.EmbeddingAPIKey)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with api key", func(t *testing.T) {
		cfg := NewConfig(WithAPIKey("sk-test"))
		assert.Equal(t, "sk-test", cfg.EmbeddingAPIKey)
		assert.Equal(t, "sk-test", cfg.GeneratorAPIKey)
	})

	t.Run("with openrouter generator", func(t *testing.T) {
		cfg := NewConfig(
			WithAPIKey("sk-openai"),
			WithGeneratorHost("https://openrouter.ai/api/v1"),
			WithGeneratorAPIKey("sk-or"),
			WithGeneratorModel("openai/gpt-4o-mini"),
		)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "https://openrouter.ai/api/v1", cfg.GeneratorHost)
		assert.Equal(t, "sk-or", cfg.GeneratorAPIKey)
		assert.Equal(t, "sk-openai", cfg.EmbeddingAPIKey)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		expected string
	}{
		{"already has /v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"missing /v1", "http://localhost:11434", "http://localhost:11434/v1"},
		{"has trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"openrouter path", "https://openrouter.ai/api/v1", "https://openrouter.ai/api/v1"},
		{"empty host", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.host, GeneratorHost: tt.host}
			cfg.Normalize()

			assert.Equal(t, tt.expected, cfg.EmbeddingHost)
			assert.Equal(t, tt.expected, cfg.GeneratorHost)
		})
	}

	t.Run("generator key falls back to embedding key", func(t *testing.T) {
		cfg := &Config{EmbeddingAPIKey: "sk-1"}
		cfg.Normalize()
		assert.Equal(t, "sk-1", cfg.GeneratorAPIKey)
	})
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return NewConfig(WithAPIKey("sk-test"))
	}

	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }, "EmbeddingHost is required"},
		{"missing generator host", func(c *Config) { c.GeneratorHost = "" }, "GeneratorHost is required"},
		{"missing embedding model", func(c *Config) { c.EmbeddingModel = "" }, "EmbeddingModel is required"},
		{"missing generator model", func(c *Config) { c.GeneratorModel = "" }, "GeneratorModel is required"},
		{"missing api key", func(c *Config) { c.EmbeddingAPIKey = ""; c.GeneratorAPIKey = "" }, "EmbeddingAPIKey is required"},
		{"temperature too high", func(c *Config) { c.Temperature = 3 }, "Temperature"},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }, "MaxTokens"},
		{"negative rate", func(c *Config) { c.RequestsPerMinute = -1 }, "RequestsPerMinute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := &Config{}
	WithEmbeddingHost("http://embed:8080/v1")(cfg)
	WithGeneratorHost("http://gen:9090/v1")(cfg)
	WithEmbeddingModel("embed-model")(cfg)
	WithGeneratorModel("gen-model")(cfg)
	WithTemperature(0.7)(cfg)
	WithMaxTokens(512)(cfg)
	WithRequestsPerMinute(60)(cfg)

	assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://gen:9090/v1", cfg.GeneratorHost)
	assert.Equal(t, "embed-model", cfg.EmbeddingModel)
	assert.Equal(t, "gen-model", cfg.GeneratorModel)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Equal(t, 512, cfg.MaxTokens)
	assert.Equal(t, 60, cfg.RequestsPerMinute)

	WithHost("http://both:1234/v1")(cfg)
	assert.Equal(t, "http://both:1234/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://both:1234/v1", cfg.GeneratorHost)
}
