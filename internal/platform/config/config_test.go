package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EMBEDDING_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.AppEnv)
	assert.Equal(t, StoreBackendPostgres, cfg.Store.Backend)
	assert.Equal(t, 20, cfg.Source.MaxArticles)
	assert.Equal(t, time.Second, cfg.Source.RequestDelay)
	assert.Equal(t, "0 */6 * * *", cfg.Ingest.Schedule)
	assert.True(t, cfg.Ingest.RunOnStartup)
	assert.Equal(t, 2*time.Second, cfg.LLM.EnrichDelay)
	assert.Equal(t, 1536, cfg.Embedding.Dimensions)
	assert.Equal(t, 587, cfg.Mail.Port)
}

func TestLoad_EmbeddingInheritsCompletionEndpoint(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "http://llm.local:8000/v1")
	t.Setenv("EMBEDDING_API_KEY", "")
	t.Setenv("EMBEDDING_BASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "http://llm.local:8000/v1", cfg.Embedding.BaseURL)
	assert.True(t, cfg.LLMConfigured())
}

func TestLoad_EmbeddingOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("EMBEDDING_API_KEY", "sk-embed")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-embed", cfg.Embedding.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "sqlite" }, wantErr: true},
		{name: "unknown embedding provider", mutate: func(c *Config) { c.Embedding.Provider = "bert" }, wantErr: true},
		{name: "zero max articles", mutate: func(c *Config) { c.Source.MaxArticles = 0 }, wantErr: true},
		{name: "threshold above 100", mutate: func(c *Config) { c.Notify.DefaultMinCredibility = 101 }, wantErr: true},
		{name: "mongo backend", mutate: func(c *Config) { c.Store.Backend = StoreBackendMongo }},
		{name: "postgres dimension mismatch", mutate: func(c *Config) { c.Embedding.Dimensions = 768 }, wantErr: true},
		{name: "mongo any dimensions", mutate: func(c *Config) {
			c.Store.Backend = StoreBackendMongo
			c.Embedding.Dimensions = 768
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Store:     StoreConfig{Backend: StoreBackendPostgres},
				Source:    SourceConfig{MaxArticles: 20},
				Embedding: EmbeddingConfig{Provider: EmbeddingProviderMock, Dimensions: PostgresEmbeddingDimensions},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
		})
	}
}
