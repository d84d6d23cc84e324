package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docqa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, 1000, cfg.Splitting.Threshold)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.Timeout)
	assert.Equal(t, 50, cfg.Sessions.MaxMessages)
}

func TestLoad(t *testing.T) {
	t.Run("no file uses defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
	})

	t.Run("yaml overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
ai:
  generation_model: llama3.1
storage:
  backend: qdrant
  qdrant_url: http://qdrant:6334
splitting:
  chunk_size: 500
  chunk_overlap: 50
sessions:
  timeout: 10m
indexing:
  paths: [docs, faq.md]
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "llama3.1", cfg.AI.GenerationModel)
		assert.Equal(t, Default().AI.EmbeddingModel, cfg.AI.EmbeddingModel)
		assert.Equal(t, BackendQdrant, cfg.Storage.Backend)
		assert.Equal(t, 10*time.Minute, cfg.Sessions.Timeout)
		assert.Equal(t, []string{"docs", "faq.md"}, cfg.Indexing.Paths)

		split := cfg.SplitConfig()
		assert.Equal(t, 500, split.ChunkSize)
		assert.Equal(t, 50, split.ChunkOverlap)
		assert.NotEmpty(t, split.Separators)
	})

	t.Run("environment wins over yaml", func(t *testing.T) {
		path := writeConfig(t, "retrieval:\n  top_k: 7\n")
		t.Setenv("DOCQA_TOP_K", "9")
		t.Setenv("DOCQA_GENERATION_MODEL", "from-env")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9, cfg.Retrieval.TopK)
		assert.Equal(t, "from-env", cfg.AI.GenerationModel)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "ai: [unclosed"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }},
		{"pgvector without dsn", func(c *Config) { c.Storage.Backend = BackendPgvector }},
		{"qdrant without url", func(c *Config) { c.Storage.Backend = BackendQdrant }},
		{"overlap not below chunk size", func(c *Config) { c.Splitting.ChunkOverlap = c.Splitting.ChunkSize }},
		{"topK above limit", func(c *Config) { c.Retrieval.TopK = 51 }},
		{"zero timeout", func(c *Config) { c.Sessions.Timeout = 0 }},
		{"bad host", func(c *Config) { c.AI.EmbeddingHost = "not a url" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	cfg := Default()
	cfg.Storage.Backend = BackendPgvector
	cfg.Storage.PostgresDSN = "postgres://localhost/docqa"
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DOCQA_HOST":                "http://gpu:11434",
		"DOCQA_REQUESTS_PER_SECOND": "2.5",
		"DOCQA_STORAGE_PATH":        "/var/lib/docqa",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, applyEnv(cfg, lookup))
	assert.Equal(t, "http://gpu:11434", cfg.AI.EmbeddingHost)
	assert.Equal(t, "http://gpu:11434", cfg.AI.GenerationHost)
	assert.Equal(t, 2.5, cfg.AI.RequestsPerSecond)
	assert.Equal(t, "/var/lib/docqa", cfg.Storage.Path)

	env["DOCQA_TOP_K"] = "many"
	assert.ErrorIs(t, applyEnv(Default(), lookup), ErrInvalidConfig)
}

func TestProviderConfig(t *testing.T) {
	cfg := Default()
	cfg.AI.EmbeddingHost = "http://embed:8080"
	cfg.AI.APIKey = ""

	aiCfg := cfg.ProviderConfig()
	assert.Equal(t, "http://embed:8080/v1", aiCfg.EmbeddingHost)
	assert.Equal(t, "none", aiCfg.APIKey)
	assert.NoError(t, aiCfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Retrieval.TopK = 12
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Retrieval.TopK)
	assert.Equal(t, cfg.Sessions.Timeout, loaded.Sessions.Timeout)
}
