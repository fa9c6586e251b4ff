package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://api.openai.com/v1", cfg.AI.Host)
	assert.Equal(t, "OPENAI_API_KEY", cfg.AI.APIKeyEnv)
	assert.Equal(t, "text-embedding-3-small", cfg.AI.EmbeddingModel)
	assert.Equal(t, "gpt-4o", cfg.AI.ExtractionModel)
	assert.Equal(t, "gpt-4o", cfg.AI.SynthesisModel)
	assert.Equal(t, 100, cfg.AI.BatchSize)
	assert.Equal(t, 60, cfg.AI.TimeoutSecs)
	assert.Equal(t, 4, cfg.Pipeline.PoolSize)
	assert.Equal(t, 3, cfg.Pipeline.RetryAttempts)
	assert.Equal(t, 500, cfg.Pipeline.RetryDelayMs)
	assert.Equal(t, 15, cfg.Pipeline.RetrievalTopK)
	assert.NotEmpty(t, cfg.Storage.Path)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "utilidoc.yaml")

	cfg := &AppConfig{
		AI: AIConfig{
			Host:            "http://localhost:11434",
			APIKeyEnv:       "UTILIDOC_TOKEN",
			EmbeddingModel:  "embeddinggemma",
			ExtractionModel: "qwen2.5:3b",
			SynthesisModel:  "qwen2.5:3b",
			BatchSize:       50,
			TimeoutSecs:     30,
		},
		Storage: StorageConfig{Path: "/tmp/utilidoc.db"},
		Pipeline: PipelineConfig{
			PoolSize:      2,
			RetryAttempts: 5,
			RetryDelayMs:  250,
			RetrievalTopK: 8,
		},
	}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utilidoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai:\n  host: http://localhost:11434/v1\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434/v1", cfg.AI.Host)
	// Unset fields fall back to defaults
	assert.Equal(t, "gpt-4o", cfg.AI.ExtractionModel)
	assert.Equal(t, 15, cfg.Pipeline.RetrievalTopK)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "utilidoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai: [not a mapping"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	t.Run("resolves from environment", func(t *testing.T) {
		t.Setenv("UTILIDOC_TEST_TOKEN", "sk-test")
		cfg := &AppConfig{AI: AIConfig{APIKeyEnv: "UTILIDOC_TEST_TOKEN"}}
		assert.Equal(t, "sk-test", cfg.Token())
	})

	t.Run("unset variable", func(t *testing.T) {
		cfg := &AppConfig{AI: AIConfig{APIKeyEnv: "UTILIDOC_UNSET_TOKEN"}}
		assert.Equal(t, "none", cfg.Token())
	})

	t.Run("no variable configured", func(t *testing.T) {
		cfg := &AppConfig{}
		assert.Equal(t, "none", cfg.Token())
	})
}

func TestInMemoryStorageSkipsDataPath(t *testing.T) {
	cfg := &AppConfig{Storage: StorageConfig{InMemory: true}}
	applyConfigDefaults(cfg)
	assert.Empty(t, cfg.Storage.Path)
}
