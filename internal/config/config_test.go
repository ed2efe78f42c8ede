package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 500, cfg.Chunker.MaxSize)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
	assert.Equal(t, 512, cfg.Embedder.Dimension)
	assert.Equal(t, 4, cfg.Retriever.TopK)
	assert.Equal(t, "none", cfg.Generator.Type)
	assert.Equal(t, "You are a helpful assistant.", cfg.Prompt.Instructions)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_AppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chunker:
  max_size: 40
  overlap: 10
embedder:
  type: openai
  openai:
    model: custom-embed
generator:
  type: openai
  timeout_secs: 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Chunker.MaxSize)
	assert.Equal(t, 10, cfg.Chunker.Overlap)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "custom-embed", cfg.Embedder.OpenAI.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Zero(t, cfg.Embedder.Dimension)
	require.NotNil(t, cfg.Generator.OpenAI)
	assert.Equal(t, "gpt-4o-mini", cfg.Generator.OpenAI.Model)
	assert.Equal(t, 5, int(cfg.Generator.Timeout().Seconds()))
	assert.Equal(t, 30, int(cfg.Embedder.Timeout().Seconds()))
	assert.Equal(t, "You are a helpful assistant.", cfg.Prompt.Instructions)
	assert.Equal(t, "\n\n", cfg.Prompt.Delimiter)
}

func TestLoad_ExplicitZeroOverlapIsKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker:\n  max_size: 100\n  overlap: 0\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Chunker.Overlap)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"overlap too large": "chunker:\n  max_size: 10\n  overlap: 10\n",
		"unknown embedder":  "embedder:\n  type: word2vec\n",
		"unknown generator": "generator:\n  type: gemini\n",
		"bad top_k":         "retriever:\n  top_k: -2\n",
		"bad yaml":          "chunker: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Retriever.TopK = 7
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.Equal(t, "\n\n", got.Prompt.Delimiter)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `delimiter: "\n\n"`)
}

func TestSaveRoundTrip_CustomPrompt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Prompt.Instructions = "Answer briefly.\nCite the context."
	cfg.Prompt.Delimiter = "\n---\n"
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Prompt, got.Prompt)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "docqa", "config.yaml"), path)
	assert.Equal(t, Default(), cfg)
	assert.FileExists(t, path)

	again, path2, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, path, path2)
	assert.Equal(t, cfg, again)
	assert.Equal(t, "\n\n", again.Prompt.Delimiter)
}
