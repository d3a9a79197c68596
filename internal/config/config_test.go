package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	// Given: an empty corpus root
	root := t.TempDir()

	// When: loading configuration
	cfg, err := Load(root)
	require.NoError(t, err)

	// Then: built-in defaults apply
	assert.Equal(t, 1000, cfg.Chunking.WindowSize)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, 0.7, cfg.Search.SimilarityThreshold)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, 3, cfg.Search.MaxExcerpts)
	assert.Equal(t, 30, cfg.Grounding.MinSentenceChars)
	assert.Equal(t, 0.6, cfg.Grounding.AcceptThreshold)
	assert.Equal(t, root, cfg.Paths.CorpusDir)
	assert.Equal(t, filepath.Join(root, DataDirName), cfg.Paths.DataDir)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	yaml := `
version: 1
chunking:
  window_size: 800
  overlap: 100
search:
  similarity_threshold: 0.75
embeddings:
  provider: static
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte(yaml), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Chunking.WindowSize)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 0.75, cfg.Search.SimilarityThreshold)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	// Untouched sections keep defaults
	assert.Equal(t, 10, cfg.Search.MaxResults)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	t.Setenv("VERACITE_EMBED_MODEL", "text-embedding-3-large")
	t.Setenv("VERACITE_SIMILARITY_THRESHOLD", "0.8")

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-large", cfg.Embeddings.Model)
	assert.Equal(t, 0.8, cfg.Search.SimilarityThreshold)
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("chunking: ["), 0o644))

	_, err := Load(root)
	assert.Error(t, err)
}

func TestValidate_RejectsBadOverlap(t *testing.T) {
	cfg := NewConfig()
	cfg.Chunking.Overlap = cfg.Chunking.WindowSize

	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadThreshold(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.SimilarityThreshold = 1.5

	assert.Error(t, cfg.Validate())
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := NewConfig()
	cfg.Chunking.WindowSize = 1200
	require.NoError(t, cfg.Save(root))

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 1200, loaded.Chunking.WindowSize)
}

func TestDurationHelpers_FallBackOnInvalid(t *testing.T) {
	e := EmbeddingsConfig{RequestDelay: "250ms", RateLimitBackoff: "bogus"}
	assert.Equal(t, 250*time.Millisecond, e.RequestDelayDuration())
	assert.Equal(t, 2*time.Second, e.RateLimitBackoffDuration())

	w := WatchConfig{}
	assert.Equal(t, 500*time.Millisecond, w.DebounceDuration())
}
