package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, AlgorithmBM25, cfg.Keyword.Algorithm)
	assert.Equal(t, 1.5, cfg.Keyword.K1)
	assert.Equal(t, 0.75, cfg.Keyword.B)
	assert.Equal(t, 10, cfg.Keyword.TopK)
	assert.Equal(t, ModeHybrid, cfg.Retrieval.Mode)
	assert.Equal(t, 2000, cfg.Ranker.TokenBudget)
	assert.Equal(t, "rrf", cfg.Fusion.Method)

	result := Validate(cfg)
	assert.True(t, result.Valid, "default config should validate: %v", result.Errors)
}

func TestLoadMissingPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeHybrid, cfg.Retrieval.Mode)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
retrieval:
  mode: keyword_only
keyword:
  algorithm: tfidf
  k1: 1.2
fusion:
  method: weighted
  vectorWeight: 0.7
  keywordWeight: 0.3
ranker:
  tokenBudget: 500
tokenizer:
  language: zh
  stopWords: [的, 了]
cache:
  queryCacheTTL: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeKeywordOnly, cfg.Retrieval.Mode)
	assert.Equal(t, AlgorithmTFIDF, cfg.Keyword.Algorithm)
	assert.Equal(t, 1.2, cfg.Keyword.K1)
	// Unset file values keep defaults.
	assert.Equal(t, 0.75, cfg.Keyword.B)
	assert.Equal(t, "weighted", cfg.Fusion.Method)
	assert.Equal(t, 0.7, cfg.Fusion.VectorWeight)
	assert.Equal(t, 500, cfg.Ranker.TokenBudget)
	assert.Equal(t, "zh", cfg.Tokenizer.Language)
	assert.Equal(t, []string{"的", "了"}, cfg.Tokenizer.StopWords)
	assert.Equal(t, 30*time.Second, cfg.Cache.QueryCacheTTL)
}

func TestLoadBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHARAENGINE_RETRIEVAL_MODE", "vector_only")
	t.Setenv("CHARAENGINE_TOKEN_BUDGET", "1234")
	t.Setenv("CHARAENGINE_DB_PATH", "/tmp/override.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeVectorOnly, cfg.Retrieval.Mode)
	assert.Equal(t, 1234, cfg.Ranker.TokenBudget)
	assert.Equal(t, "/tmp/override.db", cfg.Storage.Path)
}

func TestValidateFindings(t *testing.T) {
	cfg := Default()
	cfg.Retrieval.Mode = "telepathy"
	cfg.Keyword.Algorithm = "pagerank"
	cfg.Keyword.B = 1.5
	cfg.Vector.Threshold = -0.1
	cfg.Ranker.DeduplicateBy = "vibes"
	cfg.Chunker.MaxChars = 100
	cfg.Chunker.OverlapChars = 200

	result := Validate(cfg)
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 6)
}

func TestValidateEmptyStringsAllowed(t *testing.T) {
	cfg := Default()
	cfg.Retrieval.Mode = ""
	cfg.Fusion.Method = ""
	cfg.Keyword.Algorithm = ""
	cfg.Ranker.DeduplicateBy = ""

	result := Validate(cfg)
	assert.True(t, result.Valid)
}
