// Package config loads and validates engine configuration from YAML
// files with environment-variable overrides. It provides typed structs
// for every subsystem (Storage, Tokenizer, Keyword, Vector, Fusion,
// Ranker, Retrieval, Cache, Chunker, Embedding).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/fusion"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/ranker"
)

// Retrieval mode names.
const (
	ModeHybrid      = "hybrid"
	ModeVectorOnly  = "vector_only"
	ModeKeywordOnly = "keyword_only"
)

// Keyword scoring algorithm names.
const (
	AlgorithmBM25  = "bm25"
	AlgorithmTFIDF = "tfidf"
)

// Config is the top-level engine configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Keyword   KeywordConfig   `yaml:"keyword"`
	Vector    VectorConfig    `yaml:"vector"`
	Fusion    FusionConfig    `yaml:"fusion"`
	Ranker    RankerConfig    `yaml:"ranker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Cache     CacheConfig     `yaml:"cache"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// TokenizerConfig controls tokenization at index and query time.
type TokenizerConfig struct {
	Language  string   `yaml:"language"`
	StopWords []string `yaml:"stopWords"`
	Stemming  bool     `yaml:"stemming"`
}

// KeywordConfig tunes the keyword scorer.
type KeywordConfig struct {
	Algorithm string  `yaml:"algorithm"`
	K1        float64 `yaml:"k1"`
	B         float64 `yaml:"b"`
	TopK      int     `yaml:"topK"`
}

// VectorConfig tunes the vector scorer.
type VectorConfig struct {
	TopK      int     `yaml:"topK"`
	Threshold float64 `yaml:"threshold"`
}

// FusionConfig selects and tunes the fusion strategy.
type FusionConfig struct {
	Method            string  `yaml:"method"`
	RRFK              float64 `yaml:"rrfK"`
	VectorWeight      float64 `yaml:"vectorWeight"`
	KeywordWeight     float64 `yaml:"keywordWeight"`
	PrimaryMethod     string  `yaml:"primaryMethod"`
	MinPrimaryResults int     `yaml:"minPrimaryResults"`
}

// RankerConfig controls the final ranking and budget pass.
type RankerConfig struct {
	TokenBudget   int    `yaml:"tokenBudget"`
	Deduplicate   *bool  `yaml:"deduplicate"`
	DeduplicateBy string `yaml:"deduplicateBy"`
}

// RetrievalConfig selects the retrieval mode.
type RetrievalConfig struct {
	Mode string `yaml:"mode"`
}

// CacheConfig controls the in-memory caches.
type CacheConfig struct {
	QueryCacheSize     int           `yaml:"queryCacheSize"`
	QueryCacheTTL      time.Duration `yaml:"queryCacheTTL"`
	EmbeddingCacheSize int           `yaml:"embeddingCacheSize"`
}

// ChunkerConfig controls document splitting.
type ChunkerConfig struct {
	MaxChars     int `yaml:"maxChars"`
	OverlapChars int `yaml:"overlapChars"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	BatchSize int    `yaml:"batchSize"`
}

// Load reads a YAML config file (if provided) and applies
// environment-variable overrides. It returns a Config populated with
// defaults for any missing values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns a Config with the documented defaults.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: "charaengine.db",
		},
		Keyword: KeywordConfig{
			Algorithm: AlgorithmBM25,
			K1:        1.5,
			B:         0.75,
			TopK:      10,
		},
		Vector: VectorConfig{
			TopK:      10,
			Threshold: 0,
		},
		Fusion: FusionConfig{
			Method:            fusion.MethodRRF,
			RRFK:              fusion.DefaultRRFK,
			VectorWeight:      fusion.DefaultVectorWeight,
			KeywordWeight:     fusion.DefaultKeywordWeight,
			PrimaryMethod:     "keyword",
			MinPrimaryResults: fusion.DefaultMinPrimaryResults,
		},
		Ranker: RankerConfig{
			TokenBudget:   ranker.DefaultTokenBudget,
			DeduplicateBy: ranker.DedupByDocID,
		},
		Retrieval: RetrievalConfig{
			Mode: ModeHybrid,
		},
		Cache: CacheConfig{
			QueryCacheSize:     256,
			QueryCacheTTL:      5 * time.Minute,
			EmbeddingCacheSize: 10000,
		},
		Chunker: ChunkerConfig{
			MaxChars:     1200,
			OverlapChars: 120,
		},
		Embedding: EmbeddingConfig{
			Provider:  "local",
			BatchSize: 32,
		},
	}
}

// applyEnvOverrides reads CHARAENGINE_* environment variables and
// overrides the corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHARAENGINE_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("CHARAENGINE_LANGUAGE"); v != "" {
		cfg.Tokenizer.Language = v
	}
	if v := os.Getenv("CHARAENGINE_RETRIEVAL_MODE"); v != "" {
		cfg.Retrieval.Mode = v
	}
	if v := os.Getenv("CHARAENGINE_FUSION_METHOD"); v != "" {
		cfg.Fusion.Method = v
	}
	if v := os.Getenv("CHARAENGINE_TOKEN_BUDGET"); v != "" {
		if budget, err := strconv.Atoi(v); err == nil {
			cfg.Ranker.TokenBudget = budget
		}
	}
	if v := os.Getenv("CHARAENGINE_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
}

// ValidationResult reports advisory validation findings.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks the configuration for out-of-range or unknown values.
// It is advisory: the engine falls back to defaults at runtime rather
// than aborting, so callers decide what to do with the findings.
func Validate(cfg *Config) ValidationResult {
	var errs []string

	switch cfg.Retrieval.Mode {
	case ModeHybrid, ModeVectorOnly, ModeKeywordOnly, "":
	default:
		errs = append(errs, fmt.Sprintf("unknown retrieval mode %q", cfg.Retrieval.Mode))
	}

	switch cfg.Keyword.Algorithm {
	case AlgorithmBM25, AlgorithmTFIDF, "":
	default:
		errs = append(errs, fmt.Sprintf("unknown keyword algorithm %q", cfg.Keyword.Algorithm))
	}

	switch cfg.Fusion.Method {
	case fusion.MethodRRF, fusion.MethodWeighted, fusion.MethodCascade, "":
	default:
		errs = append(errs, fmt.Sprintf("unknown fusion method %q", cfg.Fusion.Method))
	}

	if cfg.Keyword.K1 < 0 {
		errs = append(errs, fmt.Sprintf("keyword k1 must be non-negative, got %v", cfg.Keyword.K1))
	}
	if cfg.Keyword.B < 0 || cfg.Keyword.B > 1 {
		errs = append(errs, fmt.Sprintf("keyword b must be in [0, 1], got %v", cfg.Keyword.B))
	}
	if cfg.Vector.Threshold < 0 || cfg.Vector.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("vector threshold must be in [0, 1], got %v", cfg.Vector.Threshold))
	}
	if cfg.Fusion.VectorWeight < 0 || cfg.Fusion.KeywordWeight < 0 {
		errs = append(errs, "fusion weights must be non-negative")
	}
	if cfg.Ranker.TokenBudget < 0 {
		errs = append(errs, fmt.Sprintf("token budget must be non-negative, got %d", cfg.Ranker.TokenBudget))
	}

	switch cfg.Ranker.DeduplicateBy {
	case ranker.DedupByDocID, ranker.DedupBySimilarity, "":
	default:
		errs = append(errs, fmt.Sprintf("unknown deduplicateBy %q", cfg.Ranker.DeduplicateBy))
	}

	if cfg.Chunker.OverlapChars >= cfg.Chunker.MaxChars && cfg.Chunker.MaxChars > 0 {
		errs = append(errs, "chunker overlap must be smaller than maxChars")
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
