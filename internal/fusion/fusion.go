package fusion

import (
	"log"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

// Fusion method names accepted by HybridFusion.
const (
	MethodRRF      = "rrf"
	MethodWeighted = "weighted"
	MethodCascade  = "cascade"
)

// Defaults for the three strategies.
const (
	DefaultRRFK              = 60.0
	DefaultVectorWeight      = 0.6
	DefaultKeywordWeight     = 0.4
	DefaultMinPrimaryResults = 3

	// weightedScoreFloor guards the per-source max-score divisor in
	// weighted fusion so a zero-score list never divides by zero.
	weightedScoreFloor = 0.001
)

// ChunkInfo is what a lookup resolves a chunk ID to: the chunk itself
// and its owning collection.
type ChunkInfo struct {
	Chunk          *types.Chunk
	CollectionID   string
	CollectionName string
}

// Lookup resolves a chunk ID during fusion. Returning false leaves the
// fused result without chunk data; fusion itself never fails on it.
type Lookup func(chunkID string) (ChunkInfo, bool)

// Config selects and tunes the fusion strategy. Zero values select the
// documented defaults.
type Config struct {
	Method string

	// RRF
	RRFK float64

	// Weighted
	VectorWeight  float64
	KeywordWeight float64

	// Cascade
	PrimaryMethod     string // "keyword" (default) or "vector"
	MinPrimaryResults int
}

func (c Config) withDefaults() Config {
	if c.RRFK == 0 {
		c.RRFK = DefaultRRFK
	}
	if c.VectorWeight == 0 && c.KeywordWeight == 0 {
		c.VectorWeight = DefaultVectorWeight
		c.KeywordWeight = DefaultKeywordWeight
	}
	if c.PrimaryMethod == "" {
		c.PrimaryMethod = string(types.SourceKeyword)
	}
	if c.MinPrimaryResults == 0 {
		c.MinPrimaryResults = DefaultMinPrimaryResults
	}
	return c
}

// HybridFusion merges the two scorers' result lists with the configured
// strategy. An unrecognized method name falls back to RRF rather than
// failing the request.
func HybridFusion(vectorResults []types.VectorResult, keywordResults []types.KeywordResult, lookup Lookup, cfg Config) []types.FusedResult {
	cfg = cfg.withDefaults()
	switch cfg.Method {
	case MethodRRF, "":
		return RRFFusion(keywordResults, vectorResults, lookup, cfg.RRFK)
	case MethodWeighted:
		return WeightedFusion(keywordResults, vectorResults, lookup, cfg.VectorWeight, cfg.KeywordWeight)
	case MethodCascade:
		return CascadeFusion(keywordResults, vectorResults, lookup, cfg.PrimaryMethod, cfg.MinPrimaryResults)
	default:
		log.Printf("fusion: unknown method %q, falling back to %s", cfg.Method, MethodRRF)
		return RRFFusion(keywordResults, vectorResults, lookup, cfg.RRFK)
	}
}

// resolve fills in chunk and collection data for a fused result.
func resolve(fr *types.FusedResult, lookup Lookup) {
	if lookup == nil {
		return
	}
	if info, ok := lookup(fr.ChunkID); ok {
		fr.Chunk = info.Chunk
		fr.CollectionID = info.CollectionID
		fr.CollectionName = info.CollectionName
	}
}
