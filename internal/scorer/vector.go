package scorer

import (
	"math"
	"sort"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

// CosineSimilarity computes the similarity between two vectors that are
// assumed to be L2-normalized already, so the value is the plain dot
// product, clamped to [0, 1] to absorb floating-point drift. Negative
// cosine values are not meaningful for this corpus and floor at 0.
// Mismatched lengths compare over the shorter length; a missing or
// empty vector scores 0.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}

	if dot < 0 {
		return 0
	}
	if dot > 1 {
		return 1
	}
	return dot
}

// VectorNorm returns the L2 norm of the vector.
func VectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// NormalizeVector returns a new L2-normalized copy of the vector, for
// callers that hand in raw embeddings. A zero or empty vector is
// returned unchanged.
func NormalizeVector(v []float32) []float32 {
	norm := VectorNorm(v)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// FindTopKSimilar scores every chunk's vector against the query vector,
// discards similarities below threshold, and returns the best topK in
// descending order. Chunks without a vector score 0. Ties keep the
// chunks' input order.
func FindTopKSimilar(queryVector []float32, chunks []*types.Chunk, topK int, threshold float64) []types.VectorResult {
	if len(queryVector) == 0 || len(chunks) == 0 {
		return nil
	}

	results := make([]types.VectorResult, 0, len(chunks))
	for _, chunk := range chunks {
		similarity := CosineSimilarity(queryVector, chunk.Vector)
		if similarity < threshold {
			continue
		}
		results = append(results, types.VectorResult{
			ChunkID:    chunk.ID,
			Similarity: similarity,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
