package scorer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

func TestCosineSimilarity_NormalizedVectors(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	assert.Equal(t, 0.0, CosineSimilarity(a, b))
	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
}

func TestCosineSimilarity_ClampsToUnitInterval(t *testing.T) {
	// Slightly over-unit vectors drift past 1 on the dot product.
	a := []float32{1.0001, 0}
	assert.Equal(t, 1.0, CosineSimilarity(a, a))

	// Opposed vectors floor at 0; negative cosine carries no meaning here.
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}))
}

func TestCosineSimilarity_MismatchedLengths(t *testing.T) {
	a := []float32{1, 0, 0, 0}
	b := []float32{1, 0}
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9)
}

func TestCosineSimilarity_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity(nil, []float32{1}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, nil))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}

func TestVectorNorm(t *testing.T) {
	assert.InDelta(t, 5.0, VectorNorm([]float32{3, 4}), 1e-9)
	assert.Equal(t, 0.0, VectorNorm(nil))
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 1.0, VectorNorm(v), 1e-6)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	// Zero vector passes through untouched.
	zero := []float32{0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}

func TestFindTopKSimilar_RanksByDotProduct(t *testing.T) {
	query := []float32{1, 0}
	chunks := []*types.Chunk{
		{ID: "far", Vector: []float32{0, 1}},
		{ID: "near", Vector: []float32{1, 0}},
		{ID: "mid", Vector: NormalizeVector([]float32{1, 1})},
	}

	results := FindTopKSimilar(query, chunks, 10, 0)
	require.Len(t, results, 3)
	assert.Equal(t, "near", results[0].ChunkID)
	assert.Equal(t, "mid", results[1].ChunkID)
	assert.Equal(t, "far", results[2].ChunkID)
	assert.InDelta(t, math.Sqrt2/2, results[1].Similarity, 1e-6)
}

func TestFindTopKSimilar_ThresholdAndTopK(t *testing.T) {
	query := []float32{1, 0}
	chunks := []*types.Chunk{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: NormalizeVector([]float32{1, 1})},
		{ID: "c", Vector: []float32{0, 1}},
	}

	results := FindTopKSimilar(query, chunks, 10, 0.5)
	require.Len(t, results, 2)

	results = FindTopKSimilar(query, chunks, 1, 0.5)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
}

func TestFindTopKSimilar_MissingVectorsScoreZero(t *testing.T) {
	query := []float32{1, 0}
	chunks := []*types.Chunk{
		{ID: "no-vector"},
		{ID: "scored", Vector: []float32{1, 0}},
	}

	results := FindTopKSimilar(query, chunks, 10, 0)
	require.Len(t, results, 2)
	assert.Equal(t, "scored", results[0].ChunkID)
	assert.Equal(t, 0.0, results[1].Similarity)
}

func TestFindTopKSimilar_Degenerate(t *testing.T) {
	assert.Empty(t, FindTopKSimilar(nil, []*types.Chunk{{ID: "a"}}, 5, 0))
	assert.Empty(t, FindTopKSimilar([]float32{1}, nil, 5, 0))
}
