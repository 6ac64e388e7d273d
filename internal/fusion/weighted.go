package fusion

import "github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"

// WeightedFusion merges the two result lists by normalized weighted
// scores. Each source list is normalized independently by dividing
// every raw score by the list's maximum (floored at 0.001), so the top
// result of each list contributes exactly its source weight; per-chunk
// contributions sum across sources.
func WeightedFusion(keywordResults []types.KeywordResult, vectorResults []types.VectorResult, lookup Lookup, vectorWeight, keywordWeight float64) []types.FusedResult {
	if vectorWeight == 0 && keywordWeight == 0 {
		vectorWeight = DefaultVectorWeight
		keywordWeight = DefaultKeywordWeight
	}

	var maxKeyword float64
	for _, kr := range keywordResults {
		if kr.Score > maxKeyword {
			maxKeyword = kr.Score
		}
	}
	var maxVector float64
	for _, vr := range vectorResults {
		if vr.Similarity > maxVector {
			maxVector = vr.Similarity
		}
	}
	if maxKeyword < weightedScoreFloor {
		maxKeyword = weightedScoreFloor
	}
	if maxVector < weightedScoreFloor {
		maxVector = weightedScoreFloor
	}

	merged := newMergeTable()
	for rank, kr := range keywordResults {
		entry := merged.get(kr.ChunkID)
		entry.FusionScore += keywordWeight * (kr.Score / maxKeyword)
		entry.Keyword = &types.KeywordMatch{
			Score:        kr.Score,
			Rank:         rank,
			MatchedTerms: kr.MatchedTerms,
		}
	}
	for rank, vr := range vectorResults {
		entry := merged.get(vr.ChunkID)
		entry.FusionScore += vectorWeight * (vr.Similarity / maxVector)
		entry.Vector = &types.VectorMatch{
			Similarity: vr.Similarity,
			Rank:       rank,
		}
	}

	return merged.sorted(lookup)
}
