package fusion

import "github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"

// CascadeFusion emits every primary-method result first, deduplicated
// by chunk ID in primary order. Only when the primary method produced
// fewer than minPrimaryResults are fallback results appended, skipping
// chunks already present, in fallback order. Scores are never
// recombined: the output order is primary-then-fallback, and each
// record keeps its source's native score as the fusion score and is
// tagged with the source that emitted it.
func CascadeFusion(keywordResults []types.KeywordResult, vectorResults []types.VectorResult, lookup Lookup, primaryMethod string, minPrimaryResults int) []types.FusedResult {
	if minPrimaryResults <= 0 {
		minPrimaryResults = DefaultMinPrimaryResults
	}

	primary := types.Source(primaryMethod)
	if primary != types.SourceVector {
		primary = types.SourceKeyword
	}

	seen := make(map[string]struct{})
	var results []types.FusedResult

	emitKeyword := func(tag types.Source) {
		for rank, kr := range keywordResults {
			if _, dup := seen[kr.ChunkID]; dup {
				continue
			}
			seen[kr.ChunkID] = struct{}{}
			fr := types.FusedResult{
				ChunkID:     kr.ChunkID,
				FusionScore: kr.Score,
				Source:      tag,
				Keyword: &types.KeywordMatch{
					Score:        kr.Score,
					Rank:         rank,
					MatchedTerms: kr.MatchedTerms,
				},
			}
			resolve(&fr, lookup)
			results = append(results, fr)
		}
	}
	emitVector := func(tag types.Source) {
		for rank, vr := range vectorResults {
			if _, dup := seen[vr.ChunkID]; dup {
				continue
			}
			seen[vr.ChunkID] = struct{}{}
			fr := types.FusedResult{
				ChunkID:     vr.ChunkID,
				FusionScore: vr.Similarity,
				Source:      tag,
				Vector: &types.VectorMatch{
					Similarity: vr.Similarity,
					Rank:       rank,
				},
			}
			resolve(&fr, lookup)
			results = append(results, fr)
		}
	}

	if primary == types.SourceKeyword {
		emitKeyword(types.SourceKeyword)
		if len(results) < minPrimaryResults {
			emitVector(types.SourceVector)
		}
	} else {
		emitVector(types.SourceVector)
		if len(results) < minPrimaryResults {
			emitKeyword(types.SourceKeyword)
		}
	}

	return results
}
