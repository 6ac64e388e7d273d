package fusion

import (
	"sort"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

// RRFFusion merges the two result lists with Reciprocal Rank Fusion:
// a result at zero-based rank r contributes 1/(k + r + 1) to its
// chunk's fused score, and a chunk present in both lists sums both
// contributions. Each fused result records whichever per-source match
// detail is available.
func RRFFusion(keywordResults []types.KeywordResult, vectorResults []types.VectorResult, lookup Lookup, k float64) []types.FusedResult {
	if k <= 0 {
		k = DefaultRRFK
	}

	merged := newMergeTable()
	for rank, kr := range keywordResults {
		entry := merged.get(kr.ChunkID)
		entry.FusionScore += 1 / (k + float64(rank) + 1)
		entry.Keyword = &types.KeywordMatch{
			Score:        kr.Score,
			Rank:         rank,
			MatchedTerms: kr.MatchedTerms,
		}
	}
	for rank, vr := range vectorResults {
		entry := merged.get(vr.ChunkID)
		entry.FusionScore += 1 / (k + float64(rank) + 1)
		entry.Vector = &types.VectorMatch{
			Similarity: vr.Similarity,
			Rank:       rank,
		}
	}

	return merged.sorted(lookup)
}

// mergeTable accumulates fused results keyed by chunk ID while
// remembering first-seen order, so equal scores sort deterministically.
type mergeTable struct {
	byID  map[string]*types.FusedResult
	order []string
}

func newMergeTable() *mergeTable {
	return &mergeTable{byID: make(map[string]*types.FusedResult)}
}

func (m *mergeTable) get(chunkID string) *types.FusedResult {
	if entry, ok := m.byID[chunkID]; ok {
		return entry
	}
	entry := &types.FusedResult{ChunkID: chunkID}
	m.byID[chunkID] = entry
	m.order = append(m.order, chunkID)
	return entry
}

// sorted resolves chunk data and returns the entries in descending
// fused-score order; ties keep first-seen order.
func (m *mergeTable) sorted(lookup Lookup) []types.FusedResult {
	if len(m.order) == 0 {
		return nil
	}
	results := make([]types.FusedResult, 0, len(m.order))
	for _, id := range m.order {
		entry := m.byID[id]
		resolve(entry, lookup)
		results = append(results, *entry)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FusionScore > results[j].FusionScore
	})
	return results
}
