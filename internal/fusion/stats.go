package fusion

import "github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"

// Coverage summarizes how the two sources contributed to a fused list.
// It is a derived view for observability, computed on demand.
type Coverage struct {
	Total       int
	BothMatched int
	VectorOnly  int
	KeywordOnly int
	AvgScore    float64
}

// Summarize computes source coverage and the average fused score over
// a result list.
func Summarize(results []types.FusedResult) Coverage {
	cov := Coverage{Total: len(results)}
	if len(results) == 0 {
		return cov
	}

	var sum float64
	for i := range results {
		r := &results[i]
		switch {
		case r.MatchedBoth():
			cov.BothMatched++
		case r.VectorOnly():
			cov.VectorOnly++
		case r.KeywordOnly():
			cov.KeywordOnly++
		}
		sum += r.FusionScore
	}
	cov.AvgScore = sum / float64(len(results))
	return cov
}
