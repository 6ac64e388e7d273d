package ranker

import (
	"math"
	"sort"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/tokenizer"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

// Deduplication strategies.
const (
	DedupByDocID      = "docId"
	DedupBySimilarity = "similarity"
)

// DefaultTokenBudget bounds how much text a single retrieval returns.
const DefaultTokenBudget = 2000

// scoreProximity is the absolute score difference under which the
// similarity dedup strategy treats two results as near-duplicates.
// This is a score-proximity heuristic, not content similarity: it can
// suppress legitimately distinct chunks that happen to score alike,
// a known precision/recall trade-off downstream behavior depends on.
const scoreProximity = 0.01

// truncationMarker is appended to text shortened by the budgeter.
const truncationMarker = "..."

// Options controls ranking, deduplication, and the token budget.
type Options struct {
	TokenBudget   int
	Deduplicate   bool
	DeduplicateBy string // DedupByDocID or DedupBySimilarity
}

// DefaultOptions returns the documented defaults: a 2000-token budget
// with docId deduplication enabled.
func DefaultOptions() Options {
	return Options{
		TokenBudget:   DefaultTokenBudget,
		Deduplicate:   true,
		DeduplicateBy: DedupByDocID,
	}
}

func (o Options) withDefaults() Options {
	if o.TokenBudget == 0 {
		o.TokenBudget = DefaultTokenBudget
	}
	if o.DeduplicateBy == "" {
		o.DeduplicateBy = DedupByDocID
	}
	return o
}

// Rank sorts, deduplicates, and trims candidates to the token budget.
// must_have candidates sort strictly before nice_to_have; within equal
// importance the order is descending by score. The walk down the sorted
// list stops at the first candidate that does not fit: a must_have
// candidate is truncated into the remaining budget when any remains,
// a nice_to_have candidate is dropped, and nothing after the overflow
// is considered.
func Rank(candidates []types.Candidate, opts Options) []types.RankedResult {
	opts = opts.withDefaults()
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]types.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		iMust := sorted[i].Importance == types.ImportanceMustHave
		jMust := sorted[j].Importance == types.ImportanceMustHave
		if iMust != jMust {
			return iMust
		}
		return sorted[i].Score > sorted[j].Score
	})

	if opts.Deduplicate {
		switch opts.DeduplicateBy {
		case DedupBySimilarity:
			sorted = dedupBySimilarity(sorted)
		default:
			sorted = dedupByDoc(sorted)
		}
	}

	return applyBudget(sorted, opts.TokenBudget)
}

// MergeQueryResults flattens several queries' candidate lists and runs
// one ranking/budget pass uniformly across all of them. This is how a
// multi-query request converges to a single final list.
func MergeQueryResults(lists [][]types.Candidate, opts Options) []types.RankedResult {
	var total int
	for _, list := range lists {
		total += len(list)
	}
	flat := make([]types.Candidate, 0, total)
	for _, list := range lists {
		flat = append(flat, list...)
	}
	return Rank(flat, opts)
}

// dedupByDoc keeps only the best-ranked candidate per owning document.
// The input is already in final precedence order, so first wins.
func dedupByDoc(sorted []types.Candidate) []types.Candidate {
	seen := make(map[string]struct{}, len(sorted))
	kept := sorted[:0]
	for _, cand := range sorted {
		key := cand.ChunkID()
		if cand.Chunk != nil {
			key = cand.Chunk.DedupKey()
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, cand)
	}
	return kept
}

// dedupBySimilarity greedily drops a candidate when an already-kept
// candidate's score is within scoreProximity of its own.
func dedupBySimilarity(sorted []types.Candidate) []types.Candidate {
	kept := make([]types.Candidate, 0, len(sorted))
	for _, cand := range sorted {
		near := false
		for i := range kept {
			if math.Abs(kept[i].Score-cand.Score) < scoreProximity {
				near = true
				break
			}
		}
		if !near {
			kept = append(kept, cand)
		}
	}
	return kept
}

// applyBudget walks the candidates accumulating estimated token cost
// and stops at the first overflow per the Rank contract.
func applyBudget(sorted []types.Candidate, budget int) []types.RankedResult {
	results := make([]types.RankedResult, 0, len(sorted))
	used := 0
	for _, cand := range sorted {
		text := cand.Text()
		cost := EstimateTokens(text)
		remaining := budget - used

		if cost <= remaining {
			results = append(results, types.RankedResult{
				Candidate:       cand,
				Text:            text,
				EstimatedTokens: cost,
				Truncated:       false,
			})
			used += cost
			continue
		}

		// Overflow. A must_have candidate claims whatever budget is
		// left as a truncated entry; either way nothing further is
		// considered.
		if cand.Importance == types.ImportanceMustHave && remaining > 0 {
			truncated := truncateToBudget(text, remaining)
			if truncated != "" {
				results = append(results, types.RankedResult{
					Candidate:       cand,
					Text:            truncated + truncationMarker,
					EstimatedTokens: EstimateTokens(truncated + truncationMarker),
					Truncated:       true,
				})
			}
		}
		break
	}
	return results
}

// EstimateTokens estimates the token cost of text for budgeting:
// ceil(cjkChars/1.5 + otherChars/4). CJK characters carry more
// information per character, so they weigh heavier.
func EstimateTokens(text string) int {
	var cjk, other int
	for _, r := range text {
		if tokenizer.IsCJKRune(r) {
			cjk++
		} else {
			other++
		}
	}
	return int(math.Ceil(float64(cjk)/1.5 + float64(other)/4))
}

// truncateToBudget cuts text so its estimated cost, plus the marker,
// fits in the remaining budget. The cut targets roughly remaining*3
// characters and then tightens by actual per-rune cost, which matters
// for CJK text where three characters already cost two tokens.
func truncateToBudget(text string, remaining int) string {
	markerCost := EstimateTokens(truncationMarker)
	allowance := float64(remaining - markerCost)
	if allowance <= 0 {
		return ""
	}

	runes := []rune(text)
	roughCut := remaining * 3
	if roughCut < len(runes) {
		runes = runes[:roughCut]
	}

	var cost float64
	for i, r := range runes {
		if tokenizer.IsCJKRune(r) {
			cost += 1 / 1.5
		} else {
			cost += 0.25
		}
		if cost > allowance {
			return string(runes[:i])
		}
	}
	return string(runes)
}
