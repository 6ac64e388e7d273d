// Package ranker sorts, deduplicates, and trims retrieval candidates to
// a caller-given token budget.
//
// Ranking is a single-pass pure transformation: must_have candidates
// sort strictly before nice_to_have ones, then descending by score.
// Deduplication keeps the best chunk per owning document ("docId") or
// greedily filters score-proximate near-duplicates ("similarity",
// absolute difference under 0.01).
//
// The token budget is heuristic and character-based:
// ceil(cjkChars/1.5 + otherChars/4) per chunk text. The first candidate
// that does not fit ends the walk: a must_have candidate is truncated
// into the remaining budget and marked, a nice_to_have candidate is
// dropped outright.
//
// MergeQueryResults applies the same pass uniformly across several
// queries' candidate lists, which is how multi-query requests converge
// to one final list.
package ranker
