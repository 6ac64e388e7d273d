package types

// Source identifies which scorer produced a result.
type Source string

const (
	SourceKeyword Source = "keyword"
	SourceVector  Source = "vector"
)

// Importance marks how strongly a query's results must be represented in
// the final budgeted list.
type Importance string

const (
	ImportanceMustHave   Importance = "must_have"
	ImportanceNiceToHave Importance = "nice_to_have"
)

// KeywordResult is a single hit from the keyword scorer.
type KeywordResult struct {
	ChunkID string
	Score   float64
	// MatchedTerms maps each query term found in the chunk to its
	// occurrence count in that chunk.
	MatchedTerms map[string]int
}

// VectorResult is a single hit from the vector scorer. Similarity is
// clamped to [0, 1].
type VectorResult struct {
	ChunkID    string
	Similarity float64
}

// VectorMatch records the vector scorer's view of a fused result.
type VectorMatch struct {
	Similarity float64
	Rank       int // zero-based rank in the vector result list
}

// KeywordMatch records the keyword scorer's view of a fused result.
type KeywordMatch struct {
	Score        float64
	Rank         int // zero-based rank in the keyword result list
	MatchedTerms map[string]int
}

// FusedResult is one entry in a merged ranking. Exactly one of three
// match states holds: keyword only, vector only, or both, recorded by
// which of the two match pointers are non-nil.
type FusedResult struct {
	ChunkID     string
	FusionScore float64

	Vector  *VectorMatch
	Keyword *KeywordMatch

	Chunk          *Chunk
	CollectionID   string
	CollectionName string

	// Source is set by cascade fusion to tag which list emitted the
	// entry. Empty for score-merging strategies.
	Source Source
}

// MatchedBoth reports whether both scorers matched the chunk.
func (f *FusedResult) MatchedBoth() bool {
	return f.Vector != nil && f.Keyword != nil
}

// VectorOnly reports whether only the vector scorer matched the chunk.
func (f *FusedResult) VectorOnly() bool {
	return f.Vector != nil && f.Keyword == nil
}

// KeywordOnly reports whether only the keyword scorer matched the chunk.
func (f *FusedResult) KeywordOnly() bool {
	return f.Keyword != nil && f.Vector == nil
}
