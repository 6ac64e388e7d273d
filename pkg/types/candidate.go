package types

// ResultKind discriminates the three candidate variants fed to the ranker.
type ResultKind int

const (
	KindFused ResultKind = iota
	KindVector
	KindKeyword
)

// Candidate is the unified ranking input: a result from exactly one of
// the three retrieval paths, with its ranking score resolved once at
// construction instead of re-derived at every comparison site.
type Candidate struct {
	Kind  ResultKind
	Score float64

	// Exactly one of the three is non-nil, matching Kind.
	Fused   *FusedResult
	Vector  *VectorResult
	Keyword *KeywordResult

	Chunk          *Chunk
	CollectionID   string
	CollectionName string

	Importance Importance
	QueryText  string
}

// FusedCandidate wraps a fused result for ranking.
func FusedCandidate(fr *FusedResult, importance Importance, queryText string) Candidate {
	return Candidate{
		Kind:           KindFused,
		Score:          fr.FusionScore,
		Fused:          fr,
		Chunk:          fr.Chunk,
		CollectionID:   fr.CollectionID,
		CollectionName: fr.CollectionName,
		Importance:     importance,
		QueryText:      queryText,
	}
}

// VectorCandidate wraps a bare vector result for ranking.
func VectorCandidate(vr *VectorResult, chunk *Chunk, collectionID, collectionName string, importance Importance, queryText string) Candidate {
	return Candidate{
		Kind:           KindVector,
		Score:          vr.Similarity,
		Vector:         vr,
		Chunk:          chunk,
		CollectionID:   collectionID,
		CollectionName: collectionName,
		Importance:     importance,
		QueryText:      queryText,
	}
}

// KeywordCandidate wraps a bare keyword result for ranking.
func KeywordCandidate(kr *KeywordResult, chunk *Chunk, collectionID, collectionName string, importance Importance, queryText string) Candidate {
	return Candidate{
		Kind:           KindKeyword,
		Score:          kr.Score,
		Keyword:        kr,
		Chunk:          chunk,
		CollectionID:   collectionID,
		CollectionName: collectionName,
		Importance:     importance,
		QueryText:      queryText,
	}
}

// ChunkID returns the chunk ID of whichever variant the candidate
// holds.
func (c *Candidate) ChunkID() string {
	switch {
	case c.Fused != nil:
		return c.Fused.ChunkID
	case c.Vector != nil:
		return c.Vector.ChunkID
	case c.Keyword != nil:
		return c.Keyword.ChunkID
	}
	return ""
}

// Text returns the chunk text backing the candidate, or "" when the
// chunk could not be resolved.
func (c *Candidate) Text() string {
	if c.Chunk == nil {
		return ""
	}
	return c.Chunk.Text
}

// RankedResult is a candidate that survived ranking, deduplication, and
// the token budget. Text is the render text: usually the chunk text,
// but shortened when Truncated is set.
type RankedResult struct {
	Candidate

	Text            string
	EstimatedTokens int
	Truncated       bool
}
