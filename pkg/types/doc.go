// Package types provides shared type definitions for the CharaEngine
// retrieval core.
//
// This package defines the domain types that cross package boundaries:
// chunks, queries, and the result variants produced at each stage of the
// retrieval pipeline.
//
// # Core Types
//
// Chunk represents a passage-sized unit of indexed text belonging to a
// document inside a collection:
//
//	chunk := &types.Chunk{
//	    ID:    "c-41",
//	    DocID: "d-7",
//	    Text:  "The northern kingdom fell in the third age...",
//	    Metadata: types.ChunkMetadata{DocTitle: "History of the North"},
//	}
//
// Query carries a single retrieval intent with an importance tag that
// controls budgeting:
//
//	q := types.Query{
//	    Text:       "who rules the northern kingdom",
//	    Importance: types.ImportanceMustHave,
//	}
//
// # Result Variants
//
// Each retrieval stage has its own result shape: KeywordResult and
// VectorResult from the scorers, FusedResult from the fusion engine,
// and RankedResult from the ranker. Candidate is the tagged union the
// ranker consumes; its ranking score is resolved once at construction:
//
//	cand := types.FusedCandidate(fused, types.ImportanceMustHave, q.Text)
//	_ = cand.Score // fusion score, already resolved
//
// A FusedResult records which scorers matched the chunk through its two
// optional match pointers; MatchedBoth, VectorOnly, and KeywordOnly
// cover the three legal states.
package types
