package index

import (
	"fmt"
	"math"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/tokenizer"
)

// KeywordIndex holds the lexical statistics for one collection: term
// posting lists, per-chunk term frequencies, and document lengths. It is
// built once per collection and is read-only during query evaluation;
// Update produces a new index rather than mutating in place, so an index
// value handed to concurrent readers never changes underneath them.
type KeywordIndex struct {
	// Inverted maps each term to the chunk IDs containing it. Posting
	// lists hold unique IDs in insertion order.
	Inverted map[string][]string `json:"inverted_index"`

	// TermFreq maps chunk ID to per-term occurrence counts.
	TermFreq map[string]map[string]int `json:"term_frequency"`

	// DocLengths maps chunk ID to its token count.
	DocLengths map[string]int `json:"doc_lengths"`

	// DocOrder lists chunk IDs in index insertion order. Scorers use it
	// to make tie-breaks deterministic across map iteration.
	DocOrder []string `json:"doc_order"`

	AvgDocLength float64 `json:"avg_doc_length"`
	TotalChunks  int     `json:"total_chunks"`

	// Tokenizer is the configuration used at build time. Queries must
	// be tokenized with the same configuration to score correctly.
	Tokenizer tokenizer.Config `json:"tokenizer"`
}

// Contains reports whether the index covers the given chunk ID.
func (idx *KeywordIndex) Contains(chunkID string) bool {
	_, ok := idx.DocLengths[chunkID]
	return ok
}

// DocFrequency returns the number of chunks containing term.
func (idx *KeywordIndex) DocFrequency(term string) int {
	return len(idx.Inverted[term])
}

// ValidationResult is the outcome of an advisory index check.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks the index invariants: every chunk referenced by a
// posting list has term-frequency and length entries, posting lists are
// duplicate-free, the average length matches the mean of DocLengths,
// and TotalChunks matches the length tables. It is a diagnostic call,
// never invoked on the query path.
func Validate(idx *KeywordIndex) ValidationResult {
	var errs []string
	if idx == nil {
		return ValidationResult{Valid: false, Errors: []string{"index is nil"}}
	}

	for term, postings := range idx.Inverted {
		seen := make(map[string]struct{}, len(postings))
		for _, id := range postings {
			if _, dup := seen[id]; dup {
				errs = append(errs, fmt.Sprintf("term %q: duplicate chunk id %q in posting list", term, id))
			}
			seen[id] = struct{}{}
			if _, ok := idx.TermFreq[id]; !ok {
				errs = append(errs, fmt.Sprintf("term %q: chunk %q missing from term frequencies", term, id))
			}
			if _, ok := idx.DocLengths[id]; !ok {
				errs = append(errs, fmt.Sprintf("term %q: chunk %q missing from doc lengths", term, id))
			}
		}
		if len(postings) == 0 {
			errs = append(errs, fmt.Sprintf("term %q: empty posting list should have been removed", term))
		}
	}

	if idx.TotalChunks != len(idx.DocLengths) {
		errs = append(errs, fmt.Sprintf("total chunks %d does not match doc length entries %d", idx.TotalChunks, len(idx.DocLengths)))
	}
	if len(idx.DocOrder) != len(idx.DocLengths) {
		errs = append(errs, fmt.Sprintf("doc order entries %d do not match doc length entries %d", len(idx.DocOrder), len(idx.DocLengths)))
	}

	var total int
	for _, n := range idx.DocLengths {
		total += n
	}
	want := 0.0
	if len(idx.DocLengths) > 0 {
		want = float64(total) / float64(len(idx.DocLengths))
	}
	if math.Abs(idx.AvgDocLength-want) > 1e-9 {
		errs = append(errs, fmt.Sprintf("avg doc length %g does not match mean %g", idx.AvgDocLength, want))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
