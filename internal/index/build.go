package index

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/tokenizer"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

// tokenizedChunk is one chunk's lexical statistics before merging.
type tokenizedChunk struct {
	id     string
	counts map[string]int
	order  []string // distinct terms in first-appearance order
	length int
}

// tokenizeChunk computes term counts for a single chunk.
func tokenizeChunk(chunk *types.Chunk, cfg tokenizer.Config) tokenizedChunk {
	tokens := tokenizer.Tokenize(chunk.Text, cfg)
	tc := tokenizedChunk{
		id:     chunk.ID,
		counts: make(map[string]int, len(tokens)),
		length: len(tokens),
	}
	for _, term := range tokens {
		if tc.counts[term] == 0 {
			tc.order = append(tc.order, term)
		}
		tc.counts[term]++
	}
	return tc
}

// Build constructs a keyword index over the given chunks. Tokenization
// runs per chunk across a worker pool; the posting-list merge is
// sequential in chunk order so the resulting index is deterministic.
func Build(chunks []*types.Chunk, cfg tokenizer.Config) *KeywordIndex {
	idx := &KeywordIndex{
		Inverted:   make(map[string][]string),
		TermFreq:   make(map[string]map[string]int, len(chunks)),
		DocLengths: make(map[string]int, len(chunks)),
		Tokenizer:  cfg,
	}

	tokenized := make([]tokenizedChunk, len(chunks))
	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for i, chunk := range chunks {
		g.Go(func() error {
			tokenized[i] = tokenizeChunk(chunk, cfg)
			return nil
		})
	}
	// Workers never return an error; Wait is only a barrier.
	_ = g.Wait()

	for _, tc := range tokenized {
		addTokenized(idx, tc)
	}
	recompute(idx)
	return idx
}

// Update applies an incremental change to an existing index: removed
// chunk IDs are stripped, then added chunks are indexed following the
// same procedure as a fresh build. The input index is not modified; the
// result is identical to rebuilding from scratch over the final chunk
// set. Passing a nil existing index is equivalent to Build(added, cfg).
func Update(existing *KeywordIndex, added []*types.Chunk, removedIDs []string, cfg tokenizer.Config) *KeywordIndex {
	if existing == nil {
		return Build(added, cfg)
	}

	removed := make(map[string]struct{}, len(removedIDs))
	for _, id := range removedIDs {
		removed[id] = struct{}{}
	}

	idx := &KeywordIndex{
		Inverted:   make(map[string][]string, len(existing.Inverted)),
		TermFreq:   make(map[string]map[string]int, len(existing.TermFreq)),
		DocLengths: make(map[string]int, len(existing.DocLengths)),
		Tokenizer:  cfg,
	}

	// Carry over surviving chunks.
	for term, postings := range existing.Inverted {
		kept := make([]string, 0, len(postings))
		for _, id := range postings {
			if _, gone := removed[id]; !gone {
				kept = append(kept, id)
			}
		}
		if len(kept) > 0 {
			idx.Inverted[term] = kept
		}
	}
	for id, counts := range existing.TermFreq {
		if _, gone := removed[id]; gone {
			continue
		}
		copied := make(map[string]int, len(counts))
		for term, n := range counts {
			copied[term] = n
		}
		idx.TermFreq[id] = copied
	}
	for id, length := range existing.DocLengths {
		if _, gone := removed[id]; gone {
			continue
		}
		idx.DocLengths[id] = length
	}
	for _, id := range existing.DocOrder {
		if _, gone := removed[id]; !gone {
			idx.DocOrder = append(idx.DocOrder, id)
		}
	}

	// Index the additions the same way a fresh build would.
	for _, chunk := range added {
		addTokenized(idx, tokenizeChunk(chunk, cfg))
	}

	recompute(idx)
	return idx
}

// addTokenized merges one chunk's statistics into the index. A chunk ID
// already present is replaced: its previous postings are stripped first
// so re-adding a chunk behaves like re-indexing it.
func addTokenized(idx *KeywordIndex, tc tokenizedChunk) {
	if idx.Contains(tc.id) {
		stripChunk(idx, tc.id)
	}

	idx.DocLengths[tc.id] = tc.length
	idx.TermFreq[tc.id] = tc.counts
	idx.DocOrder = append(idx.DocOrder, tc.id)
	for _, term := range tc.order {
		idx.Inverted[term] = append(idx.Inverted[term], tc.id)
	}
}

// stripChunk removes every trace of a chunk from the index.
func stripChunk(idx *KeywordIndex, chunkID string) {
	for term := range idx.TermFreq[chunkID] {
		postings := idx.Inverted[term]
		kept := postings[:0]
		for _, id := range postings {
			if id != chunkID {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(idx.Inverted, term)
		} else {
			idx.Inverted[term] = kept
		}
	}
	delete(idx.TermFreq, chunkID)
	delete(idx.DocLengths, chunkID)
	for i, id := range idx.DocOrder {
		if id == chunkID {
			idx.DocOrder = append(idx.DocOrder[:i], idx.DocOrder[i+1:]...)
			break
		}
	}
}

// recompute refreshes the derived statistics after a build or update.
func recompute(idx *KeywordIndex) {
	idx.TotalChunks = len(idx.DocLengths)
	if idx.TotalChunks == 0 {
		idx.AvgDocLength = 0
		return
	}
	var total int
	for _, n := range idx.DocLengths {
		total += n
	}
	idx.AvgDocLength = float64(total) / float64(idx.TotalChunks)
}
