package scorer

import (
	"math"
	"sort"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/index"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/tokenizer"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

// Default BM25 parameters.
const (
	DefaultK1   = 1.5
	DefaultB    = 0.75
	DefaultTopK = 10
)

// Options tunes keyword scoring. Zero values select the defaults.
type Options struct {
	K1   float64
	B    float64
	TopK int
}

func (o Options) withDefaults() Options {
	if o.K1 == 0 {
		o.K1 = DefaultK1
	}
	if o.B == 0 {
		o.B = DefaultB
	}
	if o.TopK == 0 {
		o.TopK = DefaultTopK
	}
	return o
}

// BM25Search scores the query against the index with Okapi BM25 and
// returns the top results in descending score order. Ties keep the
// chunks' original insertion order. An empty query, an empty index, or
// a query with no indexed terms all return an empty result.
func BM25Search(query string, idx *index.KeywordIndex, opts Options) []types.KeywordResult {
	opts = opts.withDefaults()
	return keywordSearch(query, idx, opts, func(tf, docLen, df float64) float64 {
		n := float64(idx.TotalChunks)
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)
		var lengthRatio float64
		if idx.AvgDocLength > 0 {
			lengthRatio = docLen / idx.AvgDocLength
		}
		return idf * (tf * (opts.K1 + 1)) / (tf + opts.K1*(1-opts.B+opts.B*lengthRatio))
	})
}

// TFIDFSearch is the alternative keyword scorer: classic term frequency
// times inverse document frequency, length-normalized by dividing term
// frequency by the document length (floored at 1).
func TFIDFSearch(query string, idx *index.KeywordIndex, opts Options) []types.KeywordResult {
	opts = opts.withDefaults()
	return keywordSearch(query, idx, opts, func(tf, docLen, df float64) float64 {
		if docLen < 1 {
			docLen = 1
		}
		idf := math.Log(float64(idx.TotalChunks) / df)
		return (tf / docLen) * idf
	})
}

// keywordSearch runs the shared scoring loop: tokenize the query with
// the index's own tokenizer config, accumulate per-chunk contributions
// across query terms, then sort and truncate.
func keywordSearch(query string, idx *index.KeywordIndex, opts Options, contribution func(tf, docLen, df float64) float64) []types.KeywordResult {
	if idx == nil || idx.TotalChunks == 0 {
		return nil
	}

	queryTerms := tokenizer.Tokenize(query, idx.Tokenizer)
	if len(queryTerms) == 0 {
		return nil
	}

	scores := make(map[string]float64)
	for _, term := range queryTerms {
		postings := idx.Inverted[term]
		if len(postings) == 0 {
			continue
		}
		df := float64(len(postings))
		for _, chunkID := range postings {
			tf := float64(idx.TermFreq[chunkID][term])
			docLen := float64(idx.DocLengths[chunkID])
			scores[chunkID] += contribution(tf, docLen, df)
		}
	}
	if len(scores) == 0 {
		return nil
	}

	// Collect in insertion order so the stable sort breaks ties by the
	// chunks' original order rather than map iteration order.
	results := make([]types.KeywordResult, 0, len(scores))
	for _, chunkID := range idx.DocOrder {
		score, hit := scores[chunkID]
		if !hit {
			continue
		}
		results = append(results, types.KeywordResult{
			ChunkID:      chunkID,
			Score:        score,
			MatchedTerms: matchedTerms(idx, chunkID, queryTerms),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results
}

// matchedTerms returns the subset of query terms present in the chunk,
// each with its occurrence count in that chunk.
func matchedTerms(idx *index.KeywordIndex, chunkID string, queryTerms []string) map[string]int {
	counts := idx.TermFreq[chunkID]
	matched := make(map[string]int)
	for _, term := range queryTerms {
		if n, ok := counts[term]; ok {
			matched[term] = n
		}
	}
	return matched
}
