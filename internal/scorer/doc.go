// Package scorer evaluates queries against a collection: BM25 (primary)
// and TF-IDF (alternative) over the keyword index, and cosine similarity
// over chunk embeddings.
//
// All scoring functions are pure reads over the index and chunk set and
// are safe to call concurrently against the same snapshot.
//
// # BM25
//
// For each query term with document frequency df over N indexed chunks:
//
//	idf  = ln((N - df + 0.5) / (df + 0.5) + 1)
//	s(c) = idf * (tf * (k1+1)) / (tf + k1 * (1 - b + b*len(c)/avgLen))
//
// contributions accumulate per chunk across query terms. Defaults are
// k1=1.5, b=0.75, topK=10.
//
// # Vector similarity
//
// Chunk vectors are stored L2-normalized, so similarity is the plain
// dot product clamped to [0, 1]. NormalizeVector is provided for
// callers holding raw embeddings.
package scorer
