// Package index builds and incrementally updates the keyword index for
// a collection: an inverted term->chunk index plus the per-chunk term
// frequencies and length statistics the BM25 and TF-IDF scorers need.
//
// Index construction tokenizes chunks in parallel and merges the
// results sequentially in chunk order, so building the same chunk set
// always yields the same index. Update is copy-on-write: it never
// mutates the index it is given, and its result is identical to a fresh
// build over the final chunk set, so readers holding the old index keep
// a consistent view while a new one is assembled.
package index
