// Package embedder defines the embedding-provider boundary and a
// deterministic local provider.
//
// The retrieval core never talks to an embedding model directly; it
// consumes vectors through the Embedder interface. Embeddings are
// cached in memory by content hash with LRU eviction, and bulk chunk
// vectorization reports per-batch progress through a callback.
package embedder
