// Package retriever is the engine's orchestration layer. It evaluates
// retrieval requests against per-collection snapshots (chunks plus a
// keyword index), fuses keyword and vector scorer output, and runs the
// final ranking and token-budget pass.
//
// Snapshots are immutable: index builds produce a new snapshot and swap
// it in atomically, and a per-collection build lock rejects concurrent
// rebuilds instead of queueing them. Full responses are memoized in an
// LRU cache with a TTL; entries are invalidated when a collection they
// drew from is reindexed.
package retriever
