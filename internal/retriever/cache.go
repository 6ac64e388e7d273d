package retriever

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

// cacheEntry records one request's final result list, which collections
// it drew from, and when it goes stale.
type cacheEntry struct {
	results     []types.RankedResult
	collections map[string]struct{}
	expiresAt   time.Time
}

// queryCache memoizes full retrieval responses by request fingerprint.
// Entries expire after a TTL and are purged eagerly whenever one of
// their collections is reindexed.
type queryCache struct {
	lru *lru.Cache[string, *cacheEntry]
	ttl time.Duration
}

// newQueryCache creates a query cache. A non-positive size disables
// caching entirely.
func newQueryCache(size int, ttl time.Duration) *queryCache {
	if size <= 0 {
		return &queryCache{}
	}
	cache, err := lru.New[string, *cacheEntry](size)
	if err != nil {
		return &queryCache{}
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &queryCache{lru: cache, ttl: ttl}
}

// cacheKey fingerprints a request. Every input that can change the
// result list must be folded in.
func cacheKey(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(h[:])
}

// get returns a deep copy of a live cached result list.
func (c *queryCache) get(key string) ([]types.RankedResult, bool) {
	if c.lru == nil {
		return nil, false
	}
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return copyResults(entry.results), true
}

// set stores a deep copy of the result list under the key.
func (c *queryCache) set(key string, results []types.RankedResult, collectionIDs []string) {
	if c.lru == nil {
		return
	}
	touched := make(map[string]struct{}, len(collectionIDs))
	for _, id := range collectionIDs {
		touched[id] = struct{}{}
	}
	c.lru.Add(key, &cacheEntry{
		results:     copyResults(results),
		collections: touched,
		expiresAt:   time.Now().Add(c.ttl),
	})
}

// invalidateCollection drops every entry that drew from the collection.
func (c *queryCache) invalidateCollection(collectionID string) {
	if c.lru == nil {
		return
	}
	for _, key := range c.lru.Keys() {
		entry, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if _, touched := entry.collections[collectionID]; touched {
			c.lru.Remove(key)
		}
	}
}

// purge empties the cache.
func (c *queryCache) purge() {
	if c.lru != nil {
		c.lru.Purge()
	}
}

// copyResults deep-copies a result list so cached data is never shared
// with callers.
func copyResults(results []types.RankedResult) []types.RankedResult {
	if results == nil {
		return nil
	}
	out := make([]types.RankedResult, len(results))
	for i := range results {
		out[i] = results[i]
		out[i].Candidate = copyCandidate(&results[i].Candidate)
	}
	return out
}

func copyCandidate(c *types.Candidate) types.Candidate {
	copied := *c
	if c.Fused != nil {
		copied.Fused = copyFused(c.Fused)
	}
	if c.Vector != nil {
		v := *c.Vector
		copied.Vector = &v
	}
	if c.Keyword != nil {
		copied.Keyword = copyKeyword(c.Keyword)
	}
	if c.Chunk != nil {
		copied.Chunk = copyChunk(c.Chunk)
	}
	return copied
}

func copyFused(fr *types.FusedResult) *types.FusedResult {
	copied := *fr
	if fr.Vector != nil {
		v := *fr.Vector
		copied.Vector = &v
	}
	if fr.Keyword != nil {
		k := *fr.Keyword
		k.MatchedTerms = copyTerms(fr.Keyword.MatchedTerms)
		copied.Keyword = &k
	}
	if fr.Chunk != nil {
		copied.Chunk = copyChunk(fr.Chunk)
	}
	return &copied
}

func copyKeyword(kr *types.KeywordResult) *types.KeywordResult {
	copied := *kr
	copied.MatchedTerms = copyTerms(kr.MatchedTerms)
	return &copied
}

func copyTerms(terms map[string]int) map[string]int {
	if terms == nil {
		return nil
	}
	copied := make(map[string]int, len(terms))
	for term, n := range terms {
		copied[term] = n
	}
	return copied
}

func copyChunk(c *types.Chunk) *types.Chunk {
	copied := *c
	if c.Vector != nil {
		copied.Vector = make([]float32, len(c.Vector))
		copy(copied.Vector, c.Vector)
	}
	if c.Metadata.Extra != nil {
		copied.Metadata.Extra = make(map[string]string, len(c.Metadata.Extra))
		for k, v := range c.Metadata.Extra {
			copied.Metadata.Extra[k] = v
		}
	}
	return &copied
}
