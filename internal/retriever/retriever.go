package retriever

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/config"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/embedder"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/fusion"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/index"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/ranker"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/scorer"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/storage"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/tokenizer"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

// ErrIndexingInProgress is returned when a collection's index is
// already being rebuilt.
var ErrIndexingInProgress = errors.New("indexing already in progress")

// Retriever orchestrates the full retrieval pipeline: keyword and
// vector scoring against per-collection snapshots, fusion, and the
// final ranking/budget pass.
type Retriever struct {
	store     storage.Store
	emb       embedder.Embedder
	cfg       *config.Config
	snapshots *snapshotSet
	cache     *queryCache

	locksMu sync.Mutex
	locks   map[string]*BuildLock
}

// New creates a Retriever over the given store and embedder.
func New(store storage.Store, emb embedder.Embedder, cfg *config.Config) *Retriever {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Retriever{
		store:     store,
		emb:       emb,
		cfg:       cfg,
		snapshots: newSnapshotSet(),
		cache:     newQueryCache(cfg.Cache.QueryCacheSize, cfg.Cache.QueryCacheTTL),
		locks:     make(map[string]*BuildLock),
	}
}

// Request is one retrieval call: the sub-queries to evaluate, an
// optional collection scope, and optional per-call overrides of the
// configured defaults (zero values defer to configuration).
type Request struct {
	Queries     []types.Query
	Collections []string

	Mode         string
	FusionMethod string
	TokenBudget  int
}

// Stats describes what one retrieval did.
type Stats struct {
	Mode           string
	Queries        int
	Collections    int
	VectorMatches  int
	KeywordMatches int
	Candidates     int
	Returned       int
	TotalTokens    int
	Truncated      bool
	CacheHit       bool
	Duration       time.Duration
}

// Response is the final ranked result list plus retrieval statistics.
type Response struct {
	Results []types.RankedResult
	Stats   Stats
}

// Retrieve evaluates the request's sub-queries concurrently, merges
// their candidates, and returns one ranked, budgeted list. Unknown mode
// or fusion values fall back to the documented defaults rather than
// failing the request.
func (r *Retriever) Retrieve(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	mode := r.effectiveMode(req.Mode)
	resp := &Response{Stats: Stats{Mode: mode, Queries: len(req.Queries)}}
	if len(req.Queries) == 0 {
		resp.Stats.Duration = time.Since(start)
		return resp, nil
	}

	snaps, err := r.scopeSnapshots(ctx, req.Collections)
	if err != nil {
		return nil, err
	}
	resp.Stats.Collections = len(snaps)
	if len(snaps) == 0 {
		resp.Stats.Duration = time.Since(start)
		return resp, nil
	}

	key := r.requestKey(req, mode, snaps)
	if cached, ok := r.cache.get(key); ok {
		resp.Results = cached
		resp.Stats.CacheHit = true
		r.fillResultStats(resp)
		resp.Stats.Duration = time.Since(start)
		return resp, nil
	}

	lists := make([][]types.Candidate, len(req.Queries))
	perQuery := make([]queryStats, len(req.Queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, query := range req.Queries {
		g.Go(func() error {
			candidates, qs, err := r.evaluateQuery(gctx, query, snaps, mode, req.FusionMethod)
			if err != nil {
				return err
			}
			lists[i] = candidates
			perQuery[i] = qs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, qs := range perQuery {
		resp.Stats.VectorMatches += qs.vectorMatches
		resp.Stats.KeywordMatches += qs.keywordMatches
		resp.Stats.Candidates += qs.candidates
	}

	resp.Results = ranker.MergeQueryResults(lists, r.rankerOptions(req.TokenBudget))
	r.fillResultStats(resp)

	collIDs := make([]string, len(snaps))
	for i, snap := range snaps {
		collIDs[i] = snap.Collection.ID
	}
	r.cache.set(key, resp.Results, collIDs)

	resp.Stats.Duration = time.Since(start)
	return resp, nil
}

type queryStats struct {
	vectorMatches  int
	keywordMatches int
	candidates     int
}

// evaluateQuery runs one sub-query against every snapshot in its scope.
func (r *Retriever) evaluateQuery(ctx context.Context, query types.Query, snaps []*Snapshot, mode, fusionMethod string) ([]types.Candidate, queryStats, error) {
	var qs queryStats
	if query.Text == "" {
		return nil, qs, nil
	}

	scoped := filterSnapshots(snaps, query.Collections)
	importance := query.EffectiveImportance()

	// Embed the query once, not per collection. An embedding failure
	// degrades the query to keyword-only instead of failing it.
	var queryVector []float32
	if mode != config.ModeKeywordOnly {
		emb, err := r.emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query.Text})
		if err != nil {
			log.Printf("retriever: embedding query failed, falling back to keyword search: %v", err)
			mode = config.ModeKeywordOnly
		} else {
			queryVector = emb.Vector
		}
	}

	var candidates []types.Candidate
	for _, snap := range scoped {
		if err := ctx.Err(); err != nil {
			return nil, qs, err
		}

		var keywordResults []types.KeywordResult
		if mode != config.ModeVectorOnly {
			keywordResults = r.keywordSearch(query.Text, snap.Index)
			qs.keywordMatches += len(keywordResults)
		}

		var vectorResults []types.VectorResult
		if mode != config.ModeKeywordOnly {
			vectorResults = scorer.FindTopKSimilar(queryVector, snap.Chunks,
				r.cfg.Vector.TopK, r.cfg.Vector.Threshold)
			qs.vectorMatches += len(vectorResults)
		}

		switch mode {
		case config.ModeKeywordOnly:
			for i := range keywordResults {
				kr := &keywordResults[i]
				chunk, _ := snap.Chunk(kr.ChunkID)
				candidates = append(candidates, types.KeywordCandidate(kr, chunk,
					snap.Collection.ID, snap.Collection.Name, importance, query.Text))
			}
		case config.ModeVectorOnly:
			for i := range vectorResults {
				vr := &vectorResults[i]
				chunk, _ := snap.Chunk(vr.ChunkID)
				candidates = append(candidates, types.VectorCandidate(vr, chunk,
					snap.Collection.ID, snap.Collection.Name, importance, query.Text))
			}
		default:
			fusionCfg := r.fusionConfig(fusionMethod)
			fused := fusion.HybridFusion(vectorResults, keywordResults, snap.Lookup, fusionCfg)
			for i := range fused {
				candidates = append(candidates, types.FusedCandidate(&fused[i], importance, query.Text))
			}
		}
	}

	qs.candidates = len(candidates)
	return candidates, qs, nil
}

// keywordSearch scores the query with the configured algorithm. An
// unknown algorithm name falls back to BM25.
func (r *Retriever) keywordSearch(query string, idx *index.KeywordIndex) []types.KeywordResult {
	if idx == nil {
		return nil
	}
	opts := scorer.Options{
		K1:   r.cfg.Keyword.K1,
		B:    r.cfg.Keyword.B,
		TopK: r.cfg.Keyword.TopK,
	}
	switch r.cfg.Keyword.Algorithm {
	case config.AlgorithmTFIDF:
		return scorer.TFIDFSearch(query, idx, opts)
	case config.AlgorithmBM25, "":
		return scorer.BM25Search(query, idx, opts)
	default:
		log.Printf("retriever: unknown keyword algorithm %q, falling back to %s",
			r.cfg.Keyword.Algorithm, config.AlgorithmBM25)
		return scorer.BM25Search(query, idx, opts)
	}
}

func (r *Retriever) effectiveMode(override string) string {
	mode := override
	if mode == "" {
		mode = r.cfg.Retrieval.Mode
	}
	switch mode {
	case config.ModeHybrid, config.ModeVectorOnly, config.ModeKeywordOnly:
		return mode
	case "":
		return config.ModeHybrid
	default:
		log.Printf("retriever: unknown retrieval mode %q, falling back to %s", mode, config.ModeHybrid)
		return config.ModeHybrid
	}
}

func (r *Retriever) fusionConfig(methodOverride string) fusion.Config {
	cfg := fusion.Config{
		Method:            r.cfg.Fusion.Method,
		RRFK:              r.cfg.Fusion.RRFK,
		VectorWeight:      r.cfg.Fusion.VectorWeight,
		KeywordWeight:     r.cfg.Fusion.KeywordWeight,
		PrimaryMethod:     r.cfg.Fusion.PrimaryMethod,
		MinPrimaryResults: r.cfg.Fusion.MinPrimaryResults,
	}
	if methodOverride != "" {
		cfg.Method = methodOverride
	}
	return cfg
}

func (r *Retriever) rankerOptions(budgetOverride int) ranker.Options {
	opts := ranker.Options{
		TokenBudget:   r.cfg.Ranker.TokenBudget,
		Deduplicate:   true,
		DeduplicateBy: r.cfg.Ranker.DeduplicateBy,
	}
	if r.cfg.Ranker.Deduplicate != nil {
		opts.Deduplicate = *r.cfg.Ranker.Deduplicate
	}
	if budgetOverride > 0 {
		opts.TokenBudget = budgetOverride
	}
	return opts
}

func (r *Retriever) fillResultStats(resp *Response) {
	resp.Stats.Returned = len(resp.Results)
	for i := range resp.Results {
		resp.Stats.TotalTokens += resp.Results[i].EstimatedTokens
		if resp.Results[i].Truncated {
			resp.Stats.Truncated = true
		}
	}
}

// requestKey fingerprints everything that can change the result list.
func (r *Retriever) requestKey(req Request, mode string, snaps []*Snapshot) string {
	parts := []string{
		mode,
		req.FusionMethod,
		strconv.Itoa(req.TokenBudget),
		r.cfg.Keyword.Algorithm,
		r.cfg.Fusion.Method,
	}
	for _, q := range req.Queries {
		parts = append(parts, q.Text, string(q.EffectiveImportance()), strings.Join(q.Collections, ","))
	}
	for _, snap := range snaps {
		parts = append(parts, snap.Collection.ID)
	}
	return cacheKey(parts...)
}

// filterSnapshots narrows the request scope to a query's own scope.
func filterSnapshots(snaps []*Snapshot, scope []string) []*Snapshot {
	if len(scope) == 0 {
		return snaps
	}
	wanted := make(map[string]struct{}, len(scope))
	for _, key := range scope {
		wanted[key] = struct{}{}
	}
	var scoped []*Snapshot
	for _, snap := range snaps {
		if _, ok := wanted[snap.Collection.ID]; ok {
			scoped = append(scoped, snap)
			continue
		}
		if _, ok := wanted[snap.Collection.Name]; ok {
			scoped = append(scoped, snap)
		}
	}
	return scoped
}

// scopeSnapshots resolves the request's collection scope to live
// snapshots, loading from storage on first touch. Collections named by
// the scope that do not exist are logged and skipped; a non-empty scope
// resolving to nothing is an error.
func (r *Retriever) scopeSnapshots(ctx context.Context, keys []string) ([]*Snapshot, error) {
	if len(keys) == 0 {
		collections, err := r.store.ListCollections(ctx)
		if err != nil {
			return nil, err
		}
		snaps := make([]*Snapshot, 0, len(collections))
		for _, coll := range collections {
			snap, err := r.loadSnapshot(ctx, coll.ID)
			if err != nil {
				return nil, err
			}
			snaps = append(snaps, snap)
		}
		return snaps, nil
	}

	var snaps []*Snapshot
	for _, key := range keys {
		snap, err := r.loadSnapshot(ctx, key)
		if errors.Is(err, types.ErrCollectionNotFound) {
			log.Printf("retriever: skipping unknown collection %q", key)
			continue
		}
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no collections in scope %v: %w", keys, types.ErrCollectionNotFound)
	}
	return snaps, nil
}

// loadSnapshot returns the live snapshot for a collection, hydrating it
// from storage the first time. A collection that was never indexed gets
// an in-memory index built on the fly so keyword search still works.
func (r *Retriever) loadSnapshot(ctx context.Context, key string) (*Snapshot, error) {
	if snap, ok := r.snapshots.get(key); ok {
		return snap, nil
	}

	coll, err := r.resolveCollection(ctx, key)
	if err != nil {
		return nil, err
	}

	chunks, err := r.store.ListChunks(ctx, coll.ID)
	if err != nil {
		return nil, err
	}

	idx, err := r.store.LoadKeywordIndex(ctx, coll.ID)
	if errors.Is(err, storage.ErrNotFound) {
		log.Printf("retriever: collection %q has no persisted index, building in memory", coll.Name)
		idx = index.Build(chunkPtrs(chunks), r.tokenizerConfig())
	} else if err != nil {
		return nil, err
	}

	snap := NewSnapshot(coll, chunks, idx)
	r.snapshots.put(snap)
	return snap, nil
}

// resolveCollection accepts either a collection name or ID.
func (r *Retriever) resolveCollection(ctx context.Context, key string) (*storage.Collection, error) {
	coll, err := r.store.GetCollectionByName(ctx, key)
	if err == nil {
		return coll, nil
	}
	if !errors.Is(err, types.ErrCollectionNotFound) {
		return nil, err
	}
	return r.store.GetCollection(ctx, key)
}

func (r *Retriever) tokenizerConfig() tokenizer.Config {
	cfg := tokenizer.Config{
		Language: r.cfg.Tokenizer.Language,
		Stemming: r.cfg.Tokenizer.Stemming,
	}
	if len(r.cfg.Tokenizer.StopWords) > 0 {
		cfg.StopWords = make(map[string]struct{}, len(r.cfg.Tokenizer.StopWords))
		for _, w := range r.cfg.Tokenizer.StopWords {
			cfg.StopWords[w] = struct{}{}
		}
	}
	return cfg
}

func (r *Retriever) buildLock(collectionID string) *BuildLock {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	lock, ok := r.locks[collectionID]
	if !ok {
		lock = &BuildLock{}
		r.locks[collectionID] = lock
	}
	return lock
}

func chunkPtrs(chunks []types.Chunk) []*types.Chunk {
	ptrs := make([]*types.Chunk, len(chunks))
	for i := range chunks {
		ptrs[i] = &chunks[i]
	}
	return ptrs
}
