package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/config"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/embedder"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/storage"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

func setupRetriever(t *testing.T) (*Retriever, *storage.SQLiteStore) {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb := embedder.NewLocalProvider()
	t.Cleanup(func() { _ = emb.Close() })

	return New(store, emb, config.Default()), store
}

func seedCollection(t *testing.T, r *Retriever, store *storage.SQLiteStore, name string, chunks []types.Chunk) *storage.Collection {
	t.Helper()
	ctx := context.Background()
	coll, err := store.CreateCollection(ctx, name)
	require.NoError(t, err)
	require.NoError(t, store.UpsertChunks(ctx, coll.ID, chunks))
	_, err = r.IndexCollection(ctx, name, nil)
	require.NoError(t, err)
	return coll
}

var loreChunks = []types.Chunk{
	{ID: "c1", DocID: "dragons", Text: "The elder dragon sleeps beneath the frozen mountain.",
		Metadata: types.ChunkMetadata{DocTitle: "Dragons"}},
	{ID: "c2", DocID: "dragons", Text: "Dragon scales deflect all mundane weapons.",
		Metadata: types.ChunkMetadata{DocTitle: "Dragons"}},
	{ID: "c3", DocID: "harbor", Text: "The harbor city trades in silk and spice.",
		Metadata: types.ChunkMetadata{DocTitle: "Harbor"}},
}

func TestIndexCollectionReport(t *testing.T) {
	r, store := setupRetriever(t)
	ctx := context.Background()

	coll, err := store.CreateCollection(ctx, "lore")
	require.NoError(t, err)
	require.NoError(t, store.UpsertChunks(ctx, coll.ID, loreChunks))

	var progressCalls int
	report, err := r.IndexCollection(ctx, "lore", func(done, total int) { progressCalls++ })
	require.NoError(t, err)

	assert.Equal(t, coll.ID, report.CollectionID)
	assert.Equal(t, 3, report.ChunkCount)
	assert.Equal(t, 3, report.Vectorized)
	assert.Greater(t, report.Terms, 0)
	assert.Greater(t, progressCalls, 0)

	// The embeddings were persisted, so a rebuild has nothing to embed.
	report, err = r.IndexCollection(ctx, "lore", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Vectorized)
}

func TestRetrieveHybrid(t *testing.T) {
	r, store := setupRetriever(t)
	seedCollection(t, r, store, "lore", loreChunks)

	resp, err := r.Retrieve(context.Background(), Request{
		Queries: []types.Query{{Text: "dragon mountain"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	assert.Equal(t, config.ModeHybrid, resp.Stats.Mode)
	assert.Equal(t, 1, resp.Stats.Collections)
	assert.Greater(t, resp.Stats.KeywordMatches, 0)

	top := resp.Results[0]
	assert.Equal(t, "lore", top.CollectionName)
	require.NotNil(t, top.Chunk)
	assert.Contains(t, top.Text, "dragon")
	assert.Greater(t, top.EstimatedTokens, 0)
}

func TestRetrieveKeywordOnly(t *testing.T) {
	r, store := setupRetriever(t)
	seedCollection(t, r, store, "lore", loreChunks)

	resp, err := r.Retrieve(context.Background(), Request{
		Queries: []types.Query{{Text: "harbor silk"}},
		Mode:    config.ModeKeywordOnly,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	assert.Equal(t, types.KindKeyword, resp.Results[0].Kind)
	assert.Equal(t, "c3", resp.Results[0].ChunkID())
	assert.Zero(t, resp.Stats.VectorMatches)
}

func TestRetrieveVectorOnly(t *testing.T) {
	r, store := setupRetriever(t)
	seedCollection(t, r, store, "lore", loreChunks)

	// The local embedder is deterministic, so querying with a chunk's
	// exact text yields similarity 1 for that chunk.
	resp, err := r.Retrieve(context.Background(), Request{
		Queries: []types.Query{{Text: loreChunks[2].Text}},
		Mode:    config.ModeVectorOnly,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	assert.Equal(t, types.KindVector, resp.Results[0].Kind)
	assert.Equal(t, "c3", resp.Results[0].ChunkID())
	assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-4)
}

func TestRetrieveUnknownModeFallsBack(t *testing.T) {
	r, store := setupRetriever(t)
	seedCollection(t, r, store, "lore", loreChunks)

	resp, err := r.Retrieve(context.Background(), Request{
		Queries: []types.Query{{Text: "dragon"}},
		Mode:    "telepathy",
	})
	require.NoError(t, err)
	assert.Equal(t, config.ModeHybrid, resp.Stats.Mode)
	assert.NotEmpty(t, resp.Results)
}

func TestRetrieveEmptyQueries(t *testing.T) {
	r, _ := setupRetriever(t)

	resp, err := r.Retrieve(context.Background(), Request{})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestRetrieveUnknownCollectionScope(t *testing.T) {
	r, store := setupRetriever(t)
	seedCollection(t, r, store, "lore", loreChunks)

	// Scope with one unknown name skips it and still searches the rest.
	resp, err := r.Retrieve(context.Background(), Request{
		Queries:     []types.Query{{Text: "dragon"}},
		Collections: []string{"lore", "missing"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Stats.Collections)

	// Scope resolving to nothing is an error.
	_, err = r.Retrieve(context.Background(), Request{
		Queries:     []types.Query{{Text: "dragon"}},
		Collections: []string{"missing"},
	})
	assert.ErrorIs(t, err, types.ErrCollectionNotFound)
}

func TestPerQueryCollectionScope(t *testing.T) {
	r, store := setupRetriever(t)
	seedCollection(t, r, store, "dragons", loreChunks[:2])
	seedCollection(t, r, store, "cities", loreChunks[2:])

	resp, err := r.Retrieve(context.Background(), Request{
		Queries: []types.Query{
			{Text: "dragon harbor", Collections: []string{"cities"}},
		},
		Mode: config.ModeKeywordOnly,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	for _, res := range resp.Results {
		assert.Equal(t, "cities", res.CollectionName)
	}
}

func TestMultiQueryImportanceMerge(t *testing.T) {
	r, store := setupRetriever(t)
	seedCollection(t, r, store, "lore", loreChunks)

	resp, err := r.Retrieve(context.Background(), Request{
		Queries: []types.Query{
			{Text: "harbor silk spice", Importance: types.ImportanceNiceToHave},
			{Text: "dragon mountain", Importance: types.ImportanceMustHave},
		},
		Mode: config.ModeKeywordOnly,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	// must_have results sort strictly before nice_to_have.
	assert.Equal(t, types.ImportanceMustHave, resp.Results[0].Importance)
	assert.Equal(t, 2, resp.Stats.Queries)
}

func TestQueryCacheHitAndInvalidation(t *testing.T) {
	r, store := setupRetriever(t)
	coll := seedCollection(t, r, store, "lore", loreChunks)
	ctx := context.Background()

	req := Request{Queries: []types.Query{{Text: "dragon"}}}

	first, err := r.Retrieve(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Stats.CacheHit)

	second, err := r.Retrieve(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Stats.CacheHit)
	assert.Equal(t, len(first.Results), len(second.Results))

	// Mutating a cached result must not leak into the cache.
	if len(second.Results) > 0 && second.Results[0].Chunk != nil {
		second.Results[0].Chunk.Text = "tampered"
		third, err := r.Retrieve(ctx, req)
		require.NoError(t, err)
		assert.NotEqual(t, "tampered", third.Results[0].Chunk.Text)
	}

	// Reindexing the collection drops its cached entries.
	_, err = r.UpdateCollection(ctx, coll.ID, []types.Chunk{
		{ID: "c4", DocID: "dragons", Text: "A young dragon hatched this spring."},
	}, nil)
	require.NoError(t, err)

	after, err := r.Retrieve(ctx, req)
	require.NoError(t, err)
	assert.False(t, after.Stats.CacheHit)
}

func TestUpdateCollection(t *testing.T) {
	r, store := setupRetriever(t)
	coll := seedCollection(t, r, store, "lore", loreChunks)
	ctx := context.Background()

	report, err := r.UpdateCollection(ctx, coll.ID, []types.Chunk{
		{ID: "c4", DocID: "volcano", Text: "The volcano erupts every hundred years."},
	}, []string{"c3"})
	require.NoError(t, err)
	assert.Equal(t, 3, report.ChunkCount)
	assert.Equal(t, 1, report.Vectorized)

	// The removed chunk no longer matches; the added one does.
	resp, err := r.Retrieve(ctx, Request{
		Queries: []types.Query{{Text: "volcano erupts"}},
		Mode:    config.ModeKeywordOnly,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "c4", resp.Results[0].ChunkID())

	resp, err = r.Retrieve(ctx, Request{
		Queries: []types.Query{{Text: "silk spice"}},
		Mode:    config.ModeKeywordOnly,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestRemoveCollection(t *testing.T) {
	r, store := setupRetriever(t)
	coll := seedCollection(t, r, store, "lore", loreChunks)
	ctx := context.Background()

	require.NoError(t, r.RemoveCollection(ctx, coll.ID))

	_, err := r.Retrieve(ctx, Request{
		Queries:     []types.Query{{Text: "dragon"}},
		Collections: []string{"lore"},
	})
	assert.ErrorIs(t, err, types.ErrCollectionNotFound)
}

func TestIndexingLockRejectsConcurrentBuild(t *testing.T) {
	r, store := setupRetriever(t)
	coll := seedCollection(t, r, store, "lore", loreChunks)

	lock := r.buildLock(coll.ID)
	require.True(t, lock.TryAcquire())
	defer lock.Release()

	_, err := r.IndexCollection(context.Background(), coll.ID, nil)
	assert.ErrorIs(t, err, ErrIndexingInProgress)

	_, err = r.UpdateCollection(context.Background(), coll.ID, nil, nil)
	assert.ErrorIs(t, err, ErrIndexingInProgress)
}

func TestTokenBudgetOverride(t *testing.T) {
	r, store := setupRetriever(t)
	seedCollection(t, r, store, "lore", loreChunks)

	resp, err := r.Retrieve(context.Background(), Request{
		Queries: []types.Query{
			{Text: "dragon harbor silk mountain", Importance: types.ImportanceNiceToHave},
		},
		Mode:        config.ModeKeywordOnly,
		TokenBudget: 12,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, resp.Stats.TotalTokens, 12)
}
