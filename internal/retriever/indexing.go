package retriever

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/embedder"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/index"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/storage"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

// IndexReport summarizes an index build or update.
type IndexReport struct {
	CollectionID   string
	CollectionName string
	ChunkCount     int
	Vectorized     int
	Terms          int
	Duration       time.Duration
}

// IndexCollection rebuilds a collection's keyword index from scratch,
// vectorizing any chunks that still lack embeddings. The new snapshot
// replaces the old one atomically and cached query results touching the
// collection are invalidated.
func (r *Retriever) IndexCollection(ctx context.Context, key string, onProgress embedder.ProgressFunc) (*IndexReport, error) {
	start := time.Now()

	coll, err := r.resolveCollection(ctx, key)
	if err != nil {
		return nil, err
	}

	lock := r.buildLock(coll.ID)
	if !lock.TryAcquire() {
		return nil, fmt.Errorf("collection %q: %w", coll.Name, ErrIndexingInProgress)
	}
	defer lock.Release()

	chunks, err := r.store.ListChunks(ctx, coll.ID)
	if err != nil {
		return nil, err
	}

	vectorized, err := r.vectorizeMissing(ctx, coll.ID, chunks, onProgress)
	if err != nil {
		return nil, err
	}

	idx := index.Build(chunkPtrs(chunks), r.tokenizerConfig())
	if err := r.store.SaveKeywordIndex(ctx, coll.ID, idx); err != nil {
		return nil, err
	}
	if err := r.store.TouchIndexed(ctx, coll.ID); err != nil {
		return nil, err
	}

	if err := r.swapSnapshot(ctx, coll.ID, chunks, idx); err != nil {
		return nil, err
	}

	return &IndexReport{
		CollectionID:   coll.ID,
		CollectionName: coll.Name,
		ChunkCount:     len(chunks),
		Vectorized:     vectorized,
		Terms:          len(idx.Inverted),
		Duration:       time.Since(start),
	}, nil
}

// UpdateCollection applies an incremental change: removedIDs are
// deleted, added chunks are stored and indexed. The resulting index is
// identical to a full rebuild over the final chunk set.
func (r *Retriever) UpdateCollection(ctx context.Context, key string, added []types.Chunk, removedIDs []string) (*IndexReport, error) {
	start := time.Now()

	coll, err := r.resolveCollection(ctx, key)
	if err != nil {
		return nil, err
	}

	lock := r.buildLock(coll.ID)
	if !lock.TryAcquire() {
		return nil, fmt.Errorf("collection %q: %w", coll.Name, ErrIndexingInProgress)
	}
	defer lock.Release()

	existing, err := r.store.LoadKeywordIndex(ctx, coll.ID)
	if errors.Is(err, storage.ErrNotFound) {
		existing = nil
	} else if err != nil {
		return nil, err
	}

	vectorized, err := r.vectorizeMissing(ctx, coll.ID, added, nil)
	if err != nil {
		return nil, err
	}

	if _, err := r.store.DeleteChunks(ctx, removedIDs); err != nil {
		return nil, err
	}
	if err := r.store.UpsertChunks(ctx, coll.ID, added); err != nil {
		return nil, err
	}

	idx := index.Update(existing, chunkPtrs(added), removedIDs, r.tokenizerConfig())
	if err := r.store.SaveKeywordIndex(ctx, coll.ID, idx); err != nil {
		return nil, err
	}
	if err := r.store.TouchIndexed(ctx, coll.ID); err != nil {
		return nil, err
	}

	chunks, err := r.store.ListChunks(ctx, coll.ID)
	if err != nil {
		return nil, err
	}
	if err := r.swapSnapshot(ctx, coll.ID, chunks, idx); err != nil {
		return nil, err
	}

	return &IndexReport{
		CollectionID:   coll.ID,
		CollectionName: coll.Name,
		ChunkCount:     len(chunks),
		Vectorized:     vectorized,
		Terms:          len(idx.Inverted),
		Duration:       time.Since(start),
	}, nil
}

// RemoveCollection deletes a collection and everything derived from it.
func (r *Retriever) RemoveCollection(ctx context.Context, key string) error {
	coll, err := r.resolveCollection(ctx, key)
	if err != nil {
		return err
	}
	if err := r.store.DeleteCollection(ctx, coll.ID); err != nil {
		return err
	}
	r.snapshots.remove(coll.ID)
	r.cache.invalidateCollection(coll.ID)
	return nil
}

// vectorizeMissing embeds every chunk without a vector, persisting the
// new embeddings. It mutates the chunks in place and returns how many
// were embedded.
func (r *Retriever) vectorizeMissing(ctx context.Context, collectionID string, chunks []types.Chunk, onProgress embedder.ProgressFunc) (int, error) {
	var indices []int
	for i := range chunks {
		if !chunks[i].HasVector() {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return 0, nil
	}

	pending := make([]types.Chunk, len(indices))
	for j, i := range indices {
		pending[j] = chunks[i]
	}

	if err := embedder.VectorizeChunks(ctx, r.emb, pending, r.cfg.Embedding.BatchSize, onProgress); err != nil {
		return 0, fmt.Errorf("vectorizing collection %s: %w", collectionID, err)
	}

	for j, i := range indices {
		chunks[i].Vector = pending[j].Vector
	}
	if err := r.store.UpsertChunks(ctx, collectionID, pending); err != nil {
		return 0, err
	}
	return len(pending), nil
}

// swapSnapshot publishes a fresh snapshot and drops stale cache
// entries. The collection record is re-read so the snapshot carries the
// updated chunk count and index timestamp.
func (r *Retriever) swapSnapshot(ctx context.Context, collectionID string, chunks []types.Chunk, idx *index.KeywordIndex) error {
	coll, err := r.store.GetCollection(ctx, collectionID)
	if err != nil {
		return err
	}
	r.snapshots.put(NewSnapshot(coll, chunks, idx))
	r.cache.invalidateCollection(collectionID)
	return nil
}
