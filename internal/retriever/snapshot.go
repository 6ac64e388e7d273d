package retriever

import (
	"sync"
	"sync/atomic"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/fusion"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/index"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/storage"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

// Snapshot is an immutable view of one collection: its chunks and the
// keyword index built over them. Queries run against snapshots; index
// rebuilds produce a fresh snapshot and swap it in atomically, so a
// query never observes a half-built index.
type Snapshot struct {
	Collection *storage.Collection
	Chunks     []*types.Chunk
	Index      *index.KeywordIndex

	byID map[string]*types.Chunk
}

// NewSnapshot builds a snapshot over the given chunks and index.
func NewSnapshot(coll *storage.Collection, chunks []types.Chunk, idx *index.KeywordIndex) *Snapshot {
	snap := &Snapshot{
		Collection: coll,
		Index:      idx,
		Chunks:     make([]*types.Chunk, len(chunks)),
		byID:       make(map[string]*types.Chunk, len(chunks)),
	}
	for i := range chunks {
		c := chunks[i]
		snap.Chunks[i] = &c
		snap.byID[c.ID] = &c
	}
	return snap
}

// Chunk resolves a chunk ID within the snapshot.
func (s *Snapshot) Chunk(id string) (*types.Chunk, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Lookup adapts the snapshot to the fusion layer's resolver contract.
func (s *Snapshot) Lookup(chunkID string) (fusion.ChunkInfo, bool) {
	c, ok := s.byID[chunkID]
	if !ok {
		return fusion.ChunkInfo{}, false
	}
	return fusion.ChunkInfo{
		Chunk:          c,
		CollectionID:   s.Collection.ID,
		CollectionName: s.Collection.Name,
	}, true
}

// snapshotSet holds the live snapshot per collection, addressable by
// collection ID or name.
type snapshotSet struct {
	mu     sync.RWMutex
	byID   map[string]*Snapshot
	byName map[string]*Snapshot
}

func newSnapshotSet() *snapshotSet {
	return &snapshotSet{
		byID:   make(map[string]*Snapshot),
		byName: make(map[string]*Snapshot),
	}
}

// get resolves a snapshot by collection ID or name.
func (ss *snapshotSet) get(key string) (*Snapshot, bool) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	if snap, ok := ss.byID[key]; ok {
		return snap, true
	}
	snap, ok := ss.byName[key]
	return snap, ok
}

// put swaps in a new snapshot for its collection.
func (ss *snapshotSet) put(snap *Snapshot) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.byID[snap.Collection.ID] = snap
	ss.byName[snap.Collection.Name] = snap
}

// remove drops the snapshot for a collection ID.
func (ss *snapshotSet) remove(collectionID string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if snap, ok := ss.byID[collectionID]; ok {
		delete(ss.byName, snap.Collection.Name)
		delete(ss.byID, collectionID)
	}
}

// all returns the live snapshots in no particular order.
func (ss *snapshotSet) all() []*Snapshot {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	snaps := make([]*Snapshot, 0, len(ss.byID))
	for _, snap := range ss.byID {
		snaps = append(snaps, snap)
	}
	return snaps
}

// BuildLock provides non-blocking lock semantics using atomic
// operations. One lock guards each collection's index rebuilds.
type BuildLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *BuildLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *BuildLock) Release() {
	l.state.Store(0)
}
