package storage

import (
	"context"
	"time"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/index"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

// Store defines the interface for persisting collections, chunks,
// embeddings, and keyword indexes.
type Store interface {
	// Collection operations
	CreateCollection(ctx context.Context, name string) (*Collection, error)
	GetCollection(ctx context.Context, id string) (*Collection, error)
	GetCollectionByName(ctx context.Context, name string) (*Collection, error)
	ListCollections(ctx context.Context) ([]*Collection, error)
	DeleteCollection(ctx context.Context, id string) error
	TouchIndexed(ctx context.Context, id string) error

	// Chunk operations
	UpsertChunks(ctx context.Context, collectionID string, chunks []types.Chunk) error
	GetChunk(ctx context.Context, chunkID string) (*types.Chunk, error)
	ListChunks(ctx context.Context, collectionID string) ([]types.Chunk, error)
	ListChunksByDoc(ctx context.Context, collectionID, docID string) ([]types.Chunk, error)
	DeleteChunks(ctx context.Context, chunkIDs []string) (int, error)
	DeleteChunksByDoc(ctx context.Context, collectionID, docID string) error

	// Keyword index persistence
	SaveKeywordIndex(ctx context.Context, collectionID string, idx *index.KeywordIndex) error
	LoadKeywordIndex(ctx context.Context, collectionID string) (*index.KeywordIndex, error)

	// Stats
	GetStats(ctx context.Context) (*Stats, error)

	// Database operations
	Close() error
}

// Collection is a named set of chunks indexed together.
type Collection struct {
	ID         string
	Name       string
	ChunkCount int
	IndexedAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CollectionStats describes one collection in a stats report.
type CollectionStats struct {
	Collection *Collection
	DocCount   int
	HasIndex   bool
	Vectorized int
}

// Stats is an engine-wide snapshot of what is stored.
type Stats struct {
	Collections []CollectionStats
	TotalChunks int
	SizeBytes   int64
}
