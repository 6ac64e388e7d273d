package types

import "errors"

// ChunkMetadata carries display metadata attached to a chunk. DocTitle is
// the title of the owning document; Extra holds any additional authoring
// metadata the collection layer wants surfaced to the consumer.
type ChunkMetadata struct {
	DocTitle string
	Extra    map[string]string
}

// Chunk represents a passage-sized unit of indexed text. Chunks are owned
// by the collection layer and are immutable once indexed; re-indexing
// replaces a chunk rather than mutating it.
type Chunk struct {
	// Identification
	ID    string
	DocID string

	// Content
	Text string

	// Vector is the chunk's embedding, already L2-normalized.
	// Nil when the chunk has not been vectorized.
	Vector []float32

	// Metadata
	Metadata ChunkMetadata
}

// HasVector reports whether the chunk carries a usable embedding.
func (c *Chunk) HasVector() bool {
	return len(c.Vector) > 0
}

// Validate performs basic integrity checks on the chunk.
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk ID cannot be empty")
	}
	if c.Text == "" {
		return errors.New("chunk text cannot be empty")
	}
	return nil
}

// DedupKey returns the key used for document-level deduplication.
// Chunks without a document fall back to their own ID so they are
// never collapsed together.
func (c *Chunk) DedupKey() string {
	if c.DocID != "" {
		return c.DocID
	}
	return c.ID
}
