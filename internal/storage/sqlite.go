package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/internal/index"
	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite storage instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Collection operations

func (s *SQLiteStore) CreateCollection(ctx context.Context, name string) (*Collection, error) {
	if name == "" {
		return nil, errors.New("collection name cannot be empty")
	}

	now := time.Now()
	coll := &Collection{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO collections (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, coll.ID, coll.Name, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("collection %q: %w", name, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return coll, nil
}

func (s *SQLiteStore) GetCollection(ctx context.Context, id string) (*Collection, error) {
	return s.getCollection(ctx, "id", id)
}

func (s *SQLiteStore) GetCollectionByName(ctx context.Context, name string) (*Collection, error) {
	return s.getCollection(ctx, "name", name)
}

func (s *SQLiteStore) getCollection(ctx context.Context, column, value string) (*Collection, error) {
	query := fmt.Sprintf(`
		SELECT id, name, chunk_count, indexed_at, created_at, updated_at
		FROM collections
		WHERE %s = ?
	`, column)

	var coll Collection
	var indexedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&coll.ID, &coll.Name, &coll.ChunkCount, &indexedAt,
		&coll.CreatedAt, &coll.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("collection %q: %w", value, types.ErrCollectionNotFound)
	}
	if err != nil {
		return nil, err
	}
	if indexedAt.Valid {
		coll.IndexedAt = indexedAt.Time
	}
	return &coll, nil
}

func (s *SQLiteStore) ListCollections(ctx context.Context) ([]*Collection, error) {
	query := `
		SELECT id, name, chunk_count, indexed_at, created_at, updated_at
		FROM collections
		ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var collections []*Collection
	for rows.Next() {
		var coll Collection
		var indexedAt sql.NullTime
		if err := rows.Scan(&coll.ID, &coll.Name, &coll.ChunkCount, &indexedAt,
			&coll.CreatedAt, &coll.UpdatedAt); err != nil {
			return nil, err
		}
		if indexedAt.Valid {
			coll.IndexedAt = indexedAt.Time
		}
		collections = append(collections, &coll)
	}
	return collections, rows.Err()
}

func (s *SQLiteStore) DeleteCollection(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("collection %q: %w", id, types.ErrCollectionNotFound)
	}
	return nil
}

// TouchIndexed records that the collection's index was just rebuilt and
// refreshes the stored chunk count.
func (s *SQLiteStore) TouchIndexed(ctx context.Context, id string) error {
	now := time.Now()
	query := `
		UPDATE collections
		SET indexed_at = ?,
		    updated_at = ?,
		    chunk_count = (SELECT COUNT(*) FROM chunks WHERE collection_id = ?)
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, now, now, id, id)
	if err != nil {
		return fmt.Errorf("failed to touch collection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("collection %q: %w", id, types.ErrCollectionNotFound)
	}
	return nil
}

// Chunk operations

// UpsertChunks writes chunks and their embeddings in one transaction.
// Existing rows with the same chunk ID are replaced.
func (s *SQLiteStore) UpsertChunks(ctx context.Context, collectionID string, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	chunkStmt := `
		INSERT INTO chunks (id, collection_id, doc_id, doc_title, content, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc_id = excluded.doc_id,
			doc_title = excluded.doc_title,
			content = excluded.content,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`
	embStmt := `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, '', '', ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension
	`

	now := time.Now()
	for i := range chunks {
		c := &chunks[i]
		if err := c.Validate(); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}

		var metadata []byte
		if len(c.Metadata.Extra) > 0 {
			metadata, err = json.Marshal(c.Metadata.Extra)
			if err != nil {
				return fmt.Errorf("chunk %s: failed to marshal metadata: %w", c.ID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, chunkStmt,
			c.ID, collectionID, c.DocID, c.Metadata.DocTitle, c.Text,
			nullableString(metadata), now, now); err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", c.ID, err)
		}

		if c.HasVector() {
			if _, err := tx.ExecContext(ctx, embStmt,
				c.ID, SerializeVector(c.Vector), len(c.Vector), now); err != nil {
				return fmt.Errorf("failed to upsert embedding for %s: %w", c.ID, err)
			}
		}
	}

	return tx.Commit()
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

const chunkSelect = `
	SELECT c.id, c.doc_id, c.doc_title, c.content, c.metadata,
	       e.vector, e.dimension
	FROM chunks c
	LEFT JOIN embeddings e ON e.chunk_id = c.id
`

func (s *SQLiteStore) GetChunk(ctx context.Context, chunkID string) (*types.Chunk, error) {
	row := s.db.QueryRowContext(ctx, chunkSelect+" WHERE c.id = ?", chunkID)
	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk %q: %w", chunkID, types.ErrChunkNotFound)
	}
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

func (s *SQLiteStore) ListChunks(ctx context.Context, collectionID string) ([]types.Chunk, error) {
	return s.listChunks(ctx,
		chunkSelect+" WHERE c.collection_id = ? ORDER BY c.created_at, c.id",
		collectionID)
}

func (s *SQLiteStore) ListChunksByDoc(ctx context.Context, collectionID, docID string) ([]types.Chunk, error) {
	return s.listChunks(ctx,
		chunkSelect+" WHERE c.collection_id = ? AND c.doc_id = ? ORDER BY c.created_at, c.id",
		collectionID, docID)
}

func (s *SQLiteStore) listChunks(ctx context.Context, query string, args ...any) ([]types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []types.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	return chunks, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanChunk(sc scanner) (*types.Chunk, error) {
	var chunk types.Chunk
	var docTitle, metadata sql.NullString
	var vector []byte
	var dimension sql.NullInt64

	if err := sc.Scan(&chunk.ID, &chunk.DocID, &docTitle, &chunk.Text,
		&metadata, &vector, &dimension); err != nil {
		return nil, err
	}

	chunk.Metadata.DocTitle = docTitle.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &chunk.Metadata.Extra); err != nil {
			return nil, fmt.Errorf("chunk %s: failed to unmarshal metadata: %w", chunk.ID, err)
		}
	}
	if len(vector) > 0 {
		v, err := DeserializeVector(vector, int(dimension.Int64))
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", chunk.ID, err)
		}
		chunk.Vector = v
	}
	return &chunk, nil
}

// DeleteChunks removes chunks by ID and returns how many were deleted.
func (s *SQLiteStore) DeleteChunks(ctx context.Context, chunkIDs []string) (int, error) {
	if len(chunkIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(chunkIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(chunkIDs))
	for i, id := range chunkIDs {
		args[i] = id
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLiteStore) DeleteChunksByDoc(ctx context.Context, collectionID, docID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE collection_id = ? AND doc_id = ?",
		collectionID, docID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks for doc %s: %w", docID, err)
	}
	return nil
}

// Keyword index persistence

func (s *SQLiteStore) SaveKeywordIndex(ctx context.Context, collectionID string, idx *index.KeywordIndex) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to marshal keyword index: %w", err)
	}

	query := `
		INSERT INTO keyword_indexes (collection_id, index_json, built_at)
		VALUES (?, ?, ?)
		ON CONFLICT(collection_id) DO UPDATE SET
			index_json = excluded.index_json,
			built_at = excluded.built_at
	`
	_, err = s.db.ExecContext(ctx, query, collectionID, string(data), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save keyword index: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadKeywordIndex(ctx context.Context, collectionID string) (*index.KeywordIndex, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT index_json FROM keyword_indexes WHERE collection_id = ?",
		collectionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("keyword index for collection %q: %w", collectionID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var idx index.KeywordIndex
	if err := json.Unmarshal([]byte(data), &idx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keyword index: %w", err)
	}
	return &idx, nil
}

// Stats

func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	collections, err := s.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for _, coll := range collections {
		cs := CollectionStats{Collection: coll}

		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(DISTINCT doc_id) FROM chunks WHERE collection_id = ?",
			coll.ID).Scan(&cs.DocCount)
		if err != nil {
			return nil, err
		}

		err = s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM chunks c
			JOIN embeddings e ON e.chunk_id = c.id
			WHERE c.collection_id = ?
		`, coll.ID).Scan(&cs.Vectorized)
		if err != nil {
			return nil, err
		}

		var n int
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM keyword_indexes WHERE collection_id = ?",
			coll.ID).Scan(&n)
		if err != nil {
			return nil, err
		}
		cs.HasIndex = n > 0

		stats.Collections = append(stats.Collections, cs)
		stats.TotalChunks += coll.ChunkCount
	}

	// page_count * page_size gives the on-disk size without touching
	// the filesystem, which also works for :memory: databases.
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			stats.SizeBytes = pageCount * pageSize
		}
	}

	return stats, nil
}
