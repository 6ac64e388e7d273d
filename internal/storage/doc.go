// Package storage persists collections, chunks, embeddings, and
// keyword indexes in SQLite.
//
// Two drivers are supported via build tags: the CGO driver
// (github.com/mattn/go-sqlite3, tag cgo_sqlite) and a pure Go driver
// (modernc.org/sqlite, the default). Embedding vectors are stored as
// little-endian float32 blobs; keyword indexes are stored as JSON, one
// row per collection.
package storage
