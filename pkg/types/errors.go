package types

import "errors"

// Domain errors shared across packages
var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrChunkNotFound      = errors.New("chunk not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrEmptyCollection    = errors.New("collection has no chunks")
)
