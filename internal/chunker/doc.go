// Package chunker splits prose documents into retrieval chunks.
//
// Paragraphs are the preferred chunk unit. Oversized paragraphs are
// split at sentence boundaries with a short character overlap between
// pieces, so content near a split still matches from either side.
package chunker
