package embedder

import (
	"context"
	"fmt"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

// ProgressFunc is invoked after each batch during bulk vectorization.
// done is the number of chunks embedded so far, total the overall count.
type ProgressFunc func(done, total int)

const defaultBatchSize = 32

// VectorizeChunks fills in the Vector field of each chunk using the
// given embedder, reporting progress per batch. Chunks are modified in
// place. A nil onProgress is allowed.
func VectorizeChunks(ctx context.Context, emb Embedder, chunks []types.Chunk, batchSize int, onProgress ProgressFunc) error {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	total := len(chunks)
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		resp, err := emb.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return fmt.Errorf("embedding batch at offset %d: %w", start, err)
		}
		if len(resp.Embeddings) != end-start {
			return fmt.Errorf("embedding batch at offset %d: got %d embeddings for %d texts",
				start, len(resp.Embeddings), end-start)
		}

		for i, e := range resp.Embeddings {
			chunks[start+i].Vector = e.Vector
		}

		if onProgress != nil {
			onProgress(end, total)
		}
	}
	return nil
}
