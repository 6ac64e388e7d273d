package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

const localDimension = 384

// LocalProvider generates deterministic embeddings without any external
// service. The vectors are derived from a hash of the text, so the same
// text always maps to the same vector. Useful for tests and for
// installs that have no embedding model configured.
type LocalProvider struct {
	cache     *Cache
	dimension int
}

// NewLocalProvider creates a local deterministic embedding provider.
func NewLocalProvider() *LocalProvider {
	return NewLocalProviderWithCache(0)
}

// NewLocalProviderWithCache creates a local provider with an explicit
// embedding cache capacity. A non-positive size falls back to the
// default capacity.
func NewLocalProviderWithCache(cacheSize int) *LocalProvider {
	return &LocalProvider{
		cache:     NewCache(cacheSize),
		dimension: localDimension,
	}
}

// GenerateEmbedding generates a deterministic embedding for the text.
func (p *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if cached, ok := p.cache.Get(hash); ok {
		return cached, nil
	}

	emb := &Embedding{
		Vector:    p.deriveVector(req.Text),
		Dimension: p.dimension,
		Provider:  p.Provider(),
		Model:     p.Model(),
		Hash:      hash,
	}
	p.cache.Set(hash, emb)
	return emb, nil
}

// GenerateBatch generates embeddings for multiple texts.
func (p *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, 0, len(req.Texts))
	for _, text := range req.Texts {
		emb, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, emb)
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   p.Provider(),
		Model:      p.Model(),
	}, nil
}

// Dimension returns the embedding dimension.
func (p *LocalProvider) Dimension() int { return p.dimension }

// Provider returns the provider name.
func (p *LocalProvider) Provider() string { return "local" }

// Model returns the model name.
func (p *LocalProvider) Model() string { return "deterministic-hash" }

// Close releases resources.
func (p *LocalProvider) Close() error {
	p.cache.Clear()
	return nil
}

// deriveVector expands a hash chain over the text into an L2-normalized
// float32 vector.
func (p *LocalProvider) deriveVector(text string) []float32 {
	vector := make([]float32, p.dimension)

	seed := sha256.Sum256([]byte(text))
	block := seed[:]
	idx := 0
	for idx < p.dimension {
		for off := 0; off+4 <= len(block) && idx < p.dimension; off += 4 {
			bits := binary.LittleEndian.Uint32(block[off : off+4])
			// Map to [-1, 1).
			vector[idx] = float32(int32(bits)) / float32(math.MaxInt32)
			idx++
		}
		next := sha256.Sum256(block)
		block = next[:]
	}

	var sumSq float64
	for _, v := range vector {
		sumSq += float64(v) * float64(v)
	}
	if sumSq > 0 {
		norm := float32(math.Sqrt(sumSq))
		for i := range vector {
			vector[i] /= norm
		}
	}
	return vector
}
