package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjurahelianthus/CharaEngineForST-sub000/pkg/types"
)

func TestLocalProviderDeterministic(t *testing.T) {
	p := NewLocalProvider()
	defer p.Close()

	ctx := context.Background()
	a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello world"})
	require.NoError(t, err)
	b, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello world"})
	require.NoError(t, err)

	assert.Equal(t, a.Vector, b.Vector)
	assert.Equal(t, localDimension, a.Dimension)
	assert.Len(t, a.Vector, localDimension)
}

func TestLocalProviderDistinctTexts(t *testing.T) {
	p := NewLocalProvider()
	defer p.Close()

	ctx := context.Background()
	a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "cats"})
	require.NoError(t, err)
	b, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "dogs"})
	require.NoError(t, err)

	assert.NotEqual(t, a.Vector, b.Vector)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestLocalProviderNormalized(t *testing.T) {
	p := NewLocalProvider()
	defer p.Close()

	emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "normalize me"})
	require.NoError(t, err)

	var sumSq float64
	for _, v := range emb.Vector {
		sumSq += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-5)
}

func TestLocalProviderEmptyText(t *testing.T) {
	p := NewLocalProvider()
	defer p.Close()

	_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: ""})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestGenerateBatch(t *testing.T) {
	p := NewLocalProvider()
	defer p.Close()

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"first", "second", "third"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)
	assert.Equal(t, "local", resp.Provider)

	single, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "second"})
	require.NoError(t, err)
	assert.Equal(t, single.Vector, resp.Embeddings[1].Vector)
}

func TestGenerateBatchRejectsEmptyEntry(t *testing.T) {
	p := NewLocalProvider()
	defer p.Close()

	_, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{
		Texts: []string{"ok", ""},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = p.GenerateBatch(context.Background(), BatchEmbeddingRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCacheDeepCopy(t *testing.T) {
	c := NewCache(10)
	emb := &Embedding{
		Vector:    []float32{0.1, 0.2, 0.3},
		Dimension: 3,
		Hash:      "h1",
	}
	c.Set("h1", emb)

	got, ok := c.Get("h1")
	require.True(t, ok)
	got.Vector[0] = 99

	again, ok := c.Get("h1")
	require.True(t, ok)
	assert.Equal(t, float32(0.1), again.Vector[0])
}

func TestCacheEviction(t *testing.T) {
	c := NewCache(2)
	c.Set("a", &Embedding{Hash: "a"})
	c.Set("b", &Embedding{Hash: "b"})
	c.Set("c", &Embedding{Hash: "c"})

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestComputeHashStable(t *testing.T) {
	assert.Equal(t, ComputeHash("abc"), ComputeHash("abc"))
	assert.NotEqual(t, ComputeHash("abc"), ComputeHash("abd"))
	assert.Len(t, ComputeHash("abc"), 64)
}

func TestFactory(t *testing.T) {
	emb, err := New(ProviderLocal)
	require.NoError(t, err)
	assert.Equal(t, "local", emb.Provider())
	require.NoError(t, emb.Close())

	emb, err = New("")
	require.NoError(t, err)
	require.NoError(t, emb.Close())

	_, err = New("bogus")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("CHARAENGINE_EMBEDDING_PROVIDER", "local")
	emb, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "local", emb.Provider())
	require.NoError(t, emb.Close())
}

func TestVectorizeChunks(t *testing.T) {
	p := NewLocalProvider()
	defer p.Close()

	chunks := make([]types.Chunk, 5)
	for i := range chunks {
		chunks[i] = types.Chunk{
			ID:    string(rune('a' + i)),
			DocID: "doc1",
			Text:  "chunk text " + string(rune('a'+i)),
		}
	}

	var calls []int
	err := VectorizeChunks(context.Background(), p, chunks, 2, func(done, total int) {
		assert.Equal(t, 5, total)
		calls = append(calls, done)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 4, 5}, calls)
	for _, c := range chunks {
		assert.True(t, c.HasVector())
		assert.Len(t, c.Vector, localDimension)
	}
}

func TestVectorizeChunksEmpty(t *testing.T) {
	p := NewLocalProvider()
	defer p.Close()

	err := VectorizeChunks(context.Background(), p, nil, 0, nil)
	assert.NoError(t, err)
}
