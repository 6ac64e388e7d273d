package embedder

import (
	"fmt"
	"os"
)

// Provider name constants
const (
	ProviderLocal = "local"
)

// New creates an embedder for the named provider.
func New(provider string) (Embedder, error) {
	return NewWithCache(provider, 0)
}

// NewWithCache creates an embedder with an explicit embedding cache
// capacity.
func NewWithCache(provider string, cacheSize int) (Embedder, error) {
	switch provider {
	case ProviderLocal, "":
		return NewLocalProviderWithCache(cacheSize), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}

// NewFromEnv creates an embedder based on the
// CHARAENGINE_EMBEDDING_PROVIDER environment variable, falling back to
// the local provider when unset.
func NewFromEnv() (Embedder, error) {
	return New(os.Getenv("CHARAENGINE_EMBEDDING_PROVIDER"))
}
