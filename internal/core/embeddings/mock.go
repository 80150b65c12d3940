package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	coreerrors "github.com/lueurxax/news-radar/internal/core/errors"
)

// Mock produces deterministic pseudo-embeddings from a text hash.
// Identical texts map to identical vectors, so exact-duplicate
// clustering still works without a provider.
type Mock struct {
	dims int

	// EmbedFunc overrides the default behavior when set.
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)
}

func NewMock(dims int) *Mock {
	if dims <= 0 {
		dims = 1536
	}

	return &Mock{dims: dims}
}

func (m *Mock) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}

	if text == "" {
		return nil, coreerrors.ErrInvalidInput
	}

	vec := make([]float32, m.dims)
	seed := sha256.Sum256([]byte(text))

	state := binary.BigEndian.Uint64(seed[:8])
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(state>>33))/float32(1<<31) - 0.5
	}

	return vec, nil
}
