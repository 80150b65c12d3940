package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{0.5, -0.2, 0.8}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 2}, []float32{-1, -2}), 1e-6)
	})

	t.Run("length mismatch", func(t *testing.T) {
		assert.Equal(t, float32(0), CosineSimilarity([]float32{1, 2}, []float32{1}))
	})

	t.Run("empty and zero vectors", func(t *testing.T) {
		assert.Equal(t, float32(0), CosineSimilarity(nil, nil))
		assert.Equal(t, float32(0), CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	})
}

func TestMockDeterministic(t *testing.T) {
	m := NewMock(64)
	ctx := context.Background()

	a, err := m.Embed(ctx, "same text")
	require.NoError(t, err)
	require.Len(t, a, 64)

	b, err := m.Embed(ctx, "same text")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := m.Embed(ctx, "different text")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = m.Embed(ctx, "")
	require.Error(t, err)
}
