package utils

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedder(t *testing.T) {
	h := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := h.GetEmbedding(ctx, "Old Town Museum")
	require.NoError(t, err)
	b, err := h.GetEmbedding(ctx, "old town, museum!")
	require.NoError(t, err)

	assert.Len(t, a.Slice(), 64)
	assert.Equal(t, a.Slice(), b.Slice())
	assert.InDelta(t, 1.0, CosineSimilarity(a.Slice(), b.Slice()), 1e-6)

	var norm float64
	for _, v := range a.Slice() {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestHashEmbedder_ShortWordsIgnored(t *testing.T) {
	v, err := NewHashEmbedder(8).GetEmbedding(context.Background(), "a an to")
	require.NoError(t, err)

	for _, x := range v.Slice() {
		assert.Zero(t, x)
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}
