package embeddings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_Deterministic(t *testing.T) {
	p := NewMockProvider(128)

	a, err := p.EmbedQuery(context.Background(), "algebra basics")
	require.NoError(t, err)
	b, err := p.EmbedQuery(context.Background(), "algebra basics")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := p.EmbedQuery(context.Background(), "photosynthesis")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestMockProvider_Normalized(t *testing.T) {
	p := NewMockProvider(64)

	vec, err := p.EmbedQuery(context.Background(), "some text")
	require.NoError(t, err)
	require.Len(t, vec, 64)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestMockProvider_DimensionFallback(t *testing.T) {
	assert.Equal(t, 128, NewMockProvider(0).Dimension())
	assert.Equal(t, 128, NewMockProvider(-5).Dimension())
	assert.Equal(t, 384, NewMockProvider(384).Dimension())
}

func TestMockProvider_EmbedDocuments(t *testing.T) {
	p := NewMockProvider(32)

	out, err := p.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, out, 3)

	single, err := p.EmbedQuery(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, single, out[1])

	_, err = p.EmbedDocuments(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyInput)

	_, err = p.EmbedDocuments(context.Background(), []string{"a", ""})
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Provider: "mock", Dimension: 64})
	require.NoError(t, err)
	assert.IsType(t, &MockProvider{}, p)

	p, err = NewProvider(ProviderConfig{Provider: "", Dimension: 64})
	require.NoError(t, err)
	assert.IsType(t, &MockProvider{}, p)

	p, err = NewProvider(ProviderConfig{Provider: "tei", BaseURL: "http://localhost:8080", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &Service{}, p)

	_, err = NewProvider(ProviderConfig{Provider: "weaviate"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}
