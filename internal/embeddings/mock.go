package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
)

// MockProvider generates deterministic pseudo-random embeddings without any
// external service. The same text always maps to the same vector, which makes
// it suitable for tests and for running the engine offline.
type MockProvider struct {
	dimension int
}

// NewMockProvider creates a mock provider emitting vectors of the given
// dimension. A non-positive dimension falls back to 128.
func NewMockProvider(dimension int) *MockProvider {
	if dimension <= 0 {
		dimension = 128
	}
	return &MockProvider{dimension: dimension}
}

// EmbedQuery returns a deterministic unit vector derived from the text.
func (p *MockProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.embed(text), nil
}

// EmbedDocuments embeds a batch of texts.
func (p *MockProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimension returns the configured vector dimension.
func (p *MockProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op for the mock provider.
func (p *MockProvider) Close() error {
	return nil
}

func (p *MockProvider) embed(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, p.dimension)
	var norm float64
	for i := range vec {
		v := rng.Float64()*2 - 1
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
