package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

// MockEmbedder produces deterministic unit-length vectors derived from
// the text content. Useful for tests and offline runs.
type MockEmbedder struct {
	dimension int
}

var _ port.Embedder = (*MockEmbedder)(nil)

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrInvalidArgument)
	}

	vec := make([]float32, e.dimension)
	for j := range vec {
		var acc float32
		for i, r := range text {
			acc += float32(int(r) * (i + 1) * (j + 1) % 997)
		}
		vec[j] = acc
	}
	l2normalize(vec)
	return vec, nil
}

func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w at index %d", err, i)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}

// l2normalize scales v to unit length in place.
func l2normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}
