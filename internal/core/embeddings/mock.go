package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// LCG constants for deterministic pseudo-random generation.
const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407
	seedShift     = 33
	floatScale    = 0x40000000
)

// MockProvider generates deterministic unit vectors from a hash of each
// lowercase word, summed. Texts that share words point in similar directions,
// which keeps semantic search meaningful in development and tests.
type MockProvider struct {
	dimensions int
}

// NewMockProvider creates a mock provider with the given dimensions.
func NewMockProvider(dims int) *MockProvider {
	if dims <= 0 {
		dims = DefaultDimensions
	}

	return &MockProvider{dimensions: dims}
}

// Name returns the provider identifier.
func (p *MockProvider) Name() ProviderName {
	return ProviderMock
}

// Dimensions returns the output dimensions.
func (p *MockProvider) Dimensions() int {
	return p.dimensions
}

// IsAvailable returns true (mock is always available).
func (p *MockProvider) IsAvailable() bool {
	return true
}

// Embed returns the normalized sum of per-word pseudo-random vectors.
func (p *MockProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dimensions)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if word == "" {
			continue
		}

		h := fnv.New64a()
		_, _ = h.Write([]byte(word)) // fnv.Write never returns an error
		seed := h.Sum64()

		for i := range vec {
			seed = seed*lcgMultiplier + lcgIncrement
			//nolint:gosec // intentional uint64->int64 conversion for pseudo-random generation
			vec[i] += float32(int64(seed>>seedShift)-floatScale) / float32(floatScale)
		}
	}

	return normalizeVector(vec), nil
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	if sum == 0 {
		return vec
	}

	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}

	return vec
}
