package embeddings

import (
	"context"
	"hash/fnv"
)

// LCG constants for deterministic pseudo-random vector generation.
const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407

	seedShift  = 33
	floatScale = 0x40000000
)

// MockProvider implements the embedding Provider interface for testing.
// It generates deterministic unit vectors based on the input text hash, so the
// same input always produces the same embedding.
type MockProvider struct {
	dimensions int
}

// NewMockProvider creates a new mock embedding provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{dimensions: DefaultDimensions}
}

// NewMockProviderWithDimensions creates a mock provider with custom dimensions.
func NewMockProviderWithDimensions(dims int) *MockProvider {
	return &MockProvider{dimensions: dims}
}

// Name returns the provider identifier.
func (p *MockProvider) Name() ProviderName {
	return ProviderMock
}

// Priority returns the provider priority.
func (p *MockProvider) Priority() int {
	return PriorityMock
}

// Dimensions returns the output dimensions.
func (p *MockProvider) Dimensions() int {
	return p.dimensions
}

// IsAvailable returns true (mock is always available).
func (p *MockProvider) IsAvailable() bool {
	return true
}

// Encode implements Encoder, returning the deterministic vector directly.
func (p *MockProvider) Encode(ctx context.Context, text string) ([]float32, error) {
	res, err := p.GetEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	return res.Vector, nil
}

// GetEmbedding generates a deterministic mock embedding from the text hash.
func (p *MockProvider) GetEmbedding(_ context.Context, text string) (EmbeddingResult, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text)) // fnv.Write never returns an error
	seed := h.Sum64()

	vec := make([]float32, p.dimensions)
	for i := range vec {
		seed = seed*lcgMultiplier + lcgIncrement
		//nolint:gosec // intentional uint64->int64 conversion for pseudo-random generation
		vec[i] = float32(int64(seed>>seedShift)-floatScale) / float32(floatScale)
	}

	NormalizeVector(vec)

	return EmbeddingResult{
		Vector:     vec,
		Dimensions: p.dimensions,
		Provider:   ProviderMock,
	}, nil
}
