// Package embeddings provides text-to-vector encoding with multi-provider
// support. Providers return unit vectors; the registry adds fallback, circuit
// breaking and dimension normalization, and an explicit bounded cache avoids
// re-encoding repeated texts (filter topics in particular).
package embeddings

import (
	"context"
	"time"
)

// ProviderName identifies an embedding provider.
type ProviderName string

// Provider name constants.
const (
	ProviderOpenAI ProviderName = "openai"
	ProviderMock   ProviderName = "mock"
)

// Priority constants for provider ordering.
const (
	PriorityPrimary = 100 // Primary provider (OpenAI)
	PriorityMock    = 0   // Mock provider for testing
)

// DefaultDimensions is the target embedding width (matches the DB schema).
const DefaultDimensions = 1536

const defaultCircuitThreshold = 5

// API key value that selects the mock provider.
const mockAPIKey = "mock"

// Encoder converts text into a unit vector. Implementations must be
// deterministic for identical (text, model) input.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingResult contains the embedding vector and metadata.
type EmbeddingResult struct {
	Vector     []float32
	Dimensions int
	Provider   ProviderName
}

// Provider is one embedding backend registered with the Registry.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// GetEmbedding generates an embedding for the given text.
	GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error)

	// IsAvailable returns true if the provider is currently usable.
	IsAvailable() bool

	// Priority returns the provider priority (higher = preferred).
	Priority() int

	// Dimensions returns the native output dimensions of this provider.
	Dimensions() int
}

// CircuitBreakerConfig defines circuit breaker settings.
type CircuitBreakerConfig struct {
	Threshold  int           // Number of failures before opening circuit
	ResetAfter time.Duration // Time before attempting recovery
}

// DefaultCircuitBreakerConfig returns sensible defaults for circuit breaker.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold:  defaultCircuitThreshold,
		ResetAfter: time.Minute,
	}
}
