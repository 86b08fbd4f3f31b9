package embeddings

import (
	"github.com/rs/zerolog"
)

// Config configures embedding providers.
type Config struct {
	OpenAIAPIKey string
	OpenAIModel  string
	Dimensions   int
	CacheSize    int
}

// NewRegistryFromConfig builds a provider registry from configuration. When an
// OpenAI API key is configured it is registered as the primary provider; the
// deterministic mock provider is always registered as the lowest-priority
// fallback so encoding keeps working offline and in tests. The literal key
// "mock" skips the OpenAI provider entirely.
func NewRegistryFromConfig(cfg Config, logger *zerolog.Logger) *Registry {
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}

	registry := NewRegistry(dims, logger)

	if cfg.OpenAIAPIKey != "" && cfg.OpenAIAPIKey != mockAPIKey {
		registry.Register(NewOpenAIProvider(OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			Dimensions: dims,
		}))
	}

	registry.Register(NewMockProviderWithDimensions(dims))

	return registry
}

// NewEncoder builds the encoder used by semantic matching: the provider
// registry wrapped with a bounded cache.
func NewEncoder(cfg Config, logger *zerolog.Logger) Encoder {
	registry := NewRegistryFromConfig(cfg, logger)

	return NewCachingEncoder(registry, NewCache(cfg.CacheSize))
}
