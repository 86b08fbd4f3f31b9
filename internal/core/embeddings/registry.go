package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-filter-bot/internal/platform/observability"
)

var (
	// ErrNoProvidersAvailable indicates no embedding providers are registered.
	ErrNoProvidersAvailable = errors.New("no embedding providers available")
	// ErrAllProvidersFailed indicates every registered provider failed.
	ErrAllProvidersFailed = errors.New("all embedding providers failed")
)

// Registry manages embedding providers with priority ordering, circuit
// breaking and fallback. It implements Encoder: encoded vectors are padded
// to the registry's target dimensionality and unit normalized, so scores
// stay comparable across providers.
type Registry struct {
	providers  []Provider
	breakers   map[ProviderName]*CircuitBreaker
	targetDims int
	mu         sync.RWMutex
	logger     *zerolog.Logger
}

// NewRegistry creates a registry that normalizes vectors to targetDims.
func NewRegistry(targetDims int, logger *zerolog.Logger) *Registry {
	if targetDims <= 0 {
		targetDims = DefaultDimensions
	}

	return &Registry{
		breakers:   make(map[ProviderName]*CircuitBreaker),
		targetDims: targetDims,
		logger:     logger,
	}
}

// Register adds a provider, keeping the list sorted by descending priority.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers = append(r.providers, p)
	sort.SliceStable(r.providers, func(i, j int) bool {
		return r.providers[i].Priority() > r.providers[j].Priority()
	})

	r.breakers[p.Name()] = NewCircuitBreaker(DefaultCircuitBreakerConfig(), r.logger)
}

// TargetDimensions returns the dimensionality of vectors returned by Encode.
func (r *Registry) TargetDimensions() int {
	return r.targetDims
}

// Encode returns an embedding for text, trying providers in priority order
// and skipping those whose circuit breaker is open.
func (r *Registry) Encode(ctx context.Context, text string) ([]float32, error) {
	res, err := r.GetEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	return res.Vector, nil
}

// GetEmbedding returns an embedding together with provider metadata.
func (r *Registry) GetEmbedding(ctx context.Context, text string) (*EmbeddingResult, error) {
	r.mu.RLock()
	providers := make([]Provider, len(r.providers))
	copy(providers, r.providers)
	r.mu.RUnlock()

	if len(providers) == 0 {
		return nil, ErrNoProvidersAvailable
	}

	var lastErr error

	for _, p := range providers {
		breaker := r.breaker(p.Name())
		if breaker != nil && !breaker.CanAttempt() {
			if r.logger != nil {
				r.logger.Debug().
					Str("provider", string(p.Name())).
					Msg("skipping provider with open circuit")
			}

			continue
		}

		if !p.IsAvailable() {
			continue
		}

		start := time.Now()

		res, err := p.GetEmbedding(ctx, text)

		observability.EmbeddingRequestDuration.WithLabelValues(string(p.Name())).Observe(time.Since(start).Seconds())

		if err != nil {
			observability.EmbeddingRequests.WithLabelValues(string(p.Name()), "error").Inc()

			lastErr = err

			if breaker != nil {
				breaker.RecordFailure(p.Name())
			}

			if r.logger != nil {
				r.logger.Warn().
					Err(err).
					Str("provider", string(p.Name())).
					Msg("embedding provider failed, trying fallback")
			}

			continue
		}

		observability.EmbeddingRequests.WithLabelValues(string(p.Name()), "ok").Inc()

		if breaker != nil {
			breaker.RecordSuccess()
		}

		res.Vector = PadToTargetDimensions(res.Vector, r.targetDims)
		NormalizeVector(res.Vector)
		res.Dimensions = r.targetDims

		return &res, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, lastErr)
	}

	return nil, ErrAllProvidersFailed
}

func (r *Registry) breaker(name ProviderName) *CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.breakers[name]
}
