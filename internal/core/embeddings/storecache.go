package embeddings

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/telegram-filter-bot/internal/core/errors"
)

// TopicStore persists embeddings keyed by (model, topic). Implemented by the
// pgvector-backed storage layer.
type TopicStore interface {
	GetTopicEmbedding(ctx context.Context, model, topic string) ([]float32, error)
	SaveTopicEmbedding(ctx context.Context, model, topic string, embedding []float32) error
}

// StoreCache is a persistent second-level cache in front of an encoder. It is
// meant for filter topics, which are few and long-lived; message texts should
// never go through it.
type StoreCache struct {
	inner  Encoder
	store  TopicStore
	model  string
	logger *zerolog.Logger
}

func NewStoreCache(inner Encoder, store TopicStore, model string, logger *zerolog.Logger) *StoreCache {
	return &StoreCache{inner: inner, store: store, model: model, logger: logger}
}

// Encode returns the stored vector when present, otherwise encodes and saves
// it best effort. Store failures never fail the encode.
func (s *StoreCache) Encode(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.store.GetTopicEmbedding(ctx, s.model, text)
	if err == nil && len(vec) > 0 {
		return vec, nil
	}

	if err != nil && !errors.Is(err, coreerrors.ErrNotFound) && s.logger != nil {
		s.logger.Debug().Err(err).Msg("topic embedding lookup failed, encoding fresh")
	}

	vec, err = s.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveTopicEmbedding(ctx, s.model, text, vec); err != nil && s.logger != nil {
		s.logger.Debug().Err(err).Msg("topic embedding save failed")
	}

	return vec, nil
}
