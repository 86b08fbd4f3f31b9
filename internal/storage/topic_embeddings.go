package db

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// SaveTopicEmbedding stores or refreshes a topic embedding for one model.
// Used as a persistent second-level cache for filter topics.
func (db *DB) SaveTopicEmbedding(ctx context.Context, model, topic string, embedding []float32) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO topic_embeddings (model, topic, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (model, topic) DO UPDATE
		SET embedding = EXCLUDED.embedding, updated_at = NOW()
	`, model, topic, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("save topic embedding: %w", classifyPgError(err))
	}

	return nil
}

// GetTopicEmbedding fetches a cached topic embedding for one model.
func (db *DB) GetTopicEmbedding(ctx context.Context, model, topic string) ([]float32, error) {
	var embedding pgvector.Vector

	err := db.Pool.QueryRow(ctx, `
		SELECT embedding FROM topic_embeddings WHERE model = $1 AND topic = $2
	`, model, topic).Scan(&embedding)
	if err != nil {
		return nil, fmt.Errorf("get topic embedding: %w", classifyPgError(err))
	}

	return embedding.Slice(), nil
}

