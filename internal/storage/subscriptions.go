package db

import (
	"context"
	"fmt"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
)

// CreateSubscription subscribes a user to a source. Duplicate pairs reactivate
// the existing subscription instead of erroring.
func (db *DB) CreateSubscription(ctx context.Context, userID, sourceID int64, priority int) (*domain.Subscription, error) {
	var sub domain.Subscription

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, source_id, priority)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, source_id) DO UPDATE
		SET is_active = TRUE, priority = EXCLUDED.priority
		RETURNING id, user_id, source_id, is_active, priority
	`, userID, sourceID, priority).Scan(&sub.ID, &sub.UserID, &sub.SourceID, &sub.IsActive, &sub.Priority)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", classifyPgError(err))
	}

	return &sub, nil
}

// GetSourceSubscribers returns active subscriptions of active users for one
// source, highest priority first. This drives the dispatcher fan-out.
func (db *DB) GetSourceSubscribers(ctx context.Context, sourceID int64) ([]domain.Subscription, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT s.id, s.user_id, s.source_id, s.is_active, s.priority
		FROM subscriptions s
		JOIN users u ON u.id = s.user_id
		WHERE s.source_id = $1 AND s.is_active = TRUE AND u.is_active = TRUE
		ORDER BY s.priority DESC, s.id
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("get source subscribers: %w", classifyPgError(err))
	}
	defer rows.Close()

	var subs []domain.Subscription

	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.SourceID, &sub.IsActive, &sub.Priority); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}

		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", classifyPgError(err))
	}

	return subs, nil
}

// DeactivateSubscription turns a (user, source) subscription off.
func (db *DB) DeactivateSubscription(ctx context.Context, userID, sourceID int64) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE subscriptions SET is_active = FALSE
		WHERE user_id = $1 AND source_id = $2
	`, userID, sourceID); err != nil {
		return fmt.Errorf("deactivate subscription: %w", classifyPgError(err))
	}

	return nil
}
