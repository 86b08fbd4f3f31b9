package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
)

// GetOrCreateMatch upserts a filter match keyed by (message_id, filter_id).
// Re-processing the same message never duplicates matches; an existing row
// wins and created is false.
func (db *DB) GetOrCreateMatch(ctx context.Context, result domain.FilterMatchResult) (int64, bool, error) {
	details, err := json.Marshal(result.Details())
	if err != nil {
		return 0, false, fmt.Errorf("marshal match details: %w", err)
	}

	var (
		id      int64
		created bool
	)

	err = db.Pool.QueryRow(ctx, `
		INSERT INTO filter_matches (message_id, filter_id, match_type, score, details)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (message_id, filter_id) DO UPDATE
		SET message_id = EXCLUDED.message_id
		RETURNING id, (xmax = 0)
	`, result.MessageID, result.FilterID, string(result.MatchType), result.Score, details).Scan(&id, &created)
	if err != nil {
		return 0, false, fmt.Errorf("get or create match: %w", classifyPgError(err))
	}

	return id, created, nil
}

// CountMatchesForUser returns the number of persisted matches across all of
// one user's filters. Feeds the bot's status overview.
func (db *DB) CountMatchesForUser(ctx context.Context, userID int64) (int, error) {
	var count int

	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM filter_matches fm
		JOIN filters f ON f.id = fm.filter_id
		WHERE f.user_id = $1
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count matches for user: %w", classifyPgError(err))
	}

	return count, nil
}
