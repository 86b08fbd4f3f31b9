package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
)

// CreateFilter persists a new filter rule. The config is validated for its
// mode and normalized (trim, dedupe) before writing.
func (db *DB) CreateFilter(ctx context.Context, userID int64, name string, cfg domain.FilterConfig) (*domain.FilterRule, error) {
	cfg.Normalize()

	if err := cfg.ValidateForMode(); err != nil {
		return nil, fmt.Errorf("create filter: %w", err)
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal filter config: %w", err)
	}

	rule := domain.FilterRule{UserID: userID, Name: name, Config: cfg}

	err = db.Pool.QueryRow(ctx, `
		INSERT INTO filters (user_id, name, config)
		VALUES ($1, $2, $3)
		RETURNING id, is_active, created_at, updated_at
	`, userID, name, cfgJSON).Scan(&rule.ID, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create filter: %w", classifyPgError(err))
	}

	return &rule, nil
}

// UpdateFilterConfig replaces a filter's configuration.
func (db *DB) UpdateFilterConfig(ctx context.Context, filterID int64, cfg domain.FilterConfig) error {
	cfg.Normalize()

	if err := cfg.ValidateForMode(); err != nil {
		return fmt.Errorf("update filter config: %w", err)
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal filter config: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, `
		UPDATE filters SET config = $2, updated_at = NOW() WHERE id = $1
	`, filterID, cfgJSON); err != nil {
		return fmt.Errorf("update filter config: %w", classifyPgError(err))
	}

	return nil
}

// GetUserFilters returns a user's active filter rules, oldest first.
func (db *DB) GetUserFilters(ctx context.Context, userID int64) ([]domain.FilterRule, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, name, is_active, config, created_at, updated_at
		FROM filters
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("get user filters: %w", classifyPgError(err))
	}
	defer rows.Close()

	var rules []domain.FilterRule

	for rows.Next() {
		var (
			rule    domain.FilterRule
			cfgJSON []byte
		)

		if err := rows.Scan(&rule.ID, &rule.UserID, &rule.Name, &rule.IsActive, &cfgJSON, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan filter: %w", err)
		}

		if err := json.Unmarshal(cfgJSON, &rule.Config); err != nil {
			return nil, fmt.Errorf("unmarshal filter config: %w", err)
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate filters: %w", classifyPgError(err))
	}

	return rules, nil
}

// GetFilterByID returns a single filter rule regardless of its active flag.
func (db *DB) GetFilterByID(ctx context.Context, filterID int64) (*domain.FilterRule, error) {
	var (
		rule    domain.FilterRule
		cfgJSON []byte
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT id, user_id, name, is_active, config, created_at, updated_at
		FROM filters
		WHERE id = $1
	`, filterID).Scan(&rule.ID, &rule.UserID, &rule.Name, &rule.IsActive, &cfgJSON, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get filter: %w", classifyPgError(err))
	}

	if err := json.Unmarshal(cfgJSON, &rule.Config); err != nil {
		return nil, fmt.Errorf("unmarshal filter config: %w", err)
	}

	return &rule, nil
}

// SetFilterActive flips a filter's active flag.
func (db *DB) SetFilterActive(ctx context.Context, filterID int64, active bool) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE filters SET is_active = $2, updated_at = NOW() WHERE id = $1
	`, filterID, active); err != nil {
		return fmt.Errorf("set filter active: %w", classifyPgError(err))
	}

	return nil
}

// DeleteFilter removes a filter and, via cascading constraints, its matches
// and forward records.
func (db *DB) DeleteFilter(ctx context.Context, filterID int64) error {
	if _, err := db.Pool.Exec(ctx, `
		DELETE FROM filters WHERE id = $1
	`, filterID); err != nil {
		return fmt.Errorf("delete filter: %w", classifyPgError(err))
	}

	return nil
}
