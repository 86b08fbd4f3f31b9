package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
)

// GetOrCreateSource fetches the source by its Telegram chat id, creating an
// inactive record on first sight. Title, username and type hints are applied
// only on creation; an existing row is returned untouched.
func (db *DB) GetOrCreateSource(ctx context.Context, chatID int64, title, username string, sourceType domain.SourceType) (*domain.Source, bool, error) {
	var (
		src          domain.Source
		created      bool
		titleText    pgtype.Text
		usernameText pgtype.Text
		typeText     string
	)

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO sources (telegram_chat_id, title, username, type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_chat_id) DO UPDATE
		SET telegram_chat_id = EXCLUDED.telegram_chat_id
		RETURNING id, telegram_chat_id, title, username, type, is_active, created_at, (xmax = 0)
	`, chatID, toText(title), toText(username), string(sourceType)).Scan(
		&src.ID, &src.TelegramChatID, &titleText, &usernameText, &typeText,
		&src.IsActive, &src.CreatedAt, &created)
	if err != nil {
		return nil, false, fmt.Errorf("get or create source: %w", classifyPgError(err))
	}

	src.Title = fromText(titleText)
	src.Username = fromText(usernameText)
	src.Type = domain.ParseSourceType(typeText)

	return &src, created, nil
}

// GetSourceByChatID returns a source by its Telegram chat id.
func (db *DB) GetSourceByChatID(ctx context.Context, chatID int64) (*domain.Source, error) {
	var (
		src          domain.Source
		titleText    pgtype.Text
		usernameText pgtype.Text
		typeText     string
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT id, telegram_chat_id, title, username, type, is_active, created_at
		FROM sources
		WHERE telegram_chat_id = $1
	`, chatID).Scan(&src.ID, &src.TelegramChatID, &titleText, &usernameText, &typeText,
		&src.IsActive, &src.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get source by chat id: %w", classifyPgError(err))
	}

	src.Title = fromText(titleText)
	src.Username = fromText(usernameText)
	src.Type = domain.ParseSourceType(typeText)

	return &src, nil
}

// GetSourceByID returns one source by primary key.
func (db *DB) GetSourceByID(ctx context.Context, id int64) (*domain.Source, error) {
	var (
		src          domain.Source
		titleText    pgtype.Text
		usernameText pgtype.Text
		typeText     string
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT id, telegram_chat_id, title, username, type, is_active, created_at
		FROM sources
		WHERE id = $1
	`, id).Scan(&src.ID, &src.TelegramChatID, &titleText, &usernameText, &typeText,
		&src.IsActive, &src.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get source by id: %w", classifyPgError(err))
	}

	src.Title = fromText(titleText)
	src.Username = fromText(usernameText)
	src.Type = domain.ParseSourceType(typeText)

	return &src, nil
}

// GetActiveSourceChatIDs returns the Telegram chat ids of all active sources.
// Feeds the source activation cache.
func (db *DB) GetActiveSourceChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT telegram_chat_id FROM sources WHERE is_active = TRUE
	`)
	if err != nil {
		return nil, fmt.Errorf("get active source chat ids: %w", classifyPgError(err))
	}
	defer rows.Close()

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan source chat id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source chat ids: %w", classifyPgError(err))
	}

	return ids, nil
}

// SetSourceActive flips a source's active flag.
func (db *DB) SetSourceActive(ctx context.Context, sourceID int64, active bool) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE sources SET is_active = $2 WHERE id = $1
	`, sourceID, active); err != nil {
		return fmt.Errorf("set source active: %w", classifyPgError(err))
	}

	return nil
}
