package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/telegram-filter-bot/internal/core/errors"
)

// GetOrCreateUser fetches the user by Telegram id, creating one on first
// sight. The second return value reports whether a new row was created.
func (db *DB) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*domain.User, bool, error) {
	var (
		user    domain.User
		created bool
	)

	var (
		uname, fname, lname pgtype.Text
		targetChatID        pgtype.Int8
	)

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username
		RETURNING id, telegram_id, username, first_name, last_name, is_active, is_admin, target_chat_id, created_at, (xmax = 0)
	`, telegramID, toText(username), toText(firstName), toText(lastName)).Scan(
		&user.ID, &user.TelegramID, &uname, &fname, &lname,
		&user.IsActive, &user.IsAdmin, &targetChatID, &user.CreatedAt, &created)
	if err != nil {
		return nil, false, fmt.Errorf("get or create user: %w", classifyPgError(err))
	}

	user.Username = fromText(uname)
	user.FirstName = fromText(fname)
	user.LastName = fromText(lname)
	user.TargetChatID = fromInt8Ptr(targetChatID)

	return &user, created, nil
}

// GetUserByID returns one user by primary key.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	var (
		user                domain.User
		uname, fname, lname pgtype.Text
		targetChatID        pgtype.Int8
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT id, telegram_id, username, first_name, last_name, is_active, is_admin, target_chat_id, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.TelegramID, &uname, &fname, &lname,
		&user.IsActive, &user.IsAdmin, &targetChatID, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", classifyPgError(err))
	}

	user.Username = fromText(uname)
	user.FirstName = fromText(fname)
	user.LastName = fromText(lname)
	user.TargetChatID = fromInt8Ptr(targetChatID)

	return &user, nil
}

// SetUserTargetChat sets or clears the chat that matched messages are
// forwarded to.
func (db *DB) SetUserTargetChat(ctx context.Context, userID int64, targetChatID *int64) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE users SET target_chat_id = $2 WHERE id = $1
	`, userID, toInt8Ptr(targetChatID))
	if err != nil {
		return fmt.Errorf("set user target chat: %w", classifyPgError(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set user target chat: %w", coreerrors.ErrUserNotFound)
	}

	return nil
}

// SetUserActive flips the user's active flag.
func (db *DB) SetUserActive(ctx context.Context, userID int64, active bool) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE users SET is_active = $2 WHERE id = $1
	`, userID, active)
	if err != nil {
		return fmt.Errorf("set user active: %w", classifyPgError(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set user active: %w", coreerrors.ErrUserNotFound)
	}

	return nil
}
