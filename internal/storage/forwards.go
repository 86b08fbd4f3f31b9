package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
)

// CreateForward records a pending delivery for a (user, filter, message)
// match. The triple is unique; re-inserting returns the existing record
// untouched so a message is never queued for delivery twice.
func (db *DB) CreateForward(ctx context.Context, userID, filterID, messageID, targetChatID int64) (*domain.ForwardedMessage, error) {
	fwd := domain.ForwardedMessage{
		UserID:       userID,
		FilterID:     filterID,
		MessageID:    messageID,
		TargetChatID: targetChatID,
	}

	var status string

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO forwarded_messages (user_id, filter_id, message_id, target_chat_id, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, filter_id, message_id) DO UPDATE
		SET user_id = EXCLUDED.user_id
		RETURNING id, target_chat_id, status, created_at
	`, userID, filterID, messageID, targetChatID, string(domain.ForwardPending)).Scan(
		&fwd.ID, &fwd.TargetChatID, &status, &fwd.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create forward: %w", classifyPgError(err))
	}

	fwd.Status = domain.ForwardStatus(status)

	return &fwd, nil
}

// GetPendingForwards returns up to limit pending forwards, oldest first.
func (db *DB) GetPendingForwards(ctx context.Context, limit int) ([]domain.ForwardedMessage, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, user_id, filter_id, message_id, target_chat_id, forwarded_message_id,
		       status, error, created_at, forwarded_at
		FROM forwarded_messages
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`, string(domain.ForwardPending), limit)
	if err != nil {
		return nil, fmt.Errorf("get pending forwards: %w", classifyPgError(err))
	}
	defer rows.Close()

	var forwards []domain.ForwardedMessage

	for rows.Next() {
		fwd, err := scanForward(rows)
		if err != nil {
			return nil, err
		}

		forwards = append(forwards, *fwd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending forwards: %w", classifyPgError(err))
	}

	return forwards, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForward(row rowScanner) (*domain.ForwardedMessage, error) {
	var (
		fwd         domain.ForwardedMessage
		deliveredID pgtype.Int8
		errText     pgtype.Text
		forwardedAt pgtype.Timestamptz
		status      string
	)

	err := row.Scan(&fwd.ID, &fwd.UserID, &fwd.FilterID, &fwd.MessageID, &fwd.TargetChatID,
		&deliveredID, &status, &errText, &fwd.CreatedAt, &forwardedAt)
	if err != nil {
		return nil, fmt.Errorf("scan forward: %w", classifyPgError(err))
	}

	fwd.ForwardedMessageID = fromInt8Ptr(deliveredID)
	fwd.Status = domain.ForwardStatus(status)
	fwd.Error = fromText(errText)
	fwd.ForwardedAt = fromTimestamptzPtr(forwardedAt)

	return &fwd, nil
}

// MarkForwardSent transitions a forward to sent, recording the delivered
// message's platform id.
func (db *DB) MarkForwardSent(ctx context.Context, forwardID, deliveredMessageID int64) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE forwarded_messages
		SET status = $2, forwarded_message_id = $3, error = NULL, forwarded_at = NOW()
		WHERE id = $1
	`, forwardID, string(domain.ForwardSent), deliveredMessageID); err != nil {
		return fmt.Errorf("mark forward sent: %w", classifyPgError(err))
	}

	return nil
}

// MarkForwardFailed transitions a forward to failed with the error text.
// Failed records are terminal and never retried.
func (db *DB) MarkForwardFailed(ctx context.Context, forwardID int64, errText string) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE forwarded_messages
		SET status = $2, error = $3
		WHERE id = $1
	`, forwardID, string(domain.ForwardFailed), toText(errText)); err != nil {
		return fmt.Errorf("mark forward failed: %w", classifyPgError(err))
	}

	return nil
}

// CountPendingForwards returns the current pending backlog size.
func (db *DB) CountPendingForwards(ctx context.Context) (int, error) {
	var count int

	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM forwarded_messages WHERE status = $1
	`, string(domain.ForwardPending)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending forwards: %w", classifyPgError(err))
	}

	return count, nil
}
