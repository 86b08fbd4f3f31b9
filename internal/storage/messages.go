package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
)

// GetOrCreateMessage inserts the message keyed by (telegram_message_id,
// chat_id), or fetches the existing row. This is the dispatcher's dedup
// point: a unique-violation race resolves to the winner's row.
func (db *DB) GetOrCreateMessage(ctx context.Context, msg *domain.IncomingMessage, sourceID int64) (*domain.Message, bool, error) {
	metadata, err := toJSONB(msg.Metadata)
	if err != nil {
		return nil, false, fmt.Errorf("get or create message: %w", err)
	}

	var (
		out          domain.Message
		created      bool
		metadataJSON []byte
	)

	err = db.Pool.QueryRow(ctx, `
		INSERT INTO messages (telegram_message_id, chat_id, source_id, text, date, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (telegram_message_id, chat_id) DO UPDATE
		SET telegram_message_id = EXCLUDED.telegram_message_id
		RETURNING id, telegram_message_id, chat_id, source_id, text, date, metadata, is_processed, (xmax = 0)
	`, msg.TelegramMessageID, msg.ChatID, sourceID, SanitizeUTF8(msg.Text), toTimestamptz(msg.Date), metadata).Scan(
		&out.ID, &out.TelegramMessageID, &out.ChatID, &out.SourceID,
		&out.Text, &out.Date, &metadataJSON, &out.IsProcessed, &created)
	if err != nil {
		return nil, false, fmt.Errorf("get or create message: %w", classifyPgError(err))
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &out.Metadata); err != nil {
			return nil, false, fmt.Errorf("unmarshal message metadata: %w", err)
		}
	}

	return &out, created, nil
}

// GetMessageByID returns one message by primary key.
func (db *DB) GetMessageByID(ctx context.Context, id int64) (*domain.Message, error) {
	var (
		out          domain.Message
		metadataJSON []byte
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT id, telegram_message_id, chat_id, source_id, text, date, metadata, is_processed
		FROM messages
		WHERE id = $1
	`, id).Scan(&out.ID, &out.TelegramMessageID, &out.ChatID, &out.SourceID,
		&out.Text, &out.Date, &metadataJSON, &out.IsProcessed)
	if err != nil {
		return nil, fmt.Errorf("get message by id: %w", classifyPgError(err))
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &out.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal message metadata: %w", err)
		}
	}

	return &out, nil
}

// MarkMessageProcessed marks a message as processed regardless of whether any
// filter matched it.
func (db *DB) MarkMessageProcessed(ctx context.Context, messageID int64) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE messages SET is_processed = TRUE WHERE id = $1
	`, messageID); err != nil {
		return fmt.Errorf("mark message processed: %w", classifyPgError(err))
	}

	return nil
}
