// Package forward delivers pending forward records to target chats.
//
// The bot usually cannot forward or copy messages from channels it is not a
// member of, so delivery sends the stored message text with a short header
// instead of a platform-native forward.
package forward

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
	"github.com/lueurxax/telegram-filter-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-filter-bot/internal/platform/worker"
	db "github.com/lueurxax/telegram-filter-bot/internal/storage"
)

const (
	// DefaultBatchSize bounds how many pending records one cycle picks up.
	DefaultBatchSize = 10

	// DefaultMaxTextLength bounds the rendered message body, leaving room
	// for the header within the platform's message size limit.
	DefaultMaxTextLength = 3500
)

// Repository is the storage surface the worker needs.
type Repository interface {
	GetPendingForwards(ctx context.Context, limit int) ([]domain.ForwardedMessage, error)
	CountPendingForwards(ctx context.Context) (int, error)
	MarkForwardSent(ctx context.Context, forwardID, deliveredMessageID int64) error
	MarkForwardFailed(ctx context.Context, forwardID int64, errText string) error
	GetMessageByID(ctx context.Context, id int64) (*domain.Message, error)
	GetSourceByID(ctx context.Context, id int64) (*domain.Source, error)
	GetFilterByID(ctx context.Context, filterID int64) (*domain.FilterRule, error)
}

var _ Repository = (*db.DB)(nil)

// Sender delivers one text message and returns the platform message id.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) (int64, error)
}

// Worker polls for pending forward records and delivers them oldest first.
type Worker struct {
	repo          Repository
	sender        Sender
	batchSize     int
	maxTextLength int
	logger        *zerolog.Logger
}

// New creates a delivery worker. Zero batchSize and maxTextLength fall back
// to the defaults.
func New(repo Repository, sender Sender, batchSize, maxTextLength int, logger *zerolog.Logger) *Worker {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	if maxTextLength <= 0 {
		maxTextLength = DefaultMaxTextLength
	}

	return &Worker{
		repo:          repo,
		sender:        sender,
		batchSize:     batchSize,
		maxTextLength: maxTextLength,
		logger:        logger,
	}
}

// Run polls until ctx is cancelled. Cycle errors are logged and the next
// cycle proceeds.
func (w *Worker) Run(ctx context.Context, interval time.Duration) error {
	return worker.Loop(ctx, worker.Config{
		Name:         "forward-delivery",
		PollInterval: interval,
		Process:      w.DeliverPending,
		Logger:       w.logger,
	})
}

// DeliverPending runs one delivery cycle. A failure to deliver or persist one
// record never aborts the rest of the batch.
func (w *Worker) DeliverPending(ctx context.Context) error {
	pending, err := w.repo.GetPendingForwards(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending forwards: %w", err)
	}

	for i := range pending {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w.deliverOne(ctx, &pending[i])
	}

	if count, err := w.repo.CountPendingForwards(ctx); err == nil {
		observability.ForwardsPending.Set(float64(count))
	}

	return nil
}

func (w *Worker) deliverOne(ctx context.Context, fwd *domain.ForwardedMessage) {
	logger := w.log().With().Int64("forward_id", fwd.ID).Logger()

	text, err := w.renderDeliveryText(ctx, fwd)
	if err != nil {
		logger.Error().Err(err).Msg("render delivery text failed")
		w.markFailed(ctx, logger, fwd.ID, err)

		return
	}

	deliveredID, err := w.sender.Send(ctx, fwd.TargetChatID, text)
	if err != nil {
		logger.Warn().Err(err).Int64("target_chat_id", fwd.TargetChatID).Msg("delivery failed")
		w.markFailed(ctx, logger, fwd.ID, err)

		return
	}

	if err := w.repo.MarkForwardSent(ctx, fwd.ID, deliveredID); err != nil {
		logger.Error().Err(err).Msg("mark forward sent failed")

		return
	}

	observability.ForwardsDelivered.WithLabelValues(string(domain.ForwardSent)).Inc()
	logger.Debug().Int64("delivered_message_id", deliveredID).Msg("forward delivered")
}

func (w *Worker) markFailed(ctx context.Context, logger zerolog.Logger, forwardID int64, cause error) {
	if err := w.repo.MarkForwardFailed(ctx, forwardID, cause.Error()); err != nil {
		logger.Error().Err(err).Msg("mark forward failed errored")

		return
	}

	observability.ForwardsDelivered.WithLabelValues(string(domain.ForwardFailed)).Inc()
}

// renderDeliveryText builds the outgoing message: a header naming the source
// and the matching filter, an optional public t.me link, and the truncated
// message body.
func (w *Worker) renderDeliveryText(ctx context.Context, fwd *domain.ForwardedMessage) (string, error) {
	msg, err := w.repo.GetMessageByID(ctx, fwd.MessageID)
	if err != nil {
		return "", fmt.Errorf("load message %d: %w", fwd.MessageID, err)
	}

	sourceTitle := fmt.Sprintf("source_id=%d", msg.SourceID)
	sourceUsername := ""

	if source, err := w.repo.GetSourceByID(ctx, msg.SourceID); err == nil {
		sourceUsername = source.Username

		switch {
		case source.Title != "":
			sourceTitle = source.Title
		case source.Username != "":
			sourceTitle = source.Username
		}
	}

	filterName := fmt.Sprintf("filter_id=%d", fwd.FilterID)
	if rule, err := w.repo.GetFilterByID(ctx, fwd.FilterID); err == nil && rule.Name != "" {
		filterName = rule.Name
	}

	var b strings.Builder

	b.WriteString("Source: " + sourceTitle)
	b.WriteString("\nFilter: " + filterName)

	if link := publicLink(sourceUsername, msg.TelegramMessageID); link != "" {
		b.WriteString("\nLink: " + link)
	}

	body := truncateBody(msg.Text, w.maxTextLength)
	if body == "" {
		body = "(no text)"
	}

	b.WriteString("\n\n" + body)

	return b.String(), nil
}

// publicLink builds a t.me permalink for messages in public channels. Returns
// "" when the source has no username or the message id is unknown.
func publicLink(username string, telegramMessageID int64) string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" || telegramMessageID <= 0 {
		return ""
	}

	return fmt.Sprintf("https://t.me/%s/%d", username, telegramMessageID)
}

func truncateBody(text string, limit int) string {
	s := strings.TrimSpace(text)

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return strings.TrimRight(string(runes[:limit]), " \t\n") + "…"
}

func (w *Worker) log() *zerolog.Logger {
	if w.logger != nil {
		return w.logger
	}

	nop := zerolog.Nop()

	return &nop
}
