// Package dispatch orchestrates end-to-end processing of one incoming
// message: source and message persistence with dedup, subscriber fan-out,
// filter evaluation, match persistence and forward-record creation.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
	"github.com/lueurxax/telegram-filter-bot/internal/filters"
	"github.com/lueurxax/telegram-filter-bot/internal/platform/observability"
	db "github.com/lueurxax/telegram-filter-bot/internal/storage"
)

// Repository is the storage surface the dispatcher needs.
type Repository interface {
	GetOrCreateSource(ctx context.Context, chatID int64, title, username string, sourceType domain.SourceType) (*domain.Source, bool, error)
	GetOrCreateMessage(ctx context.Context, msg *domain.IncomingMessage, sourceID int64) (*domain.Message, bool, error)
	MarkMessageProcessed(ctx context.Context, messageID int64) error
	GetSourceSubscribers(ctx context.Context, sourceID int64) ([]domain.Subscription, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserFilters(ctx context.Context, userID int64) ([]domain.FilterRule, error)
	GetOrCreateMatch(ctx context.Context, result domain.FilterMatchResult) (int64, bool, error)
	CreateForward(ctx context.Context, userID, filterID, messageID, targetChatID int64) (*domain.ForwardedMessage, error)
	MarkForwardSent(ctx context.Context, forwardID, deliveredMessageID int64) error
	MarkForwardFailed(ctx context.Context, forwardID int64, errText string) error
}

var _ Repository = (*db.DB)(nil)

// Forwarder performs an immediate platform-native forward of the original
// message. Optional; without it forward records stay pending for the delivery
// worker.
type Forwarder interface {
	Forward(ctx context.Context, fromChatID, telegramMessageID, toChatID int64) (int64, error)
}

// DispatchResult summarizes one dispatch call. Counters are partial when some
// per-match persistence failed.
type DispatchResult struct {
	MessageID       int64
	SourceID        int64
	MatchedFilters  []int64
	MatchesCreated  int
	ForwardsCreated int
	ForwardsSent    int
}

// Dispatcher fans one incoming message out to all subscribers' filters.
type Dispatcher struct {
	repo      Repository
	pipeline  *filters.Pipeline
	forwarder Forwarder
	logger    *zerolog.Logger
}

// New creates a dispatcher. forwarder may be nil.
func New(repo Repository, pipeline *filters.Pipeline, forwarder Forwarder, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		pipeline:  pipeline,
		forwarder: forwarder,
		logger:    logger,
	}
}

// Dispatch processes one incoming message. Persistence failures for a single
// match are logged and skipped, so the returned result can be partial; only
// failures that prevent any processing (source or message persistence) abort
// the call.
func (d *Dispatcher) Dispatch(ctx context.Context, incoming *domain.IncomingMessage) (*DispatchResult, error) {
	logger := d.dispatchLogger(incoming)

	source, _, err := d.repo.GetOrCreateSource(ctx, incoming.ChatID,
		incoming.SourceTitle, incoming.SourceUsername, domain.ParseSourceType(incoming.SourceType))
	if err != nil {
		observability.MessagesDispatched.WithLabelValues("error").Inc()

		return nil, err
	}

	msg, created, err := d.repo.GetOrCreateMessage(ctx, incoming, source.ID)
	if err != nil {
		observability.MessagesDispatched.WithLabelValues("error").Inc()

		return nil, err
	}

	if !created {
		logger.Debug().Int64("message_id", msg.ID).Msg("message already known, re-evaluating idempotently")
	}

	normalized := incoming.NormalizedText

	subs, err := d.repo.GetSourceSubscribers(ctx, source.ID)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{MessageID: msg.ID, SourceID: source.ID}

	start := time.Now()

	for _, sub := range subs {
		d.dispatchToUser(ctx, logger, incoming, msg, sub.UserID, normalized, result)
	}

	observability.FilterEvaluationDuration.Observe(time.Since(start).Seconds())

	if err := d.repo.MarkMessageProcessed(ctx, msg.ID); err != nil {
		logger.Error().Err(err).Int64("message_id", msg.ID).Msg("mark message processed failed")
	}

	observability.MessagesDispatched.WithLabelValues("ok").Inc()
	logger.Debug().
		Int64("message_id", msg.ID).
		Int("subscribers", len(subs)).
		Int("matches_created", result.MatchesCreated).
		Int("forwards_created", result.ForwardsCreated).
		Msg("dispatch finished")

	return result, nil
}

func (d *Dispatcher) dispatchLogger(incoming *domain.IncomingMessage) zerolog.Logger {
	base := zerolog.Nop()
	if d.logger != nil {
		base = *d.logger
	}

	return base.With().
		Str("dispatch_id", uuid.NewString()).
		Int64("chat_id", incoming.ChatID).
		Int64("telegram_message_id", incoming.TelegramMessageID).
		Logger()
}

func (d *Dispatcher) dispatchToUser(ctx context.Context, logger zerolog.Logger, incoming *domain.IncomingMessage, msg *domain.Message, userID int64, normalized *domain.NormalizedText, result *DispatchResult) {
	user, err := d.repo.GetUserByID(ctx, userID)
	if err != nil {
		logger.Warn().Err(err).Int64("user_id", userID).Msg("load user failed, skipping")

		return
	}

	if !user.IsActive {
		return
	}

	rules, err := d.repo.GetUserFilters(ctx, user.ID)
	if err != nil {
		logger.Warn().Err(err).Int64("user_id", user.ID).Msg("load filters failed, skipping user")

		return
	}

	if len(rules) == 0 {
		return
	}

	for _, res := range d.pipeline.Run(ctx, msg.Text, msg.ID, rules, normalized) {
		d.persistMatch(ctx, logger, incoming, user, res, result)
	}
}

// persistMatch upserts the match row and, for newly created matches only,
// creates (and optionally delivers) the forward record. Any failure here is
// absorbed so the remaining matches and subscribers still get processed.
func (d *Dispatcher) persistMatch(ctx context.Context, logger zerolog.Logger, incoming *domain.IncomingMessage, user *domain.User, res domain.FilterMatchResult, result *DispatchResult) {
	result.MatchedFilters = append(result.MatchedFilters, res.FilterID)

	_, created, err := d.repo.GetOrCreateMatch(ctx, res)
	if err != nil {
		logger.Error().Err(err).
			Int64("filter_id", res.FilterID).
			Msg("persist match failed, skipping")

		return
	}

	if !created {
		// A previous dispatch of this message already recorded the match
		// and its forward. Re-dispatching must not enqueue a second delivery.
		return
	}

	result.MatchesCreated++

	observability.FilterMatches.WithLabelValues(string(res.MatchType)).Inc()

	if user.TargetChatID == nil {
		return
	}

	fwd, err := d.repo.CreateForward(ctx, user.ID, res.FilterID, res.MessageID, *user.TargetChatID)
	if err != nil {
		logger.Error().Err(err).
			Int64("filter_id", res.FilterID).
			Msg("create forward failed, skipping")

		return
	}

	result.ForwardsCreated++

	if d.forwarder == nil {
		return
	}

	deliveredID, err := d.forwarder.Forward(ctx, incoming.ChatID, incoming.TelegramMessageID, *user.TargetChatID)
	if err != nil {
		if markErr := d.repo.MarkForwardFailed(ctx, fwd.ID, err.Error()); markErr != nil {
			logger.Error().Err(markErr).Int64("forward_id", fwd.ID).Msg("mark forward failed errored")
		}

		observability.ForwardsDelivered.WithLabelValues(string(domain.ForwardFailed)).Inc()

		return
	}

	if err := d.repo.MarkForwardSent(ctx, fwd.ID, deliveredID); err != nil {
		logger.Error().Err(err).Int64("forward_id", fwd.ID).Msg("mark forward sent errored")

		return
	}

	result.ForwardsSent++

	observability.ForwardsDelivered.WithLabelValues(string(domain.ForwardSent)).Inc()
}
