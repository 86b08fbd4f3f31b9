package telegrambot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/telegram-filter-bot/internal/core/errors"
	db "github.com/lueurxax/telegram-filter-bot/internal/storage"
)

// Repository is the storage surface the control bot needs.
type Repository interface {
	GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*domain.User, bool, error)
	SetUserTargetChat(ctx context.Context, userID int64, targetChatID *int64) error
	GetUserFilters(ctx context.Context, userID int64) ([]domain.FilterRule, error)
	GetOrCreateSource(ctx context.Context, chatID int64, title, username string, sourceType domain.SourceType) (*domain.Source, bool, error)
	GetSourceByChatID(ctx context.Context, chatID int64) (*domain.Source, error)
	SetSourceActive(ctx context.Context, sourceID int64, active bool) error
	CreateSubscription(ctx context.Context, userID, sourceID int64, priority int) (*domain.Subscription, error)
	DeactivateSubscription(ctx context.Context, userID, sourceID int64) error
	CountPendingForwards(ctx context.Context) (int, error)
	CountMatchesForUser(ctx context.Context, userID int64) (int, error)
}

var _ Repository = (*db.DB)(nil)

// Bot is the user-facing control surface: registration, target chat setup,
// source subscriptions and a status overview.
type Bot struct {
	repo   Repository
	api    *tgbotapi.BotAPI
	send   func(c tgbotapi.Chattable) (tgbotapi.Message, error)
	logger *zerolog.Logger
}

func New(token string, repo Repository, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}

	return &Bot{repo: repo, api: api, send: api.Send, logger: logger}, nil
}

// Sender returns a delivery sender sharing this bot's API client.
func (b *Bot) Sender() *Sender {
	return NewSenderWithAPI(b.api)
}

// Run consumes the update channel until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()

			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}

			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}

	b.logger.Info().Str("command", msg.Command()).Int64("user_id", msg.From.ID).Msg("handling command")

	switch msg.Command() {
	case "start", "help":
		b.handleHelp(ctx, msg)
	case "target":
		b.handleTarget(ctx, msg)
	case "subscribe":
		b.handleSubscribe(ctx, msg)
	case "unsubscribe":
		b.handleUnsubscribe(ctx, msg)
	case "filters":
		b.handleFilters(ctx, msg)
	case "status":
		b.handleStatus(ctx, msg)
	default:
		b.reply(msg, "Unknown command. Use /help for the command list.")
	}
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	if _, _, err := b.registerUser(ctx, msg); err != nil {
		b.replyError(msg, err)

		return
	}

	b.reply(msg, strings.Join([]string{
		"Commands:",
		"/target [chat_id] - set where matches are delivered (defaults to this chat)",
		"/subscribe <chat_id> - watch a source chat",
		"/unsubscribe <chat_id> - stop watching a source chat",
		"/filters - list your active filters",
		"/status - delivery queue overview",
	}, "\n"))
}

func (b *Bot) handleTarget(ctx context.Context, msg *tgbotapi.Message) {
	user, _, err := b.registerUser(ctx, msg)
	if err != nil {
		b.replyError(msg, err)

		return
	}

	target := msg.Chat.ID

	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		target, err = strconv.ParseInt(arg, 10, 64)
		if err != nil {
			b.reply(msg, "Usage: /target [chat_id]")

			return
		}
	}

	if err := b.repo.SetUserTargetChat(ctx, user.ID, &target); err != nil {
		b.replyError(msg, err)

		return
	}

	b.reply(msg, fmt.Sprintf("Matches will be delivered to chat %d.", target))
}

func (b *Bot) handleSubscribe(ctx context.Context, msg *tgbotapi.Message) {
	user, _, err := b.registerUser(ctx, msg)
	if err != nil {
		b.replyError(msg, err)

		return
	}

	chatID, ok := b.chatIDArgument(msg, "/subscribe <chat_id>")
	if !ok {
		return
	}

	source, _, err := b.repo.GetOrCreateSource(ctx, chatID, "", "", domain.SourceChannel)
	if err != nil {
		b.replyError(msg, err)

		return
	}

	if err := b.repo.SetSourceActive(ctx, source.ID, true); err != nil {
		b.replyError(msg, err)

		return
	}

	if _, err := b.repo.CreateSubscription(ctx, user.ID, source.ID, 0); err != nil {
		b.replyError(msg, err)

		return
	}

	b.reply(msg, fmt.Sprintf("Subscribed to chat %d.", chatID))
}

func (b *Bot) handleUnsubscribe(ctx context.Context, msg *tgbotapi.Message) {
	user, _, err := b.registerUser(ctx, msg)
	if err != nil {
		b.replyError(msg, err)

		return
	}

	chatID, ok := b.chatIDArgument(msg, "/unsubscribe <chat_id>")
	if !ok {
		return
	}

	// Unsubscribing from a chat nobody registered must not create a source.
	source, err := b.repo.GetSourceByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, coreerrors.ErrNotFound) {
			b.reply(msg, fmt.Sprintf("You are not watching chat %d.", chatID))

			return
		}

		b.replyError(msg, err)

		return
	}

	if err := b.repo.DeactivateSubscription(ctx, user.ID, source.ID); err != nil {
		b.replyError(msg, err)

		return
	}

	b.reply(msg, fmt.Sprintf("Unsubscribed from chat %d.", chatID))
}

func (b *Bot) handleFilters(ctx context.Context, msg *tgbotapi.Message) {
	user, _, err := b.registerUser(ctx, msg)
	if err != nil {
		b.replyError(msg, err)

		return
	}

	rules, err := b.repo.GetUserFilters(ctx, user.ID)
	if err != nil {
		b.replyError(msg, err)

		return
	}

	if len(rules) == 0 {
		b.reply(msg, "You have no active filters.")

		return
	}

	var sb strings.Builder

	sb.WriteString("Active filters:\n")

	for _, rule := range rules {
		sb.WriteString(fmt.Sprintf("- %s (%s)", rule.Name, rule.Config.Mode))

		if len(rule.Config.Keywords) > 0 {
			sb.WriteString(" keywords: " + strings.Join(rule.Config.Keywords, ", "))
		}

		if len(rule.Config.Topics) > 0 {
			sb.WriteString(" topics: " + strings.Join(rule.Config.Topics, ", "))
		}

		sb.WriteString("\n")
	}

	b.reply(msg, sb.String())
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message) {
	user, _, err := b.registerUser(ctx, msg)
	if err != nil {
		b.replyError(msg, err)

		return
	}

	matches, err := b.repo.CountMatchesForUser(ctx, user.ID)
	if err != nil {
		b.replyError(msg, err)

		return
	}

	pending, err := b.repo.CountPendingForwards(ctx)
	if err != nil {
		b.replyError(msg, err)

		return
	}

	b.reply(msg, fmt.Sprintf("Matches recorded: %d\nPending deliveries: %d", matches, pending))
}

func (b *Bot) registerUser(ctx context.Context, msg *tgbotapi.Message) (*domain.User, bool, error) {
	from := msg.From

	return b.repo.GetOrCreateUser(ctx, from.ID, from.UserName, from.FirstName, from.LastName)
}

func (b *Bot) chatIDArgument(msg *tgbotapi.Message, usage string) (int64, bool) {
	arg := strings.TrimSpace(msg.CommandArguments())

	chatID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.reply(msg, "Usage: "+usage)

		return 0, false
	}

	return chatID, true
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID

	if _, err := b.send(out); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("send reply failed")
	}
}

func (b *Bot) replyError(msg *tgbotapi.Message, err error) {
	b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("command failed")
	b.reply(msg, "Something went wrong, try again later.")
}
