// Package telegrambot wraps the Telegram Bot API for delivery and control.
package telegrambot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers messages through the Bot API. It satisfies both the
// dispatcher's sync forwarder and the delivery worker's sender.
type Sender struct {
	api *tgbotapi.BotAPI
}

// NewSender authorizes against the Bot API with the given token.
func NewSender(token string) (*Sender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}

	return &Sender{api: api}, nil
}

// NewSenderWithAPI wraps an already authorized client.
func NewSenderWithAPI(api *tgbotapi.BotAPI) *Sender {
	return &Sender{api: api}
}

// Send delivers a plain-text message and returns the delivered message id.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	sent, err := s.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message to %d: %w", chatID, err)
	}

	return int64(sent.MessageID), nil
}

// Forward performs a platform-native forward of an existing message. Fails
// when the bot cannot read the origin chat, so callers should treat it as
// best effort and fall back to text delivery.
func (s *Sender) Forward(ctx context.Context, fromChatID, telegramMessageID, toChatID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	fwd := tgbotapi.NewForward(toChatID, fromChatID, int(telegramMessageID))

	sent, err := s.api.Send(fwd)
	if err != nil {
		return 0, fmt.Errorf("forward message %d from %d: %w", telegramMessageID, fromChatID, err)
	}

	return int64(sent.MessageID), nil
}
