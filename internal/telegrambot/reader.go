package telegrambot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
)

// Reader turns Bot API updates into incoming messages. The bot only sees
// chats it is a member of, so sources must add the bot before their messages
// can be filtered.
type Reader struct {
	api    *tgbotapi.BotAPI
	logger *zerolog.Logger
}

func NewReader(token string, logger *zerolog.Logger) (*Reader, error) {
	sender, err := NewSender(token)
	if err != nil {
		return nil, err
	}

	return &Reader{api: sender.api, logger: logger}, nil
}

// Messages streams group and channel messages until ctx is cancelled. Command
// messages and empty texts are dropped at the source.
func (r *Reader) Messages(ctx context.Context) (<-chan domain.IncomingMessage, error) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "channel_post"}

	updates := r.api.GetUpdatesChan(u)
	out := make(chan domain.IncomingMessage)

	go func() {
		defer close(out)
		defer r.api.StopReceivingUpdates()

		for {
			select {
			case <-ctx.Done():
				return
			case update := <-updates:
				msg := update.ChannelPost
				if msg == nil {
					msg = update.Message
				}

				incoming, ok := toIncoming(msg)
				if !ok {
					continue
				}

				select {
				case <-ctx.Done():
					return
				case out <- incoming:
				}
			}
		}
	}()

	return out, nil
}

func toIncoming(msg *tgbotapi.Message) (domain.IncomingMessage, bool) {
	if msg == nil || msg.Chat == nil || msg.IsCommand() {
		return domain.IncomingMessage{}, false
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	if text == "" {
		return domain.IncomingMessage{}, false
	}

	return domain.IncomingMessage{
		TelegramMessageID: int64(msg.MessageID),
		ChatID:            msg.Chat.ID,
		Date:              time.Unix(int64(msg.Date), 0),
		Text:              text,
		SourceType:        chatSourceType(msg.Chat),
		SourceTitle:       msg.Chat.Title,
		SourceUsername:    msg.Chat.UserName,
	}, true
}

func chatSourceType(chat *tgbotapi.Chat) string {
	switch {
	case chat.IsChannel():
		return string(domain.SourceChannel)
	case chat.IsGroup(), chat.IsSuperGroup():
		return string(domain.SourceGroup)
	default:
		return string(domain.SourcePrivate)
	}
}
