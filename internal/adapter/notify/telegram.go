package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"

	"soundlink/internal/platform/httpclient"
)

// TelegramSender posts alert messages to a single Telegram chat.
type TelegramSender struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegramSender builds a sender for the given bot token and chat.
// Requests go through the shared retrying HTTP client.
func NewTelegramSender(token string, chatID int64, hc *httpclient.Client) (*TelegramSender, error) {
	opts := []bot.Option{
		bot.WithSkipGetMe(),
	}
	if hc != nil {
		opts = append(opts, bot.WithHTTPClient(30*time.Second, hc))
	}
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: create telegram bot: %w", err)
	}
	return &TelegramSender{bot: b, chatID: chatID}, nil
}

// Send implements Sender.
func (s *TelegramSender) Send(ctx context.Context, text string) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: s.chatID, Text: text})
	if err != nil {
		return fmt.Errorf("notify: send telegram message: %w", err)
	}
	return nil
}
