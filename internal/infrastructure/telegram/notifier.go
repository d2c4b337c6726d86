// Package telegram delivers run summaries to the reviewer's chat.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"NewsletterCurator/internal/config"
	"NewsletterCurator/internal/ports"
)

// sender is the single bot API call the notifier needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts run summaries to a Telegram chat via the bot API.
type Notifier struct {
	api    sender
	chatID int64
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier connects the bot and binds it to the configured chat.
func NewNotifier(cfg config.TelegramConfig) (*Notifier, error) {
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Notifier{api: bot, chatID: cfg.ChatID}, nil
}

// PublishSummary posts a Markdown message to the configured chat.
func (n *Notifier) PublishSummary(ctx context.Context, summary string) error {
	if n.api == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, summary)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send summary: %w", err)
	}

	return nil
}
