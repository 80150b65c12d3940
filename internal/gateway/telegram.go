package gateway

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/news-radar/internal/core/domain"
	coreerrors "github.com/lueurxax/news-radar/internal/core/errors"
)

// Telegram message hard limit after entity parsing.
const telegramMessageLimit = 4096

type telegramNotifier struct {
	api    *tgbotapi.BotAPI
	logger *zerolog.Logger
}

// NewTelegram creates the Telegram transport. Without a bot token it
// returns a logging no-op so worker mode still runs end to end.
func NewTelegram(botToken string, logger *zerolog.Logger) (Notifier, error) {
	if botToken == "" {
		logger.Warn().Msg("no bot token configured, notifications are log-only")

		return &logNotifier{logger: logger}, nil
	}

	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	return &telegramNotifier{api: api, logger: logger}, nil
}

func (t *telegramNotifier) Send(ctx context.Context, subscriber *domain.Subscriber, msg Message) error {
	if subscriber.ChatID == 0 {
		return coreerrors.ErrInvalidInput
	}

	for _, part := range splitText(msg.Text, telegramMessageLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}

		out := tgbotapi.NewMessage(subscriber.ChatID, part)
		out.ParseMode = tgbotapi.ModeHTML
		out.DisableWebPagePreview = true

		if _, err := t.api.Send(out); err != nil {
			return fmt.Errorf("sending %s message to chat %d: %w", msg.Kind, subscriber.ChatID, err)
		}
	}

	return nil
}

// splitText breaks an overlong message at line boundaries where possible.
func splitText(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string

	for len(text) > limit {
		cut := limit

		for i := limit; i > limit/2; i-- {
			if text[i-1] == '\n' {
				cut = i

				break
			}
		}

		parts = append(parts, text[:cut])
		text = text[cut:]
	}

	if text != "" {
		parts = append(parts, text)
	}

	return parts
}

type logNotifier struct {
	logger *zerolog.Logger
}

func (l *logNotifier) Send(_ context.Context, subscriber *domain.Subscriber, msg Message) error {
	l.logger.Info().
		Str("subscriber_id", subscriber.ID).
		Str("kind", msg.Kind).
		Int("length", len(msg.Text)).
		Msg("notification suppressed (no bot token)")

	return nil
}
