package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"maintenance-service/internal/config"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/utils"
)

// TelegramNotifier sends escalation messages to a user's telegram chat.
type TelegramNotifier struct {
	token   string
	limiter *rate.Limiter
	logger  *logging.Logger
}

func NewTelegramNotifier(cfg config.Config, logger *logging.Logger) *TelegramNotifier {
	rps := cfg.Telegram.RatePerSecond
	return &TelegramNotifier{
		token:   cfg.Telegram.BotToken,
		limiter: rate.NewLimiter(rate.Limit(float64(rps)), rps),
		logger:  logger,
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, chatID int64, text string) error {
	if t.token == "" {
		return fmt.Errorf("telegram bot token not configured")
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	return utils.Retry(t.logger, 3, time.Second, func() error {
		b, err := bot.New(t.token)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram bot: %w", err)
		}
		params := &bot.SendMessageParams{
			ChatID: chatID,
			Text:   text,
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", chatID, err)
		}
		return nil
	})
}
