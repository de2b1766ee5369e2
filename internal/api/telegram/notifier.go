// Package telegram delivers alerts to a Telegram chat through a bot.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/CrossWatch/internal/notify"
	"github.com/Alias1177/CrossWatch/models"
)

var badges = map[models.Strength]string{
	models.StrengthStrong: "🔥",
	models.StrengthMedium: "⚡",
	models.StrengthWeak:   "💫",
}

// Notifier sends alerts as plain text messages to one chat
type Notifier struct {
	token    string
	chatID   int64
	endpoint string
	client   *http.Client

	mu     sync.Mutex
	bot    *tgbotapi.BotAPI
	logger zerolog.Logger
}

// Options configures the Telegram notifier
type Options struct {
	Token          string
	ChatID         int64
	APIEndpoint    string // defaults to tgbotapi.APIEndpoint
	RequestTimeout time.Duration
}

// NewNotifier creates a notifier. The bot is authorized lazily on first delivery so
// that construction never touches the network.
func NewNotifier(opts Options) (*Notifier, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	if opts.ChatID == 0 {
		return nil, fmt.Errorf("telegram: chat id is required")
	}
	if opts.APIEndpoint == "" {
		opts.APIEndpoint = tgbotapi.APIEndpoint
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	return &Notifier{
		token:    opts.Token,
		chatID:   opts.ChatID,
		endpoint: opts.APIEndpoint,
		client:   &http.Client{Timeout: opts.RequestTimeout},
		logger:   log.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

// Name implements models.Notifier
func (n *Notifier) Name() string { return "telegram" }

// Deliver sends the alert; weak alerts are sent silently. The bot library has no
// context support, so ctx only bounds how long Deliver waits; the request itself
// is bounded by RequestTimeout.
func (n *Notifier) Deliver(ctx context.Context, title, body string, strength models.Strength) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: telegram: %w", notify.ErrDeliveryFailed, err)
	}

	msg := tgbotapi.NewMessage(n.chatID, fmt.Sprintf("%s %s\n\n%s", badges[strength], title, body))
	msg.DisableNotification = strength == models.StrengthWeak
	msg.DisableWebPagePreview = true

	type sendResult struct {
		sent tgbotapi.Message
		err  error
	}
	done := make(chan sendResult, 1)
	go func() {
		bot, err := n.authorize()
		if err != nil {
			done <- sendResult{err: err}
			return
		}
		sent, err := bot.Send(msg)
		done <- sendResult{sent: sent, err: err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: telegram: %w", notify.ErrDeliveryFailed, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("%w: telegram: %v", notify.ErrDeliveryFailed, res.err)
		}
		n.logger.Debug().Int("message_id", res.sent.MessageID).Int64("chat_id", n.chatID).Msg("Message delivered")
		return nil
	}
}

func (n *Notifier) authorize() (*tgbotapi.BotAPI, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.bot != nil {
		return n.bot, nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(n.token, n.endpoint, n.client)
	if err != nil {
		return nil, fmt.Errorf("authorizing bot: %w", err)
	}
	n.logger.Info().Str("username", bot.Self.UserName).Msg("Authorized on Telegram")
	n.bot = bot
	return bot, nil
}
