package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// TelegramConfig configures the Telegram bot channel.
type TelegramConfig struct {
	Token  string
	ChatID string
	// APIURL overrides the Bot API endpoint.
	APIURL string
}

// Telegram sends events through a Telegram bot.
type Telegram struct {
	bot  *tele.Bot
	chat *tele.Chat
}

// NewTelegram builds the channel. Missing credentials yield an unconfigured channel.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" || cfg.ChatID == "" {
		return &Telegram{}, nil
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(cfg.ChatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse telegram chat id %q: %w", cfg.ChatID, err)
	}
	bot, err := tele.NewBot(tele.Settings{
		URL:     cfg.APIURL,
		Token:   cfg.Token,
		Client:  &http.Client{Timeout: 10 * time.Second},
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chat: &tele.Chat{ID: chatID}}, nil
}

// Name implements Channel.
func (t *Telegram) Name() string { return "telegram" }

// Configured implements Channel.
func (t *Telegram) Configured() bool { return t.bot != nil }

// Send implements Channel. Availability uses the short text form.
func (t *Telegram) Send(ctx context.Context, event monitor.Event) error {
	if !t.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	text := Markdown(event, "")
	if event.Kind == monitor.EventAvailable {
		text = Plain(event)
	}
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if _, err := t.bot.Send(t.chat, text, opts); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
