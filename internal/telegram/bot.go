// Package telegram feeds Telegram long-poll updates through the same
// router the LINE webhook uses.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"line-chat-ai/internal/logging"
	"line-chat-ai/internal/router"
	"line-chat-ai/internal/session"
)

const (
	UserPrefix = "tg:"
	startCmd   = "/start"

	maxTextRunes = 4096
	// Telegram rejects callback data longer than 64 bytes.
	maxCallbackBytes = 64
	buttonsPerRow    = 2
)

type EventHandler interface {
	Handle(ctx context.Context, ev router.Event) *router.Reply
}

type Bot struct {
	s       sender
	updates updatesSource
	handler EventHandler
	log     *slog.Logger
}

func New(botToken string, handler EventHandler, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	if log == nil {
		log = logging.Discard()
	}
	log = log.With(logging.Transport, "telegram")
	log.Info("Telegram bot authorized", "account", api.Self.UserName)
	return &Bot{s: api, updates: api, handler: handler, log: log}, nil
}

// Start polls until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.updates.GetUpdatesChan(u)
	defer b.updates.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleIncomingMessage(ctx, update.Message)
		return
	}
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return
	}
	ev := router.Event{
		Kind:     router.EventMessage,
		UserID:   userID(msg.From.ID),
		UserName: displayName(msg.From),
		Text:     msg.Text,
	}
	if msg.IsCommand() && msg.Command() == strings.TrimPrefix(startCmd, "/") {
		ev = router.Event{Kind: router.EventFollow, UserID: ev.UserID}
	}
	b.dispatch(ctx, msg.Chat.ID, ev)
}

// handleCallback treats a pressed button as if its text had been typed.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Debug("Callback ack failed", logging.InnerError, err)
	}
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil || cb.Data == "" {
		return
	}
	b.dispatch(ctx, cb.Message.Chat.ID, router.Event{
		Kind:     router.EventMessage,
		UserID:   userID(cb.From.ID),
		UserName: displayName(cb.From),
		Text:     cb.Data,
	})
}

func (b *Bot) dispatch(ctx context.Context, chatID int64, ev router.Event) {
	reply := b.handler.Handle(ctx, ev)
	if reply == nil {
		return
	}
	out := tgbotapi.NewMessage(chatID, truncateRunes(reply.Text, maxTextRunes))
	if kb, ok := keyboard(reply.QuickReplies); ok {
		out.ReplyMarkup = kb
	}
	if _, err := b.s.Send(out); err != nil {
		b.log.Error("Failed to send message", logging.UserID, ev.UserID, logging.InnerError, err)
	}
}

func keyboard(items []router.QuickReply) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, it := range items {
		if len(it.Text) > maxCallbackBytes {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(it.Label, it.Text))
		if len(row) == buttonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func userID(id int64) session.UserID {
	return session.UserID(UserPrefix + strconv.FormatInt(id, 10))
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.UserName
	}
	return name
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
