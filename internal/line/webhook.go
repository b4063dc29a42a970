// Package line serves the LINE Messaging API webhook and the small HTTP
// surface around it.
package line

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"line-chat-ai/internal/logging"
	"line-chat-ai/internal/router"
)

const (
	SignatureHeader = "X-Line-Signature"
	LivenessText    = "LineChatAI Bot is running!"
)

var ErrInvalidSignature = errors.New("invalid signature")

// Inbound is one verified platform event plus its reply token.
type Inbound struct {
	Event      router.Event
	ReplyToken string
}

// Parser verifies the signature and decodes the events of a delivery.
type Parser interface {
	Parse(r *http.Request) ([]Inbound, error)
}

type Messenger interface {
	Reply(replyToken string, reply router.Reply) error
	DisplayName(userID string) (string, error)
}

type EventHandler interface {
	Handle(ctx context.Context, ev router.Event) *router.Reply
}

type Webhook struct {
	parser    Parser
	messenger Messenger
	handler   EventHandler
	log       *slog.Logger
}

func NewWebhook(parser Parser, messenger Messenger, handler EventHandler, log *slog.Logger) *Webhook {
	if log == nil {
		log = logging.Discard()
	}
	return &Webhook{parser: parser, messenger: messenger, handler: handler, log: log.With(logging.Transport, "line")}
}

// ServeHTTP processes every event of the delivery before answering.
func (w *Webhook) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(rw, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	log := w.log.With(logging.RequestID, uuid.NewString())

	if req.Header.Get(SignatureHeader) == "" {
		log.Warn("Webhook without signature header")
		http.Error(rw, "Bad Request", http.StatusBadRequest)
		return
	}

	events, err := w.parser.Parse(req)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			log.Warn("Webhook signature rejected")
		} else {
			log.Warn("Webhook payload rejected", logging.InnerError, err)
		}
		http.Error(rw, "Bad Request", http.StatusBadRequest)
		return
	}

	for _, in := range events {
		w.dispatch(req.Context(), log, in)
	}

	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write([]byte("OK"))
}

func (w *Webhook) dispatch(ctx context.Context, log *slog.Logger, in Inbound) {
	ev := in.Event
	log = log.With(logging.UserID, ev.UserID, logging.EventKind, ev.Kind.String())

	if ev.Kind == router.EventMessage && ev.UserName == "" {
		if name, err := w.messenger.DisplayName(string(ev.UserID)); err == nil {
			ev.UserName = name
		} else {
			log.Debug("Profile lookup failed", logging.InnerError, err)
		}
	}

	reply := w.handler.Handle(ctx, ev)
	if reply == nil || in.ReplyToken == "" {
		return
	}
	if err := w.messenger.Reply(in.ReplyToken, *reply); err != nil {
		log.Error("Reply failed", logging.InnerError, err)
	}
}
