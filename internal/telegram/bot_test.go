package telegram

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"line-chat-ai/internal/logging"
	"line-chat-ai/internal/router"
)

type fakeSender struct {
	sent     []tgbotapi.MessageConfig
	requests int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakeUpdates struct {
	ch      chan tgbotapi.Update
	stopped bool
}

func (f *fakeUpdates) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.ch }
func (f *fakeUpdates) StopReceivingUpdates()                                        { f.stopped = true }

type fakeHandler struct {
	seen   []router.Event
	reply  *router.Reply
	called chan struct{}
}

func (h *fakeHandler) Handle(_ context.Context, ev router.Event) *router.Reply {
	h.seen = append(h.seen, ev)
	if h.called != nil {
		h.called <- struct{}{}
	}
	return h.reply
}

func newTestBot(h *fakeHandler) (*Bot, *fakeSender) {
	fs := &fakeSender{}
	return &Bot{s: fs, handler: h, log: logging.Discard()}, fs
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42, FirstName: "Taro", LastName: "Yamada"},
		Chat: &tgbotapi.Chat{ID: 100},
		Text: text,
	}
}

func TestHandleIncomingMessage_RoutesText(t *testing.T) {
	h := &fakeHandler{reply: &router.Reply{Text: "hi"}}
	b, fs := newTestBot(h)

	b.handleIncomingMessage(context.Background(), textMessage("hello"))

	if len(h.seen) != 1 {
		t.Fatalf("expected 1 event, got %d", len(h.seen))
	}
	ev := h.seen[0]
	if ev.UserID != "tg:42" || ev.UserName != "Taro Yamada" || ev.Text != "hello" || ev.Kind != router.EventMessage {
		t.Fatalf("unexpected event %+v", ev)
	}
	if len(fs.sent) != 1 || fs.sent[0].Text != "hi" || fs.sent[0].ChatID != 100 {
		t.Fatalf("unexpected sent %+v", fs.sent)
	}
	if fs.sent[0].ReplyMarkup != nil {
		t.Fatalf("plain reply should carry no keyboard")
	}
}

func TestHandleIncomingMessage_StartIsFollow(t *testing.T) {
	h := &fakeHandler{reply: &router.Reply{Text: "welcome"}}
	b, _ := newTestBot(h)

	msg := textMessage("/start")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}
	b.handleIncomingMessage(context.Background(), msg)

	if len(h.seen) != 1 || h.seen[0].Kind != router.EventFollow {
		t.Fatalf("expected follow event, got %+v", h.seen)
	}
}

func TestHandleIncomingMessage_SilentReply(t *testing.T) {
	h := &fakeHandler{}
	b, fs := newTestBot(h)

	b.handleIncomingMessage(context.Background(), textMessage("hello"))
	if len(fs.sent) != 0 {
		t.Fatalf("nil reply must send nothing, got %+v", fs.sent)
	}
}

func TestHandleCallback_ActsAsText(t *testing.T) {
	h := &fakeHandler{reply: &router.Reply{Text: "ok"}}
	b, fs := newTestBot(h)

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 7, UserName: "nick"},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 5}},
		Data:    "コスト",
	}
	b.handleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: cb})

	if fs.requests != 1 {
		t.Fatalf("callback should be acknowledged")
	}
	if len(h.seen) != 1 || h.seen[0].Text != "コスト" || h.seen[0].UserName != "nick" || h.seen[0].UserID != "tg:7" {
		t.Fatalf("unexpected event %+v", h.seen)
	}
	if len(fs.sent) != 1 || fs.sent[0].ChatID != 5 {
		t.Fatalf("unexpected sent %+v", fs.sent)
	}
}

func TestKeyboard(t *testing.T) {
	items := []router.QuickReply{
		{Label: "a", Text: "a"},
		{Label: "b", Text: "b"},
		{Label: "c", Text: "c"},
		{Label: "too long", Text: string(make([]byte, maxCallbackBytes+1))},
	}
	kb, ok := keyboard(items)
	if !ok {
		t.Fatalf("expected keyboard")
	}
	if len(kb.InlineKeyboard) != 2 || len(kb.InlineKeyboard[0]) != 2 || len(kb.InlineKeyboard[1]) != 1 {
		t.Fatalf("unexpected layout %+v", kb.InlineKeyboard)
	}
	if _, ok := keyboard(nil); ok {
		t.Fatalf("no items should give no keyboard")
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	h := &fakeHandler{reply: &router.Reply{Text: "r"}, called: make(chan struct{}, 1)}
	b, fs := newTestBot(h)
	src := &fakeUpdates{ch: make(chan tgbotapi.Update, 1)}
	b.updates = src
	src.ch <- tgbotapi.Update{Message: textMessage("x")}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	select {
	case <-h.called:
	case <-deadline:
		t.Fatal("update not processed")
	}
	cancel()
	select {
	case <-done:
	case <-deadline:
		t.Fatal("Start did not return after cancel")
	}
	if !src.stopped {
		t.Fatalf("updates should be stopped")
	}
	if len(fs.sent) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(fs.sent))
	}
}
