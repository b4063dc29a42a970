// Package router decides what to do with one inbound message: run a
// command against the session store or relay the text to the model.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"line-chat-ai/internal/command"
	"line-chat-ai/internal/llm"
	"line-chat-ai/internal/logging"
	"line-chat-ai/internal/metrics"
	"line-chat-ai/internal/pricing"
	"line-chat-ai/internal/prompt"
	"line-chat-ai/internal/session"
	"line-chat-ai/internal/tokens"
	"line-chat-ai/internal/transcript"
)

type EventKind int

const (
	EventMessage EventKind = iota
	EventFollow
)

func (k EventKind) String() string {
	if k == EventFollow {
		return "follow"
	}
	return "message"
}

// Event is a platform-neutral inbound event.
type Event struct {
	Kind     EventKind
	UserID   session.UserID
	UserName string
	Text     string
}

type QuickReply struct {
	Label string
	Text  string
}

type Reply struct {
	Text         string
	QuickReplies []QuickReply
}

type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Transcripts is the file-backed conversation log.
type Transcripts interface {
	Create() (string, error)
	Exists(id string) bool
	Append(id, userName, userMessage, reply string) error
	Read(id string) (string, error)
	Summary(id string) string
	Summarize(ctx context.Context, id string, c transcript.Completer, model string, maxTokens int) error
	ListRecent(limit int) ([]string, error)
}

type Options struct {
	Provider         string
	Model            string
	MaxTokens        int
	Temperature      float32
	SummaryModel     string
	SummaryMaxTokens int
	Prices           pricing.Table
	USDJPYRate       float64
	APIKeyConfigured bool
}

type Deps struct {
	Store     session.Store
	Builder   *prompt.Builder
	Completer Completer
	// Transcripts is nil when the file-backed log is disabled.
	Transcripts Transcripts
	Options     Options
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	// CountTokens defaults to tokens.Count.
	CountTokens tokens.Counter
}

type Router struct {
	store       session.Store
	builder     *prompt.Builder
	completer   Completer
	transcripts Transcripts
	opts        Options
	log         *slog.Logger
	metrics     *metrics.Metrics
	countTokens func([]llm.Message) int
}

func New(d Deps) *Router {
	log := d.Logger
	if log == nil {
		log = logging.Discard()
	}
	count := d.CountTokens
	if count == nil {
		count = tokens.Count
	}
	builder := d.Builder
	if builder == nil {
		builder = prompt.NewBuilder("", d.Store)
	}
	return &Router{
		store:       d.Store,
		builder:     builder,
		completer:   d.Completer,
		transcripts: d.Transcripts,
		opts:        d.Options,
		log:         log,
		metrics:     d.Metrics,
		countTokens: func(msgs []llm.Message) int { return tokens.Messages(count, msgs) },
	}
}

// Handle processes one event. A nil reply means stay silent. Requests of
// the same user are serialized for their whole duration.
func (r *Router) Handle(ctx context.Context, ev Event) *Reply {
	r.metrics.Event(ev.Kind.String())
	unlock := r.store.Lock(ev.UserID)
	defer unlock()

	if ev.Kind == EventFollow {
		return &Reply{Text: textWelcome, QuickReplies: r.mainMenu()}
	}

	cmd := command.Parse(ev.Text)
	r.metrics.Command(cmd.Kind.String())
	log := r.log.With(logging.UserID, ev.UserID, logging.Command, cmd.Kind.String())
	log.Debug("Message routed")

	switch cmd.Kind {
	case command.On:
		r.store.SetEnabled(ev.UserID, true)
		return &Reply{Text: textChatOn}
	case command.Off:
		r.store.SetEnabled(ev.UserID, false)
		return &Reply{Text: textChatOff}
	case command.Clear:
		n := r.store.Clear(ev.UserID)
		return &Reply{Text: fmt.Sprintf(textClearedFmt, n)}
	case command.CostReport:
		return &Reply{Text: r.costText(ev.UserID)}
	case command.CostReset:
		r.store.ResetUsage(ev.UserID)
		return &Reply{Text: textCostReset}
	case command.Menu:
		return &Reply{Text: r.statusText(ev.UserID), QuickReplies: r.mainMenu()}
	case command.Debug:
		return &Reply{Text: r.debugText(ev.UserID)}
	case command.NewChat:
		return r.newChat(log, ev)
	case command.HistoryList:
		return r.historyList(log)
	case command.HistorySelect:
		return r.historySelect(log, ev, cmd.Arg)
	case command.Summarize:
		return r.summarize(ctx, log, ev)
	case command.Chat:
		return r.chat(ctx, log, ev)
	}
	return nil
}

// failureText is the single place completion errors become user text.
func failureText(err error) string {
	if llm.KindOf(err) == llm.KindNotConfigured {
		return textNotConfigured
	}
	return textFallback
}

// chat relays text to the model. Nothing is recorded when the
// completion fails.
func (r *Router) chat(ctx context.Context, log *slog.Logger, ev Event) *Reply {
	if !r.store.Enabled(ev.UserID) {
		return nil
	}

	var conversation, summary string
	if r.transcripts != nil {
		if id, ok := r.store.ActiveConversation(ev.UserID); ok {
			conversation = id
			summary = r.transcripts.Summary(id)
		}
	}

	msgs := r.builder.BuildWithSummary(ev.UserID, ev.Text, summary)
	resp, err := r.completer.Complete(ctx, llm.Request{
		Messages:    msgs,
		Model:       r.opts.Model,
		MaxTokens:   r.opts.MaxTokens,
		Temperature: r.opts.Temperature,
	})
	if err != nil {
		log.Warn("Completion failed, replying fallback", logging.ErrorKind, llm.KindOf(err), logging.InnerError, err)
		return &Reply{Text: failureText(err)}
	}

	r.store.Append(ev.UserID, msgs[len(msgs)-1], llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
	r.store.RecordUsage(ev.UserID, session.Usage{
		InputTokens:       int64(resp.UncachedPromptTokens()),
		CachedInputTokens: int64(resp.CachedPromptTokens),
		OutputTokens:      int64(resp.CompletionTokens),
	})

	if conversation != "" {
		name := strings.TrimSpace(ev.UserName)
		if name == "" {
			name = defaultUserName
		}
		if err := r.transcripts.Append(conversation, name, ev.Text, resp.Content); err != nil {
			log.Error("Transcript append failed", logging.ConversationID, conversation, logging.InnerError, err)
		}
	}
	return &Reply{Text: resp.Content}
}

func (r *Router) newChat(log *slog.Logger, ev Event) *Reply {
	if r.transcripts == nil {
		return &Reply{Text: textNoTranscripts}
	}
	id, err := r.transcripts.Create()
	if err != nil {
		log.Error("Transcript create failed", logging.InnerError, err)
		return &Reply{Text: textNewChatFailed}
	}
	r.store.SetActiveConversation(ev.UserID, id)
	r.store.Clear(ev.UserID)
	log.Info("Conversation started", logging.ConversationID, id)

	text := fmt.Sprintf(textNewChatFmt, transcript.DisplayTime(id))
	if !r.store.Enabled(ev.UserID) {
		text += textChatIsOffHint
	}
	return &Reply{Text: text}
}

func (r *Router) historyList(log *slog.Logger) *Reply {
	if r.transcripts == nil {
		return &Reply{Text: textNoTranscripts}
	}
	ids, err := r.transcripts.ListRecent(historyMenuLimit)
	if err != nil {
		log.Error("Transcript list failed", logging.InnerError, err)
	}
	if len(ids) == 0 {
		return &Reply{Text: textHistoryNone, QuickReplies: r.mainMenu()}
	}
	return &Reply{Text: textHistoryPick, QuickReplies: historyMenu(ids)}
}

func (r *Router) historySelect(log *slog.Logger, ev Event, id string) *Reply {
	if r.transcripts == nil {
		return &Reply{Text: textNoTranscripts}
	}
	if !transcript.ValidID(id) || !r.transcripts.Exists(id) {
		return &Reply{Text: textHistoryMissing}
	}
	content, err := r.transcripts.Read(id)
	if err != nil {
		log.Warn("Transcript read failed", logging.ConversationID, id, logging.InnerError, err)
		return &Reply{Text: textHistoryMissing}
	}

	r.store.SetActiveConversation(ev.UserID, id)
	r.store.Clear(ev.UserID)
	log.Info("Conversation resumed", logging.ConversationID, id)

	when := transcript.DisplayTime(id)
	if strings.TrimSpace(content) == "" {
		return &Reply{Text: fmt.Sprintf(textHistoryEmpty, when)}
	}
	return &Reply{Text: fmt.Sprintf(textHistoryFmt, when, previewTail(content))}
}

// summarize replaces raw history replay with the fresh summary: the
// in-memory history is dropped so the next turn carries the summary.
func (r *Router) summarize(ctx context.Context, log *slog.Logger, ev Event) *Reply {
	if r.transcripts == nil {
		return &Reply{Text: textNoTranscripts}
	}
	id, ok := r.store.ActiveConversation(ev.UserID)
	if !ok {
		return &Reply{Text: textNoActiveChat}
	}
	if err := r.transcripts.Summarize(ctx, id, r.completer, r.opts.SummaryModel, r.opts.SummaryMaxTokens); err != nil {
		r.metrics.Summary("error")
		log.Warn("Summary failed", logging.ConversationID, id, logging.InnerError, err)
		return &Reply{Text: textSummaryFailed}
	}
	r.metrics.Summary("ok")
	r.store.Clear(ev.UserID)
	return &Reply{Text: textSummaryDone}
}
