package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"line-chat-ai/internal/logging"
	"line-chat-ai/internal/metrics"
	"line-chat-ai/internal/session"
	"line-chat-ai/internal/transcript"
)

type ConversationSource interface {
	ActiveConversations() map[session.UserID]string
}

type Summarizer interface {
	Summarize(ctx context.Context, id string, c transcript.Completer, model string, maxTokens int) error
}

// SummaryRefresher regenerates the summary of every conversation that is
// currently active for some user.
type SummaryRefresher struct {
	Conversations ConversationSource
	Transcripts   Summarizer
	Completer     transcript.Completer
	Model         string
	MaxTokens     int
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

func (r *SummaryRefresher) Run(ctx context.Context) error {
	log := r.Logger
	if log == nil {
		log = logging.Discard()
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, id := range r.Conversations.ActiveConversations() {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var errs []error
	refreshed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		err := r.Transcripts.Summarize(ctx, id, r.Completer, r.Model, r.MaxTokens)
		switch {
		case err == nil:
			refreshed++
			r.Metrics.Summary("ok")
		case errors.Is(err, transcript.ErrEmptyTranscript), errors.Is(err, transcript.ErrNotFound):
			log.Debug("Summary skipped", logging.ConversationID, id, logging.InnerError, err)
		default:
			r.Metrics.Summary("error")
			log.Warn("Summary refresh failed", logging.ConversationID, id, logging.InnerError, err)
			errs = append(errs, fmt.Errorf("summarize %s: %w", id, err))
		}
	}

	log.Info("Summary refresh done", "conversations", len(ids), "refreshed", refreshed)
	return errors.Join(errs...)
}
