package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"line-chat-ai/internal/logging"
	"line-chat-ai/internal/metrics"
)

const DefaultTimeout = 30 * time.Second

// ErrorKind classifies completion failures for the caller's canned reply.
type ErrorKind string

const (
	KindNotConfigured ErrorKind = "not_configured"
	KindTimeout       ErrorKind = "timeout"
	KindUpstream      ErrorKind = "upstream"
	KindMalformed     ErrorKind = "malformed"
)

type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "completion " + string(e.Kind)
	}
	return fmt.Sprintf("completion %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a gateway error, or KindUpstream for
// anything else.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUpstream
}

// Gateway is the single boundary to the completion provider. It makes
// exactly one call per Complete, never retries and bounds every call
// with a timeout. A nil client means the provider key is missing.
type Gateway struct {
	client  Client
	timeout time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewGateway(client Client, timeout time.Duration, log *slog.Logger, m *metrics.Metrics) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Gateway{client: client, timeout: timeout, log: log, metrics: m}
}

func (g *Gateway) Configured() bool { return g.client != nil }

func (g *Gateway) Complete(ctx context.Context, req Request) (Response, error) {
	if g.client == nil {
		g.metrics.Completion(string(KindNotConfigured), 0)
		return Response{}, &Error{Kind: KindNotConfigured}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	resp, err := g.client.Generate(ctx, req)
	took := time.Since(started)

	if err != nil {
		kind := KindUpstream
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			kind = KindTimeout
		case errors.Is(err, ErrEmptyResponse):
			kind = KindMalformed
		}
		g.metrics.Completion(string(kind), took)
		g.log.Error("Completion failed",
			logging.ErrorKind, kind,
			logging.AiModel, req.Model,
			logging.ExecutionTime, took,
			logging.InnerError, err)
		return Response{}, &Error{Kind: kind, Err: err}
	}

	g.metrics.Completion("ok", took)
	g.metrics.Tokens(resp.UncachedPromptTokens(), resp.CachedPromptTokens, resp.CompletionTokens)
	g.log.Info("Completion succeeded",
		logging.AiModel, resp.Model,
		logging.AiTokensIn, resp.PromptTokens,
		logging.AiTokensCached, resp.CachedPromptTokens,
		logging.AiTokensOut, resp.CompletionTokens,
		logging.ExecutionTime, took)
	return resp, nil
}
