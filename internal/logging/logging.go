// Package logging builds the process-wide slog logger and holds the
// attribute keys shared by every component.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

const (
	UserID         = "user_id"
	UserName       = "user_name"
	ConversationID = "conversation_id"
	RequestID      = "request_id"
	Command        = "command"
	EventKind      = "event_kind"
	Transport      = "transport"
	AiProvider     = "ai_provider"
	AiModel        = "ai_model"
	AiTokensIn     = "ai_tokens_in"
	AiTokensCached = "ai_tokens_cached"
	AiTokensOut    = "ai_tokens_out"
	ErrorKind      = "error_kind"
	ExecutionTime  = "exe_time"
	InnerError     = "inner_error"
)

// New returns a logger writing to w. format is "json" or "text";
// unknown levels fall back to info.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard is a logger that drops everything, handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
