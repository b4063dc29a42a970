package scheduler

import (
	"context"
	"errors"
	"testing"

	"line-chat-ai/internal/session"
	"line-chat-ai/internal/transcript"
)

type fakeSource map[session.UserID]string

func (f fakeSource) ActiveConversations() map[session.UserID]string { return f }

type fakeSummarizer struct {
	calls []string
	errs  map[string]error
}

func (f *fakeSummarizer) Summarize(_ context.Context, id string, _ transcript.Completer, model string, maxTokens int) error {
	f.calls = append(f.calls, id)
	return f.errs[id]
}

func TestSummaryRefresherDedupesAndSkipsEmpty(t *testing.T) {
	fs := &fakeSummarizer{errs: map[string]error{
		"20240101000002.txt": transcript.ErrEmptyTranscript,
	}}
	r := &SummaryRefresher{
		Conversations: fakeSource{
			"u1": "20240101000001.txt",
			"u2": "20240101000001.txt",
			"u3": "20240101000002.txt",
		},
		Transcripts: fs,
		Model:       "gpt-4o",
		MaxTokens:   500,
	}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs.calls) != 2 || fs.calls[0] != "20240101000001.txt" || fs.calls[1] != "20240101000002.txt" {
		t.Fatalf("unexpected calls %v", fs.calls)
	}
}

func TestSummaryRefresherReportsFailures(t *testing.T) {
	boom := errors.New("boom")
	fs := &fakeSummarizer{errs: map[string]error{"a.txt": boom}}
	r := &SummaryRefresher{
		Conversations: fakeSource{"u1": "a.txt", "u2": "b.txt"},
		Transcripts:   fs,
	}

	err := r.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}
	if len(fs.calls) != 2 {
		t.Fatalf("a failure must not stop the others: %v", fs.calls)
	}
}

func TestSchedulerDisabledWithoutSpec(t *testing.T) {
	s := New("", func(context.Context) error { return nil }, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.IsRunning() {
		t.Fatalf("scheduler without schedule must not run")
	}
	s.Stop()
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := New("not a cron", func(context.Context) error { return nil }, nil)
	if err := s.Start(); err == nil {
		t.Fatalf("expected error for bad schedule")
	}
	s.Stop()
}

func TestSchedulerRunOnce(t *testing.T) {
	ran := 0
	s := New("@every 1h", func(ctx context.Context) error {
		ran++
		return ctx.Err()
	}, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatalf("expected registered entry")
	}
	s.RunOnce()
	s.Stop()
	if ran != 1 {
		t.Fatalf("expected one run, got %d", ran)
	}
}
