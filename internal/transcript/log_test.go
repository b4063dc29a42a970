package transcript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"line-chat-ai/internal/llm"
)

type fakeCompleter struct {
	resp llm.Response
	err  error
	got  llm.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	f.got = req
	return f.resp, f.err
}

func newLog(t *testing.T) (*Log, string) {
	t.Helper()
	dir := t.TempDir()
	l, err := New(filepath.Join(dir, "chatlog"), filepath.Join(dir, "summarylog"))
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	return l, dir
}

func fixedClock(ts time.Time) func() time.Time { return func() time.Time { return ts } }

func TestLog_CreateAppendRead(t *testing.T) {
	l, dir := newLog(t)
	l.now = fixedClock(time.Date(2025, 3, 4, 5, 6, 7, 0, time.Local))

	id, err := l.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != "20250304050607.txt" {
		t.Fatalf("unexpected id %q", id)
	}
	if _, err := os.Stat(filepath.Join(dir, "summarylog", id)); err != nil {
		t.Fatalf("summary file not created: %v", err)
	}

	if err := l.Append(id, "太郎", "こんにちは", "こんにちは！"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := l.Append(id, "太郎", "元気？", "元気です"); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := l.Read(id)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "[太郎]: こんにちは\n[gpt]: こんにちは！\n[太郎]: 元気？\n[gpt]: 元気です\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestLog_CreateCollisionBumpsSecond(t *testing.T) {
	l, _ := newLog(t)
	l.now = fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local))
	a, err := l.Create()
	if err != nil {
		t.Fatal(err)
	}
	b, err := l.Create()
	if err != nil {
		t.Fatal(err)
	}
	if a != "20250101000000.txt" || b != "20250101000001.txt" {
		t.Fatalf("ids %q %q", a, b)
	}
}

func TestLog_MissingFilesAreEmptyOrNotFound(t *testing.T) {
	l, _ := newLog(t)
	if _, err := l.Read("20240101000000.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if s := l.Summary("20240101000000.txt"); s != "" {
		t.Fatalf("missing summary must be empty, got %q", s)
	}
	if l.Exists("20240101000000.txt") {
		t.Fatalf("should not exist")
	}
}

func TestLog_RejectsTraversal(t *testing.T) {
	l, _ := newLog(t)
	for _, id := range []string{"../secret.txt", "a/20240101000000.txt", "20240101000000", "notes.txt", ""} {
		if ValidID(id) {
			t.Errorf("ValidID(%q) should be false", id)
		}
		if _, err := l.Read(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Read(%q): want ErrInvalidID, got %v", id, err)
		}
		if err := l.Append(id, "u", "m", "r"); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Append(%q): want ErrInvalidID, got %v", id, err)
		}
	}
}

func TestLog_ListRecentNewestFirst(t *testing.T) {
	l, dir := newLog(t)
	for _, ts := range []time.Time{
		time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local),
		time.Date(2025, 1, 1, 9, 0, 0, 0, time.Local),
		time.Date(2024, 12, 31, 23, 59, 59, 0, time.Local),
	} {
		l.now = fixedClock(ts)
		if _, err := l.Create(); err != nil {
			t.Fatal(err)
		}
	}
	// foreign files are ignored
	_ = os.WriteFile(filepath.Join(dir, "chatlog", "README.md"), []byte("x"), 0o644)

	ids, err := l.ListRecent(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"20250101090000.txt", "20241231235959.txt", "20240501100000.txt"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v want %v", ids, want)
	}
	ids, _ = l.ListRecent(2)
	if len(ids) != 2 || ids[0] != want[0] {
		t.Fatalf("limit ignored: %v", ids)
	}
}

func TestLog_Summarize(t *testing.T) {
	l, _ := newLog(t)
	id, _ := l.Create()

	fc := &fakeCompleter{resp: llm.Response{Content: "天気の話をした"}}
	if err := l.Summarize(context.Background(), id, fc, "gpt-4o", 500); !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("empty transcript: want ErrEmptyTranscript, got %v", err)
	}

	_ = l.Append(id, "u", "今日の天気は？", "晴れです")
	if err := l.Summarize(context.Background(), id, fc, "gpt-4o", 500); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if fc.got.Model != "gpt-4o" || fc.got.MaxTokens != 500 || len(fc.got.Messages) != 1 {
		t.Fatalf("request: %+v", fc.got)
	}
	if !strings.HasSuffix(fc.got.Messages[0].Content, "\n\n"+SummaryInstruction) || !strings.Contains(fc.got.Messages[0].Content, "今日の天気は？") {
		t.Fatalf("prompt: %q", fc.got.Messages[0].Content)
	}
	if s := l.Summary(id); s != "天気の話をした" {
		t.Fatalf("summary: %q", s)
	}

	fc.err = errors.New("boom")
	if err := l.Summarize(context.Background(), id, fc, "gpt-4o", 500); err == nil {
		t.Fatalf("completer error must propagate")
	}
	if s := l.Summary(id); s != "天気の話をした" {
		t.Fatalf("failed summarize must keep old summary, got %q", s)
	}
}

func TestDisplayTimeAndLabel(t *testing.T) {
	if got := DisplayTime("20250304050607.txt"); got != "2025年03月04日 05:06" {
		t.Fatalf("DisplayTime: %q", got)
	}
	if got := Label("20250304050607.txt"); got != "03/04 05:06" {
		t.Fatalf("Label: %q", got)
	}
	if got := Label("weird.txt"); got != "weird.txt" {
		t.Fatalf("fallback: %q", got)
	}
}
