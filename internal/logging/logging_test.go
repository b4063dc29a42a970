package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_JSONAndText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "json").Info("hello", UserID, "u1")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json output expected: %v (%q)", err, buf.String())
	}
	if rec[UserID] != "u1" || rec["msg"] != "hello" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	buf.Reset()
	New(&buf, "error", "text").Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at error level: %q", buf.String())
	}
	New(&buf, "debug", "TEXT").Debug("kept")
	if !strings.Contains(buf.String(), "msg=kept") {
		t.Fatalf("text handler expected: %q", buf.String())
	}
}
