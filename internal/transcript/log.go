// Package transcript keeps one plain-text log per conversation plus a
// model-written summary of it, in two parallel directories.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"line-chat-ai/internal/llm"
)

const (
	Ext          = ".txt"
	idLayout     = "20060102150405"
	displayShort = "01/02 15:04"
	displayLong  = "2006年01月02日 15:04"

	// AssistantName labels model replies in a transcript.
	AssistantName = "gpt"
	// SummaryInstruction is appended to the transcript when summarizing.
	SummaryInstruction = "1000文字以内に文字で要約して"
)

var (
	ErrNotFound        = errors.New("conversation not found")
	ErrInvalidID       = errors.New("invalid conversation id")
	ErrEmptyTranscript = errors.New("transcript is empty")
)

type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
}

type Log struct {
	chatDir    string
	summaryDir string
	mu         sync.Mutex
	now        func() time.Time
}

func New(chatDir, summaryDir string) (*Log, error) {
	for _, dir := range []string{chatDir, summaryDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to ensure transcript dir: %w", err)
		}
	}
	return &Log{chatDir: chatDir, summaryDir: summaryDir, now: time.Now}, nil
}

// ValidID accepts only bare timestamp file names, so ids coming from
// chat text can never escape the log directories.
func ValidID(id string) bool {
	if !strings.HasSuffix(id, Ext) || filepath.Base(id) != id {
		return false
	}
	_, err := time.Parse(idLayout, strings.TrimSuffix(id, Ext))
	return err == nil
}

func parseID(id string) (time.Time, bool) {
	ts, err := time.Parse(idLayout, strings.TrimSuffix(id, Ext))
	return ts, err == nil
}

// DisplayTime renders an id as "2006年01月02日 15:04".
func DisplayTime(id string) string {
	if ts, ok := parseID(id); ok {
		return ts.Format(displayLong)
	}
	return id
}

// Label renders an id as a short quick-reply label.
func Label(id string) string {
	if ts, ok := parseID(id); ok {
		return ts.Format(displayShort)
	}
	return id
}

// Create starts a new empty transcript and summary. When the timestamp is
// taken, the next free second is used so ids stay unique and sortable.
func (l *Log) Create() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := l.now()
	for attempt := 0; attempt < 60; attempt++ {
		id := ts.Format(idLayout) + Ext
		f, err := os.OpenFile(filepath.Join(l.chatDir, id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			ts = ts.Add(time.Second)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create transcript: %w", err)
		}
		_ = f.Close()
		if err := os.WriteFile(filepath.Join(l.summaryDir, id), nil, 0o644); err != nil {
			return "", fmt.Errorf("create summary: %w", err)
		}
		return id, nil
	}
	return "", fmt.Errorf("create transcript: no free id near %s", l.now().Format(idLayout))
}

func (l *Log) Exists(id string) bool {
	if !ValidID(id) {
		return false
	}
	_, err := os.Stat(filepath.Join(l.chatDir, id))
	return err == nil
}

// Append records one exchange.
func (l *Log) Append(id, userName, userMessage, reply string) error {
	if !ValidID(id) {
		return ErrInvalidID
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(filepath.Join(l.chatDir, id), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open append: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	if _, err := fmt.Fprintf(f, "[%s]: %s\n[%s]: %s\n", userName, userMessage, AssistantName, reply); err != nil {
		return fmt.Errorf("write append: %w", err)
	}
	return nil
}

func (l *Log) Read(id string) (string, error) {
	if !ValidID(id) {
		return "", ErrInvalidID
	}
	data, err := os.ReadFile(filepath.Join(l.chatDir, id))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), nil
}

// Summary returns the stored summary; missing or unreadable is "".
func (l *Log) Summary(id string) string {
	if !ValidID(id) {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(l.summaryDir, id))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Summarize condenses the transcript with one completion call and
// overwrites the summary file.
func (l *Log) Summarize(ctx context.Context, id string, c Completer, model string, maxTokens int) error {
	content, err := l.Read(id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyTranscript
	}
	resp, err := c.Complete(ctx, llm.Request{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: content + "\n\n" + SummaryInstruction}},
		Model:     model,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return fmt.Errorf("summarize %s: %w", id, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.WriteFile(filepath.Join(l.summaryDir, id), []byte(resp.Content), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// ListRecent returns up to limit ids, newest first; limit <= 0 means all.
func (l *Log) ListRecent(limit int) ([]string, error) {
	entries, err := os.ReadDir(l.chatDir)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !ValidID(e.Name()) {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
