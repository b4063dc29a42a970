package prompt

import (
	"fmt"
	"os"
	"strings"

	"line-chat-ai/internal/llm"
	"line-chat-ai/internal/session"
)

// Placeholder marks where the raw user message goes in a persona template.
const Placeholder = "{message}"

// DefaultPersona is applied once, to the first turn of a conversation.
const DefaultPersona = `あなたは親切で誠実なアシスタント「LineChatAI」です。
以下のルールに従って回答してください。
- 日本語で、丁寧かつ簡潔に答える
- LINEで読みやすいよう、長い段落や表は避ける
- わからないことは推測せず、わからないと伝える

ユーザーからのメッセージ:
{message}`

// SummaryHeading introduces a transcript summary appended to a message.
const SummaryHeading = "過去のやり取り"

type HistoryReader interface {
	History(user session.UserID) []llm.Message
}

// Builder assembles the message list for one completion request.
type Builder struct {
	template string
	history  HistoryReader
}

func NewBuilder(template string, history HistoryReader) *Builder {
	if strings.TrimSpace(template) == "" {
		template = DefaultPersona
	}
	return &Builder{template: template, history: history}
}

// LoadTemplate reads a persona template file; an empty path or an
// unreadable file yields the built-in persona.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return DefaultPersona, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultPersona, fmt.Errorf("read persona template %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return DefaultPersona, nil
	}
	return string(data), nil
}

// Wrap substitutes text into the template.
func (b *Builder) Wrap(text string) string {
	if strings.Contains(b.template, Placeholder) {
		return strings.Replace(b.template, Placeholder, text, 1)
	}
	return strings.TrimRight(b.template, "\n") + "\n\n" + text
}

func (b *Builder) Build(user session.UserID, text string) []llm.Message {
	return b.BuildWithSummary(user, text, "")
}

// BuildWithSummary templates the first turn of a conversation and passes
// later turns through raw after the stored history. A summary rides on
// the first turn only; afterwards the history already carries it.
func (b *Builder) BuildWithSummary(user session.UserID, text, summary string) []llm.Message {
	history := b.history.History(user)
	if len(history) == 0 {
		content := text
		if s := strings.TrimSpace(summary); s != "" {
			content += "\n\n" + SummaryHeading + "\n" + s
		}
		return []llm.Message{{Role: llm.RoleUser, Content: b.Wrap(content)}}
	}
	out := make([]llm.Message, 0, len(history)+1)
	out = append(out, history...)
	return append(out, llm.Message{Role: llm.RoleUser, Content: text})
}
