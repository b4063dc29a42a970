// Package tokens estimates prompt sizes with the o200k_base encoding used
// by the gpt-4o family.
package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"line-chat-ai/internal/llm"
)

const encodingName = "o200k_base"

// Counter counts tokens in a text.
type Counter func(text string) int

var (
	once sync.Once
	tkm  *tiktoken.Tiktoken
)

// Count uses tiktoken; the encoding is loaded on first use. If it cannot
// be loaded the estimate falls back to one token per rune.
func Count(text string) int {
	once.Do(func() {
		tkm, _ = tiktoken.GetEncoding(encodingName)
	})
	if tkm == nil {
		return utf8.RuneCountInString(text)
	}
	return len(tkm.Encode(text, nil, nil))
}

// Messages sums count over message contents.
func Messages(count Counter, msgs []llm.Message) int {
	if count == nil {
		count = Count
	}
	total := 0
	for _, m := range msgs {
		total += count(m.Content)
	}
	return total
}
