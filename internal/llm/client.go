package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role    string
	Content string
}

// Request carries one completion call. Zero Model falls back to the
// client's default model, zero MaxTokens leaves the provider default.
type Request struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float32
}

type Response struct {
	Content            string
	Model              string
	PromptTokens       int
	CachedPromptTokens int
	CompletionTokens   int
	TotalTokens        int
}

// UncachedPromptTokens is the part of the prompt billed at the full input rate.
func (r Response) UncachedPromptTokens() int {
	if n := r.PromptTokens - r.CachedPromptTokens; n > 0 {
		return n
	}
	return 0
}

type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
