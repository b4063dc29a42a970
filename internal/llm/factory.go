package llm

import (
	"fmt"
	"strings"

	"line-chat-ai/internal/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderYandex = "yandex"
)

// Factory creates LLM clients with consistent logic
type Factory struct {
	OpenaiAPIKey       string
	OpenaiBaseURL      string
	OpenRouterReferrer string
	OpenRouterTitle    string
	YandexOAuthToken   string
	YandexFolderID     string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		OpenaiAPIKey:       cfg.OpenAIAPIKey,
		OpenaiBaseURL:      cfg.OpenAIBaseURL,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
	}
}

// Configured reports whether credentials for provider are present.
func (f *Factory) Configured(provider string) bool {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return f.OpenaiAPIKey != ""
	case ProviderYandex:
		return f.YandexOAuthToken != "" && f.YandexFolderID != ""
	default:
		return false
	}
}

// CreateClient returns a nil client and no error when the provider has
// no credentials; the gateway reports such calls as not configured.
func (f *Factory) CreateClient(provider, model string) (Client, error) {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		if !f.Configured(provider) {
			return nil, nil
		}
		return NewOpenAI(f.OpenaiAPIKey, f.OpenaiBaseURL, model, f.OpenRouterReferrer, f.OpenRouterTitle), nil
	case ProviderYandex:
		if !f.Configured(provider) {
			return nil, nil
		}
		return NewYandex(f.YandexOAuthToken, f.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
