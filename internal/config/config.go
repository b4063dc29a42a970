package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	// LINE Messaging API
	LineChannelAccessToken string `env:"LINE_CHANNEL_ACCESS_TOKEN"`
	LineChannelSecret      string `env:"LINE_CHANNEL_SECRET"`

	// Telegram (optional second transport)
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`

	// HTTP
	Port int `env:"PORT" envDefault:"8000"`

	// LLM settings
	LLMProvider       LLMProvider   `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"`
	OpenAIModel       string        `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	YandexOAuthToken  string        `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID    string        `env:"YANDEX_FOLDER_ID"`
	MaxTokens         int           `env:"MAX_TOKENS" envDefault:"1000"`
	Temperature       float32       `env:"TEMPERATURE" envDefault:"0.7"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"30s"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Prompts
	PersonaTemplatePath string `env:"PERSONA_TEMPLATE_PATH"`

	// Transcripts
	TranscriptsEnabled bool   `env:"TRANSCRIPTS_ENABLED" envDefault:"true"`
	ChatLogDir         string `env:"CHAT_LOG_DIR" envDefault:"chatlog"`
	SummaryLogDir      string `env:"SUMMARY_LOG_DIR" envDefault:"summarylog"`
	SummaryModel       string `env:"SUMMARY_MODEL" envDefault:"gpt-4o"`
	SummaryMaxTokens   int    `env:"SUMMARY_MAX_TOKENS" envDefault:"500"`
	SummaryCron        string `env:"SUMMARY_CRON"`

	// Cost report
	USDJPYRate float64 `env:"USD_JPY_RATE" envDefault:"150"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

var ErrNoTransport = errors.New("neither LINE credentials nor TELEGRAM_BOT_TOKEN are set")

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

func (c *Config) LineEnabled() bool {
	return c.LineChannelAccessToken != "" && c.LineChannelSecret != ""
}

func (c *Config) TelegramEnabled() bool { return c.TelegramBotToken != "" }

// Validate checks what the server needs to start. A missing LLM key is
// not an error: the bot then answers with a "not configured" notice.
func (c *Config) Validate() error {
	if !c.LineEnabled() && !c.TelegramEnabled() {
		return ErrNoTransport
	}
	if c.LLMProvider != ProviderOpenAI && c.LLMProvider != ProviderYandex {
		return fmt.Errorf("unknown llm provider: %s", c.LLMProvider)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}
