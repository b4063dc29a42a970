package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LINE_CHANNEL_ACCESS_TOKEN", "tok")
	t.Setenv("LINE_CHANNEL_SECRET", "sec")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8000 || cfg.OpenAIModel != "gpt-4o" || cfg.MaxTokens != 1000 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CompletionTimeout != 30*time.Second {
		t.Fatalf("timeout default: %v", cfg.CompletionTimeout)
	}
	if !cfg.TranscriptsEnabled || cfg.ChatLogDir != "chatlog" || cfg.SummaryLogDir != "summarylog" {
		t.Fatalf("transcript defaults: %+v", cfg)
	}
	if cfg.SummaryMaxTokens != 500 || cfg.USDJPYRate != 150 {
		t.Fatalf("summary/cost defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !cfg.LineEnabled() || cfg.TelegramEnabled() {
		t.Fatalf("transport flags wrong")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg")
	t.Setenv("LLM_PROVIDER", "yandex")
	t.Setenv("COMPLETION_TIMEOUT", "5s")
	t.Setenv("TRANSCRIPTS_ENABLED", "false")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLMProvider != ProviderYandex || cfg.CompletionTimeout != 5*time.Second || cfg.TranscriptsEnabled {
		t.Fatalf("overrides ignored: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("telegram-only config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{LLMProvider: ProviderOpenAI, Port: 8000}
	if err := cfg.Validate(); !errors.Is(err, ErrNoTransport) {
		t.Fatalf("want ErrNoTransport, got %v", err)
	}
	cfg.TelegramBotToken = "x"
	cfg.LLMProvider = "claude"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("unknown provider must fail")
	}
	cfg.LLMProvider = ProviderOpenAI
	cfg.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("bad port must fail")
	}
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatalf("bad int must fail")
	}
}
