package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"line-chat-ai/internal/config"
	"line-chat-ai/internal/line"
	"line-chat-ai/internal/llm"
	"line-chat-ai/internal/logging"
	"line-chat-ai/internal/metrics"
	"line-chat-ai/internal/pricing"
	"line-chat-ai/internal/prompt"
	"line-chat-ai/internal/router"
	"line-chat-ai/internal/scheduler"
	"line-chat-ai/internal/session"
	"line-chat-ai/internal/telegram"
	"line-chat-ai/internal/transcript"
)

type CLI struct {
	EnvFile string `name:"env-file" default:".env" help:"Path to a .env file loaded before the environment is parsed."`

	Serve     ServeCmd     `cmd:"" default:"1" help:"Run the webhook server (default)."`
	Chats     ChatsCmd     `cmd:"" help:"List recent conversation transcripts."`
	Summarize SummarizeCmd `cmd:"" help:"Regenerate the summary of one transcript."`
}

type app struct {
	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("bot"),
		kong.Description("LINE chat bot backed by a hosted LLM."),
		kong.UsageOnError(),
	)

	if err := godotenv.Load(cli.EnvFile); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	a := &app{
		cfg:     cfg,
		log:     logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat),
		metrics: metrics.New(),
	}
	kctx.FatalIfErrorf(kctx.Run(a))
}

func (a *app) gateway() (*llm.Gateway, error) {
	client, err := llm.NewFactory(a.cfg).CreateClient(string(a.cfg.LLMProvider), a.cfg.OpenAIModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	return llm.NewGateway(client, a.cfg.CompletionTimeout, a.log, a.metrics), nil
}

func (a *app) transcripts() (*transcript.Log, error) {
	return transcript.New(a.cfg.ChatLogDir, a.cfg.SummaryLogDir)
}

type ServeCmd struct{}

func (c *ServeCmd) Run(a *app) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	gw, err := a.gateway()
	if err != nil {
		return err
	}
	if !gw.Configured() {
		a.log.Warn("LLM credentials missing, chat replies will report it", logging.AiProvider, cfg.LLMProvider)
	}

	template, err := prompt.LoadTemplate(cfg.PersonaTemplatePath)
	if err != nil {
		a.log.Warn("Using built-in persona", logging.InnerError, err)
	}

	store := session.NewMemoryStore()
	deps := router.Deps{
		Store:     store,
		Builder:   prompt.NewBuilder(template, store),
		Completer: gw,
		Options: router.Options{
			Provider:         string(cfg.LLMProvider),
			Model:            cfg.OpenAIModel,
			MaxTokens:        cfg.MaxTokens,
			Temperature:      cfg.Temperature,
			SummaryModel:     cfg.SummaryModel,
			SummaryMaxTokens: cfg.SummaryMaxTokens,
			Prices:           pricing.ForModel(cfg.OpenAIModel),
			USDJPYRate:       cfg.USDJPYRate,
			APIKeyConfigured: gw.Configured(),
		},
		Logger:  a.log,
		Metrics: a.metrics,
	}

	var tlog *transcript.Log
	if cfg.TranscriptsEnabled {
		tlog, err = a.transcripts()
		if err != nil {
			return err
		}
		deps.Transcripts = tlog
	}
	rt := router.New(deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var webhook http.Handler
	if cfg.LineEnabled() {
		sdk, err := line.NewSDK(cfg.LineChannelAccessToken, cfg.LineChannelSecret)
		if err != nil {
			return err
		}
		webhook = line.NewWebhook(sdk, sdk, rt, a.log)
	}
	srv := line.NewServer(cfg.Port, line.NewMux(webhook, a.metrics.Handler()), a.log)

	if cfg.TelegramEnabled() {
		bot, err := telegram.New(cfg.TelegramBotToken, rt, a.log)
		if err != nil {
			return err
		}
		go bot.Start(ctx)
	}

	var sched *scheduler.Scheduler
	if tlog != nil && cfg.SummaryCron != "" {
		refresher := &scheduler.SummaryRefresher{
			Conversations: store,
			Transcripts:   tlog,
			Completer:     gw,
			Model:         cfg.SummaryModel,
			MaxTokens:     cfg.SummaryMaxTokens,
			Logger:        a.log,
			Metrics:       a.metrics,
		}
		sched = scheduler.New(cfg.SummaryCron, refresher.Run, a.log)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		a.log.Info("Shutting down")
		if err := srv.Stop(); err != nil {
			a.log.Error("HTTP server shutdown failed", logging.InnerError, err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}

type ChatsCmd struct {
	Limit int `default:"20" help:"Maximum number of transcripts to list."`
}

func (c *ChatsCmd) Run(a *app) error {
	tlog, err := a.transcripts()
	if err != nil {
		return err
	}
	ids, err := tlog.ListRecent(c.Limit)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("no transcripts")
		return nil
	}
	for _, id := range ids {
		summary := "-"
		if tlog.Summary(id) != "" {
			summary = "summary"
		}
		fmt.Printf("%s\t%s\t%s\n", id, transcript.DisplayTime(id), summary)
	}
	return nil
}

type SummarizeCmd struct {
	ID string `arg:"" help:"Transcript id, e.g. 20240101120000.txt."`
}

func (c *SummarizeCmd) Run(a *app) error {
	if !transcript.ValidID(c.ID) {
		return transcript.ErrInvalidID
	}
	gw, err := a.gateway()
	if err != nil {
		return err
	}
	tlog, err := a.transcripts()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tlog.Summarize(ctx, c.ID, gw, a.cfg.SummaryModel, a.cfg.SummaryMaxTokens); err != nil {
		if errors.Is(err, transcript.ErrEmptyTranscript) {
			return fmt.Errorf("%s: nothing to summarize", c.ID)
		}
		return err
	}
	fmt.Println(tlog.Summary(c.ID))
	return nil
}
