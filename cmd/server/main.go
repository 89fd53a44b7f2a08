package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmynk/splitbot/internal/config"
	"github.com/mmynk/splitbot/internal/dedupe"
	"github.com/mmynk/splitbot/internal/metrics"
	"github.com/mmynk/splitbot/internal/presenter"
	"github.com/mmynk/splitbot/internal/server"
	"github.com/mmynk/splitbot/internal/service"
	"github.com/mmynk/splitbot/internal/storage/sqlstore"
	"github.com/mmynk/splitbot/internal/telegram"
	"github.com/mmynk/splitbot/pkg/logging"
)

// dedupeRetention is how long handled update ids are remembered. Telegram
// gives up redelivering well before that.
const dedupeRetention = 7 * 24 * time.Hour

var cli struct {
	config.Config `embed:""`

	Serve servecmd `cmd:"" help:"Receive updates through a webhook and serve the balances page."`
	Poll  pollcmd  `cmd:"" help:"Receive updates by long polling (local development)."`
}

type servecmd struct{}

func (c *servecmd) Run(cfg *config.Config) error {
	a, err := setup(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if url := cfg.WebhookURL(); url != "" {
		if err := a.client.SetWebhook(url); err != nil {
			return err
		}
		slog.Info("Webhook registered", "url", url)
	} else {
		slog.Warn("No public url set up, webhook not registered")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(a.svc, a.svc, a.metrics).ListenAndServe(ctx, cfg.ListenAddr)
}

type pollcmd struct {
	Timeout int `default:"60" help:"Long polling timeout in seconds."`
}

func (c *pollcmd) Run(cfg *config.Config) error {
	a, err := setup(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Polling and webhooks are mutually exclusive on the Bot API.
	if err := a.client.DeleteWebhook(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The balances page still needs an HTTP server.
	go func() {
		if err := server.New(a.svc, a.svc, a.metrics).ListenAndServe(ctx, cfg.ListenAddr); err != nil {
			slog.Error("HTTP server failed", "error", err)
		}
	}()

	err = telegram.NewPoller(a.bot, a.svc, c.Timeout).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type app struct {
	svc     *service.Service
	client  *telegram.Client
	bot     *tgbotapi.BotAPI
	metrics *metrics.Metrics
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("Close failed", "error", err)
		}
	}
}

func setup(cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{metrics: metrics.New()}

	driver, source := cfg.DataSource()
	store, err := sqlstore.New(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	slog.Info("Storage initialized", "driver", driver)

	opts := []service.Option{service.WithMetrics(a.metrics)}
	if cfg.DedupePath != "" {
		d, err := dedupe.Open(cfg.DedupePath)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, d.Close)
		if n, err := d.Prune(dedupeRetention); err != nil {
			slog.Warn("Dedupe prune failed", "error", err)
		} else if n > 0 {
			slog.Info("Dedupe pruned", "removed", n)
		}
		opts = append(opts, service.WithDeduper(d))
	}

	client, bot, err := telegram.NewClient(cfg.TelegramToken)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := client.RegisterCommands(); err != nil {
		slog.Warn("RegisterCommands failed", "error", err)
	}
	a.client = client
	a.bot = bot

	a.svc = service.New(store, client, presenter.New(), cfg.ServiceConfig(), opts...)
	return a, nil
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("splitbot"),
		kong.Description("Telegram bot that splits group expenses."),
		kong.Vars(config.Vars()),
		kong.UsageOnError(),
	)

	logging.Configure(cli.LogLevel, cli.LogFormat)

	err := ctx.Run(&cli.Config)
	ctx.FatalIfErrorf(err)
}
