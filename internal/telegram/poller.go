package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmynk/splitbot/internal/service"
)

// Handler processes normalized updates.
type Handler interface {
	HandleUpdate(ctx context.Context, u service.Update) (*service.Outcome, error)
}

// Poller receives updates by long polling and hands them to a Handler one
// at a time.
type Poller struct {
	bot     *tgbotapi.BotAPI
	handler Handler
	timeout int
}

// NewPoller creates a Poller. timeout is the long polling timeout in seconds.
func NewPoller(bot *tgbotapi.BotAPI, handler Handler, timeout int) *Poller {
	return &Poller{bot: bot, handler: handler, timeout: timeout}
}

// Run polls until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout
	cfg.AllowedUpdates = []string{"message", "callback_query"}

	updates := p.bot.GetUpdatesChan(cfg)
	defer p.bot.StopReceivingUpdates()

	slog.Info("Polling for updates", "timeout_s", p.timeout)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Polling stopped")
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			Dispatch(ctx, p.handler, upd)
		}
	}
}

// Dispatch normalizes and handles one update, logging failures.
func Dispatch(ctx context.Context, h Handler, upd tgbotapi.Update) (*service.Outcome, error) {
	u, ok := Normalize(upd)
	if !ok {
		slog.Debug("Update skipped", "update_id", upd.UpdateID)
		return nil, nil
	}

	out, err := h.HandleUpdate(ctx, u)
	if err != nil {
		slog.Error("HandleUpdate failed", "update_id", upd.UpdateID, "kind", u.Kind.String(), "error", err)
		return nil, err
	}
	slog.Debug("Update handled", "update_id", upd.UpdateID, "outcome", out.Kind.String())
	return out, nil
}
