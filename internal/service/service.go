// Package service turns inbound chat updates into ledger transitions and
// chat output. It owns the order of collaborator calls around the expense
// state machine: store reads and writes inside one transaction per
// transition, chat I/O strictly outside it.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/commands"
	"github.com/mmynk/splitbot/internal/expense"
	"github.com/mmynk/splitbot/internal/metrics"
	"github.com/mmynk/splitbot/internal/models"
	"github.com/mmynk/splitbot/internal/storage"
)

// Fallbacks used when neither the message, the group nor the configuration
// names the expense or its action.
const (
	DefaultExpenseName = "expense"
	DefaultActionName  = "split"
)

// Button is one inline keyboard button. Data is sent back in the callback.
type Button struct {
	Text string
	Data string
}

// Message is a rendered chat message. Text is Telegram HTML.
type Message struct {
	Text     string
	Keyboard [][]Button
}

// Messenger is the chat platform.
type Messenger interface {
	// SendMessage posts msg to the chat and returns the new message id.
	SendMessage(ctx context.Context, chatID int64, msg Message) (int, error)
	// EditMessage replaces the text and keyboard of an existing message.
	EditMessage(ctx context.Context, chatID int64, messageID int, msg Message) error
	// AnswerCallback acknowledges a button press, optionally with a toast.
	AnswerCallback(ctx context.Context, callbackID, text string) error
	// ChatAdministrators returns the member ids administering the chat.
	ChatAdministrators(ctx context.Context, chatID int64) ([]int64, error)
}

// Renderer turns projections and command results into chat text.
type Renderer interface {
	Expense(p *Projection) Message
	Notice(p *Projection, notice expense.Notice, actor models.Member) string
	Answer(p *Projection) string
	Help() string
	BalancesLink(publicURL, groupUsername string) string
	CommandDone(cmd commands.Command) string
}

// Deduper remembers which platform updates were already handled.
type Deduper interface {
	// Claim reports whether the update id is new, marking it handled.
	Claim(updateID int) (bool, error)
	// Release forgets a claim so a redelivery is handled again.
	Release(updateID int) error
}

// Defaults are the process-wide fallbacks for new expenses.
type Defaults struct {
	Price       *decimal.Decimal
	ExpenseName string
	ActionName  string
}

// Config is the static configuration of the service.
type Config struct {
	// PublicURL is the base of the balances page, or empty.
	PublicURL string
	// AdminIDs are members treated as admins in every group.
	AdminIDs []int64
	Defaults Defaults
}

// Service handles inbound updates.
type Service struct {
	store     storage.Store
	messenger Messenger
	renderer  Renderer
	deduper   Deduper
	metrics   *metrics.Metrics
	cfg       Config
}

// Option configures optional collaborators.
type Option func(*Service)

// WithDeduper drops redelivered updates.
func WithDeduper(d Deduper) Option {
	return func(s *Service) { s.deduper = d }
}

// WithMetrics records update and transition counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a Service with the given collaborators.
func New(store storage.Store, messenger Messenger, renderer Renderer, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:     store,
		messenger: messenger,
		renderer:  renderer,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleUpdate processes one inbound update. A returned error means nothing
// was committed and the update may be delivered again; chat failures after
// a commit are logged instead.
func (s *Service) HandleUpdate(ctx context.Context, u Update) (*Outcome, error) {
	start := time.Now()

	claimed := false
	if s.deduper != nil && u.ID != 0 {
		fresh, err := s.deduper.Claim(u.ID)
		switch {
		case err != nil:
			slog.Warn("Dedupe claim failed", "update_id", u.ID, "error", err)
		case !fresh:
			slog.Info("Duplicate update dropped", "update_id", u.ID)
			s.metrics.Update(u.Kind.String(), OutcomeDuplicate.String(), time.Since(start).Seconds())
			return &Outcome{Kind: OutcomeDuplicate}, nil
		default:
			claimed = true
		}
	}

	var (
		out *Outcome
		err error
	)
	switch u.Kind {
	case UpdateMessage:
		out, err = s.handleMessage(ctx, u)
	case UpdateCallback:
		out, err = s.handleCallback(ctx, u)
	default:
		out = ignored()
	}

	if err != nil {
		if claimed {
			if rerr := s.deduper.Release(u.ID); rerr != nil {
				slog.Warn("Dedupe release failed", "update_id", u.ID, "error", rerr)
			}
		}
		s.metrics.Update(u.Kind.String(), "error", time.Since(start).Seconds())
		return nil, err
	}

	s.metrics.Update(u.Kind.String(), out.Kind.String(), time.Since(start).Seconds())
	return out, nil
}

func (s *Service) handleMessage(ctx context.Context, u Update) (*Outcome, error) {
	if u.Text == "" {
		return ignored(), nil
	}

	if cmd, ok := commands.ParseCommand(u.Text); ok {
		return s.handleCommand(ctx, u, cmd)
	}

	if inv, ok := commands.ParseInvite(u.Text); ok {
		return s.createExpense(ctx, u, inv)
	}

	slog.Debug("No keyword found", "group_id", u.Chat.ID)
	return ignored(), nil
}

// reply posts a plain message to the chat.
func (s *Service) reply(ctx context.Context, chatID int64, text string) {
	if _, err := s.messenger.SendMessage(ctx, chatID, Message{Text: text}); err != nil {
		slog.Error("SendMessage failed", "group_id", chatID, "error", err)
	}
}

// answer acknowledges a callback.
func (s *Service) answer(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}
	if err := s.messenger.AnswerCallback(ctx, callbackID, text); err != nil {
		slog.Error("AnswerCallback failed", "callback_id", callbackID, "error", err)
	}
}

// isAdmin reports whether the member administers the chat, either through
// static configuration or the chat's administrator list.
func (s *Service) isAdmin(ctx context.Context, chatID, memberID int64) bool {
	for _, id := range s.cfg.AdminIDs {
		if id == memberID {
			return true
		}
	}

	admins, err := s.messenger.ChatAdministrators(ctx, chatID)
	if err != nil {
		slog.Warn("ChatAdministrators failed", "group_id", chatID, "error", err)
		return false
	}
	for _, id := range admins {
		if id == memberID {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
