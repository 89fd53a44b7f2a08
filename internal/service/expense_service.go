package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/calculator"
	"github.com/mmynk/splitbot/internal/commands"
	"github.com/mmynk/splitbot/internal/expense"
	"github.com/mmynk/splitbot/internal/models"
	"github.com/mmynk/splitbot/internal/storage"
)

// createExpense posts a new expense for the invite. Price, name and action
// are resolved once here: explicit value, then group default, then the
// configured default.
func (s *Service) createExpense(ctx context.Context, u Update, inv commands.Invite) (*Outcome, error) {
	slog.Info("CreateExpense request received",
		"group_id", u.Chat.ID,
		"member_id", u.From.ID,
	)

	if err := s.store.UpsertGroup(ctx, u.Chat); err != nil {
		slog.Error("UpsertGroup failed", "group_id", u.Chat.ID, "error", err)
		return nil, fmt.Errorf("failed to upsert group: %w", err)
	}
	if err := s.store.UpsertMember(ctx, u.Chat.ID, u.From); err != nil {
		slog.Error("UpsertMember failed", "member_id", u.From.ID, "error", err)
		return nil, fmt.Errorf("failed to upsert member: %w", err)
	}

	defaults, err := s.store.GetGroupDefaults(ctx, u.Chat.ID)
	if err != nil {
		slog.Error("GetGroupDefaults failed", "group_id", u.Chat.ID, "error", err)
		return nil, fmt.Errorf("failed to get group defaults: %w", err)
	}

	price, ok := resolvePrice(inv.Price, defaults.Price, s.cfg.Defaults.Price)
	if !ok {
		slog.Info("No price found", "group_id", u.Chat.ID)
		return ignored(), nil
	}

	balance, err := s.store.GetMemberBalance(ctx, u.From.ID, u.Chat.ID)
	if err != nil {
		slog.Error("GetMemberBalance failed", "member_id", u.From.ID, "error", err)
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	// The creator starts as the only participant and as the payer.
	creator := u.From
	e := &models.Expense{
		GroupID:      u.Chat.ID,
		Price:        price,
		Name:         firstNonEmpty(inv.Name, defaults.ExpenseName, s.cfg.Defaults.ExpenseName, DefaultExpenseName),
		ActionName:   firstNonEmpty(defaults.ActionName, s.cfg.Defaults.ActionName, DefaultActionName),
		CreatedBy:    creator,
		Participants: []models.Participant{{Member: creator, Balance: balance}},
		Payer:        &creator,
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateExpense(ctx, e); err != nil {
		slog.Error("CreateExpense failed", "group_id", u.Chat.ID, "error", err)
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	slog.Info("Expense created",
		"expense_id", e.ID,
		"group_id", e.GroupID,
		"price", e.Price.String(),
		"name", e.Name,
	)

	p := Project(e)
	messageID, err := s.messenger.SendMessage(ctx, u.Chat.ID, s.renderer.Expense(p))
	if err != nil {
		// The expense exists but has no message to press buttons on.
		slog.Error("SendMessage failed", "expense_id", e.ID, "error", err)
		return &Outcome{Kind: OutcomeCreated, Projection: p}, nil
	}

	if err := s.store.SetExpenseMessageID(ctx, e.ID, messageID); err != nil {
		slog.Error("SetExpenseMessageID failed", "expense_id", e.ID, "message_id", messageID, "error", err)
		return &Outcome{Kind: OutcomeCreated, Projection: p}, nil
	}
	p.MessageID = messageID

	return &Outcome{Kind: OutcomeCreated, Projection: p}, nil
}

// resolvePrice returns the first positive candidate.
func resolvePrice(candidates ...*decimal.Decimal) (decimal.Decimal, bool) {
	for _, c := range candidates {
		if c != nil && c.IsPositive() {
			return *c, true
		}
	}
	return decimal.Zero, false
}

// handleCallback applies a button press to the expense rendered by the
// pressed message.
func (s *Service) handleCallback(ctx context.Context, u Update) (*Outcome, error) {
	action := expense.ParseAction(u.Data)
	slog.Info("Callback received",
		"group_id", u.Chat.ID,
		"message_id", u.MessageID,
		"member_id", u.From.ID,
		"action", action.String(),
	)

	if action == expense.ActionUnknown {
		slog.Warn("Unknown action", "data", u.Data)
		s.answer(ctx, u.CallbackID, "")
		return ignored(), nil
	}

	if err := s.store.UpsertMember(ctx, u.Chat.ID, u.From); err != nil {
		slog.Error("UpsertMember failed", "member_id", u.From.ID, "error", err)
		return nil, fmt.Errorf("failed to upsert member: %w", err)
	}

	// Read once outside the transaction to decide whether the admin list is
	// needed. The creator never changes, so the decision holds under lock.
	current, err := s.store.GetExpense(ctx, u.Chat.ID, u.MessageID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Warn("Expense not found", "group_id", u.Chat.ID, "message_id", u.MessageID)
		s.answer(ctx, u.CallbackID, "")
		return ignored(), nil
	}
	if err != nil {
		slog.Error("GetExpense failed", "group_id", u.Chat.ID, "message_id", u.MessageID, "error", err)
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	actor := expense.Actor{ID: u.From.ID}
	if needsAdminCheck(action, current, u.From.ID) {
		actor.Admin = s.isAdmin(ctx, u.Chat.ID, u.From.ID)
	}

	var (
		result   expense.Result
		updated  *models.Expense
		adjusted int
	)
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		locked, err := tx.LockExpense(ctx, u.Chat.ID, u.MessageID)
		if err != nil {
			return err
		}

		result, err = expense.Apply(ctx, tx, locked, action, actor)
		if err != nil || result.Rejected() {
			return err
		}
		if action == expense.ActionFinish || action == expense.ActionEdit {
			adjusted = len(calculator.ComputeDeltas(locked.Price, locked.ParticipantIDs(), locked.PayerID(), locked.IsFree))
		}

		// Read back after every balance write and the flag flip.
		updated, err = tx.GetExpense(ctx, u.Chat.ID, u.MessageID)
		return err
	})

	switch {
	case errors.Is(err, expense.ErrInvalidTransition):
		slog.Error("Invalid transition",
			"group_id", u.Chat.ID,
			"message_id", u.MessageID,
			"member_id", u.From.ID,
			"error", err,
		)
		s.metrics.Transition(action.String(), "invalid")
		s.answer(ctx, u.CallbackID, "")
		return ignored(), nil

	case errors.Is(err, storage.ErrNotFound):
		slog.Warn("Expense vanished", "group_id", u.Chat.ID, "message_id", u.MessageID)
		s.answer(ctx, u.CallbackID, "")
		return ignored(), nil

	case err != nil:
		slog.Error("Transition failed",
			"group_id", u.Chat.ID,
			"message_id", u.MessageID,
			"action", action.String(),
			"error", err,
		)
		s.metrics.Transition(action.String(), "error")
		return nil, fmt.Errorf("failed to apply %s: %w", action, err)
	}

	if result.Rejected() {
		slog.Info("Transition rejected",
			"group_id", u.Chat.ID,
			"message_id", u.MessageID,
			"member_id", u.From.ID,
			"action", action.String(),
			"reason", result.Rejection,
		)
		s.metrics.Transition(action.String(), "rejected")
		s.answer(ctx, u.CallbackID, result.Rejection)
		return &Outcome{Kind: OutcomeRejected, Rejection: result.Rejection}, nil
	}

	s.metrics.Transition(action.String(), "applied")
	s.metrics.Adjustments(adjusted)
	slog.Info("Transition applied",
		"expense_id", updated.ID,
		"action", action.String(),
		"state", updated.State().String(),
	)

	p := Project(updated)
	if err := s.messenger.EditMessage(ctx, u.Chat.ID, u.MessageID, s.renderer.Expense(p)); err != nil {
		slog.Error("EditMessage failed", "expense_id", updated.ID, "error", err)
	}
	s.answer(ctx, u.CallbackID, s.renderer.Answer(p))
	if result.Notice != expense.NoticeNone {
		s.reply(ctx, u.Chat.ID, s.renderer.Notice(p, result.Notice, u.From))
	}

	return &Outcome{Kind: OutcomeUpdated, Projection: p}, nil
}

// needsAdminCheck reports whether authorizing the action depends on the
// member being a chat admin.
func needsAdminCheck(action expense.Action, e *models.Expense, memberID int64) bool {
	if action.AdminOnly() {
		return true
	}
	return action.RequiresAuthorization() && e.CreatedBy.ID != memberID
}
