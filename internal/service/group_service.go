package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/splitbot/internal/calculator"
	"github.com/mmynk/splitbot/internal/commands"
	"github.com/mmynk/splitbot/internal/models"
	"github.com/mmynk/splitbot/internal/storage"
)

// ErrGroupNotFound is returned for balances of an unknown group.
var ErrGroupNotFound = errors.New("group not found")

// handleCommand runs a group maintenance command and replies in the chat.
func (s *Service) handleCommand(ctx context.Context, u Update, cmd commands.Command) (*Outcome, error) {
	slog.Info("Group command received",
		"group_id", u.Chat.ID,
		"member_id", u.From.ID,
		"kind", cmd.Kind,
	)

	var text string
	switch cmd.Kind {
	case commands.KindHelp:
		text = s.renderer.Help()

	case commands.KindBalancesLink:
		text = s.renderer.BalancesLink(s.cfg.PublicURL, u.Chat.Username)

	default:
		if err := s.store.UpsertGroup(ctx, u.Chat); err != nil {
			slog.Error("UpsertGroup failed", "group_id", u.Chat.ID, "error", err)
			return nil, fmt.Errorf("failed to upsert group: %w", err)
		}
		if err := s.setDefault(ctx, u.Chat.ID, cmd); err != nil {
			slog.Error("SetDefault failed", "group_id", u.Chat.ID, "kind", cmd.Kind, "error", err)
			return nil, err
		}
		slog.Info("Group defaults updated", "group_id", u.Chat.ID, "kind", cmd.Kind)
		text = s.renderer.CommandDone(cmd)
	}

	s.reply(ctx, u.Chat.ID, text)
	return &Outcome{Kind: OutcomeReplied, Reply: text}, nil
}

// setDefault passes a defaults command through to the store. The values are
// only read back when the next expense is created.
func (s *Service) setDefault(ctx context.Context, groupID int64, cmd commands.Command) error {
	var err error
	switch cmd.Kind {
	case commands.KindSetDefaultPrice:
		price := cmd.Price
		err = s.store.SetDefaultPrice(ctx, groupID, &price)
	case commands.KindRemoveDefaultPrice:
		err = s.store.SetDefaultPrice(ctx, groupID, nil)
	case commands.KindSetDefaultName:
		err = s.store.SetDefaultExpenseName(ctx, groupID, cmd.Value)
	case commands.KindRemoveDefaultName:
		err = s.store.SetDefaultExpenseName(ctx, groupID, "")
	case commands.KindSetDefaultAction:
		err = s.store.SetDefaultActionName(ctx, groupID, cmd.Value)
	case commands.KindRemoveDefaultAction:
		err = s.store.SetDefaultActionName(ctx, groupID, "")
	default:
		return fmt.Errorf("unsupported command kind %d", cmd.Kind)
	}
	if err != nil {
		return fmt.Errorf("failed to set group default: %w", err)
	}
	return nil
}

// GroupBalances is the public balance sheet of a group.
type GroupBalances struct {
	Group    string
	Balances []models.MemberBalance
	// Transfers settle every balance to zero.
	Transfers []calculator.Transfer
}

// GetGroupBalances returns the running balances of the group with the given
// public username, with suggested transfers to settle up.
func (s *Service) GetGroupBalances(ctx context.Context, groupUsername string) (*GroupBalances, error) {
	slog.Info("GetGroupBalances request received", "group", groupUsername)

	balances, err := s.store.ListGroupBalances(ctx, groupUsername)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		slog.Error("GetGroupBalances failed", "group", groupUsername, "error", err)
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}

	input := make([]calculator.Balance, len(balances))
	for i, b := range balances {
		input[i] = calculator.Balance{MemberID: b.ID, Amount: b.Balance}
	}
	transfers := calculator.SettleUp(input)

	slog.Info("GetGroupBalances successful",
		"group", groupUsername,
		"members_count", len(balances),
		"transfers_count", len(transfers),
	)

	return &GroupBalances{
		Group:     groupUsername,
		Balances:  balances,
		Transfers: transfers,
	}, nil
}
