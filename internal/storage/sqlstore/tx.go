package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/models"
	"github.com/mmynk/splitbot/internal/storage"
)

// Ensure tx implements storage.Tx
var _ storage.Tx = (*tx)(nil)

// tx carries the writes of one transition.
type tx struct {
	conn
}

// LockExpense locks the expense row for the rest of the transaction and
// loads it.
func (t *tx) LockExpense(ctx context.Context, groupID int64, messageID int) (*models.Expense, error) {
	var id string
	err := t.queryRow(ctx,
		"SELECT id FROM expenses WHERE group_id = ? AND message_id = ?"+t.dialect.forUpdate(),
		groupID, messageID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock expense: %w", err)
	}
	return getExpense(ctx, t.conn, groupID, messageID)
}

// GetExpense reads the expense inside the transaction.
func (t *tx) GetExpense(ctx context.Context, groupID int64, messageID int) (*models.Expense, error) {
	return getExpense(ctx, t.conn, groupID, messageID)
}

// AddParticipant appends the member to the expense. Adding a member twice
// is a no-op.
func (t *tx) AddParticipant(ctx context.Context, expenseID string, memberID int64) error {
	_, err := t.exec(ctx, `
		INSERT INTO participants (expense_id, member_id, position)
		SELECT ?, ?, COALESCE(MAX(position), 0) + 1
		FROM participants
		WHERE expense_id = ?
		ON CONFLICT (expense_id, member_id) DO NOTHING
	`, expenseID, memberID, expenseID)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// RemoveParticipant removes the member from the expense.
func (t *tx) RemoveParticipant(ctx context.Context, expenseID string, memberID int64) error {
	_, err := t.exec(ctx,
		"DELETE FROM participants WHERE expense_id = ? AND member_id = ?",
		expenseID, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}

// SetPayer sets the payer; nil clears it.
func (t *tx) SetPayer(ctx context.Context, expenseID string, memberID *int64) error {
	var payBy sql.NullInt64
	if memberID != nil {
		payBy = sql.NullInt64{Int64: *memberID, Valid: true}
	}
	return t.updateExpense(ctx, expenseID, "pay_by", payBy)
}

func (t *tx) SetFree(ctx context.Context, expenseID string, free bool) error {
	return t.updateExpense(ctx, expenseID, "is_free", b2i(free))
}

func (t *tx) SetFinished(ctx context.Context, expenseID string, finished bool) error {
	return t.updateExpense(ctx, expenseID, "is_finished", b2i(finished))
}

func (t *tx) SetDeleted(ctx context.Context, expenseID string, deleted bool) error {
	return t.updateExpense(ctx, expenseID, "is_deleted", b2i(deleted))
}

// updateExpense writes one expense column. column is always a constant.
func (t *tx) updateExpense(ctx context.Context, expenseID, column string, value any) error {
	res, err := t.exec(ctx,
		fmt.Sprintf("UPDATE expenses SET %s = ?, updated_at = ? WHERE id = ?", column),
		value, time.Now().Unix(), expenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	return checkAffected(res)
}

// AdjustBalance adds delta to the member's balance in the group. The
// balance row is read under lock and written back as an exact decimal.
func (t *tx) AdjustBalance(ctx context.Context, memberID, groupID int64, delta decimal.Decimal) error {
	now := time.Now().Unix()
	if err := ensureBalance(ctx, t.conn, memberID, groupID, now); err != nil {
		return err
	}

	var amount decimal.Decimal
	err := t.queryRow(ctx,
		"SELECT amount FROM balances WHERE member_id = ? AND group_id = ?"+t.dialect.forUpdate(),
		memberID, groupID,
	).Scan(&amount)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}

	res, err := t.exec(ctx,
		"UPDATE balances SET amount = ?, updated_at = ? WHERE member_id = ? AND group_id = ?",
		amount.Add(delta), now, memberID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	return checkAffected(res)
}
