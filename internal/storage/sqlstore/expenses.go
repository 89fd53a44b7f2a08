package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitbot/internal/models"
	"github.com/mmynk/splitbot/internal/storage"
)

// CreateExpense persists a new expense with its initial participants and
// payer in one transaction. Members must already exist.
func (s *SQLStore) CreateExpense(ctx context.Context, e *models.Expense) error {
	// Generate IDs if not set
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}

	var payBy sql.NullInt64
	if e.Payer != nil {
		payBy = sql.NullInt64{Int64: e.Payer.ID, Valid: true}
	}
	var messageID sql.NullInt64
	if e.MessageID != 0 {
		messageID = sql.NullInt64{Int64: int64(e.MessageID), Valid: true}
	}

	return s.inTx(ctx, func(t *tx) error {
		_, err := t.exec(ctx, `
			INSERT INTO expenses (id, group_id, message_id, price, name, action_name, created_by, pay_by,
				is_free, is_finished, is_deleted, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			e.ID,
			e.GroupID,
			messageID,
			e.Price,
			e.Name,
			e.ActionName,
			e.CreatedBy.ID,
			payBy,
			b2i(e.IsFree),
			b2i(e.IsFinished),
			b2i(e.IsDeleted),
			e.CreatedAt,
			e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		for i, p := range e.Participants {
			_, err = t.exec(ctx,
				"INSERT INTO participants (expense_id, member_id, position) VALUES (?, ?, ?)",
				e.ID, p.ID, i+1,
			)
			if err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
		}
		return nil
	})
}

// SetExpenseMessageID records the message that renders the expense.
func (s *SQLStore) SetExpenseMessageID(ctx context.Context, expenseID string, messageID int) error {
	res, err := s.exec(ctx,
		"UPDATE expenses SET message_id = ?, updated_at = ? WHERE id = ?",
		messageID, time.Now().Unix(), expenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to set message id: %w", err)
	}
	return checkAffected(res)
}

// GetExpense retrieves a fully populated expense by its message.
func (s *SQLStore) GetExpense(ctx context.Context, groupID int64, messageID int) (*models.Expense, error) {
	return getExpense(ctx, s.conn, groupID, messageID)
}

const selectExpense = `
	SELECT e.id, e.group_id, e.message_id, e.price, e.name, e.action_name,
		e.is_free, e.is_finished, e.is_deleted, e.created_at,
		c.id, c.username, c.first_name, c.last_name,
		p.id, p.username, p.first_name, p.last_name
	FROM expenses e
	JOIN members c ON c.id = e.created_by
	LEFT JOIN members p ON p.id = e.pay_by
	WHERE e.group_id = ? AND e.message_id = ?
`

// getExpense loads the expense, its creator, payer and participants with
// their running balances in the group.
func getExpense(ctx context.Context, c conn, groupID int64, messageID int) (*models.Expense, error) {
	var (
		e         models.Expense
		msgID     sql.NullInt64
		payerID   sql.NullInt64
		payerUser sql.NullString
		payerFst  sql.NullString
		payerLst  sql.NullString
	)
	err := c.queryRow(ctx, selectExpense, groupID, messageID).Scan(
		&e.ID, &e.GroupID, &msgID, &e.Price, &e.Name, &e.ActionName,
		&e.IsFree, &e.IsFinished, &e.IsDeleted, &e.CreatedAt,
		&e.CreatedBy.ID, &e.CreatedBy.Username, &e.CreatedBy.FirstName, &e.CreatedBy.LastName,
		&payerID, &payerUser, &payerFst, &payerLst,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	e.MessageID = int(msgID.Int64)
	if payerID.Valid {
		e.Payer = &models.Member{
			ID:        payerID.Int64,
			Username:  payerUser.String,
			FirstName: payerFst.String,
			LastName:  payerLst.String,
		}
	}

	rows, err := c.query(ctx, `
		SELECT m.id, m.username, m.first_name, m.last_name, COALESCE(b.amount, '0')
		FROM participants pt
		JOIN members m ON m.id = pt.member_id
		LEFT JOIN balances b ON b.member_id = pt.member_id AND b.group_id = ?
		WHERE pt.expense_id = ?
		ORDER BY pt.position
	`, e.GroupID, e.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.Username, &p.FirstName, &p.LastName, &p.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		e.Participants = append(e.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return &e, nil
}
