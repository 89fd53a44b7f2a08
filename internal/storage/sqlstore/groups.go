package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/models"
)

// UpsertGroup inserts the group or refreshes its username.
func (s *SQLStore) UpsertGroup(ctx context.Context, group models.Group) error {
	now := time.Now().Unix()
	_, err := s.exec(ctx, `
		INSERT INTO chat_groups (id, username, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			updated_at = excluded.updated_at
	`, group.ID, group.Username, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}
	return nil
}

// GetGroupDefaults returns the group's defaults. Unknown groups have none.
func (s *SQLStore) GetGroupDefaults(ctx context.Context, groupID int64) (models.GroupDefaults, error) {
	var (
		price       decimal.NullDecimal
		expenseName sql.NullString
		actionName  sql.NullString
	)
	err := s.queryRow(ctx,
		"SELECT default_price, default_expense, default_action FROM chat_groups WHERE id = ?",
		groupID,
	).Scan(&price, &expenseName, &actionName)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GroupDefaults{}, nil
	}
	if err != nil {
		return models.GroupDefaults{}, fmt.Errorf("failed to get group defaults: %w", err)
	}

	defaults := models.GroupDefaults{
		ExpenseName: expenseName.String,
		ActionName:  actionName.String,
	}
	if price.Valid {
		defaults.Price = &price.Decimal
	}
	return defaults, nil
}

// SetDefaultPrice sets the group's default price. nil removes it.
func (s *SQLStore) SetDefaultPrice(ctx context.Context, groupID int64, price *decimal.Decimal) error {
	var v decimal.NullDecimal
	if price != nil {
		v = decimal.NewNullDecimal(*price)
	}
	return s.setGroupDefault(ctx, groupID, "default_price", v)
}

// SetDefaultExpenseName sets the group's default expense name. "" removes it.
func (s *SQLStore) SetDefaultExpenseName(ctx context.Context, groupID int64, name string) error {
	return s.setGroupDefault(ctx, groupID, "default_expense", nullString(name))
}

// SetDefaultActionName sets the group's default action name. "" removes it.
func (s *SQLStore) SetDefaultActionName(ctx context.Context, groupID int64, action string) error {
	return s.setGroupDefault(ctx, groupID, "default_action", nullString(action))
}

// setGroupDefault writes one defaults column. column is always one of the
// constants above, never user input.
func (s *SQLStore) setGroupDefault(ctx context.Context, groupID int64, column string, value any) error {
	now := time.Now().Unix()
	if err := ensureGroup(ctx, s.conn, groupID, now); err != nil {
		return err
	}

	_, err := s.exec(ctx,
		fmt.Sprintf("UPDATE chat_groups SET %s = ?, updated_at = ? WHERE id = ?", column),
		value, now, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	return nil
}

func ensureGroup(ctx context.Context, c conn, groupID int64, now int64) error {
	_, err := c.exec(ctx, `
		INSERT INTO chat_groups (id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, groupID, now, now)
	if err != nil {
		return fmt.Errorf("failed to ensure group: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
