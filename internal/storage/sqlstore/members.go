package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/models"
	"github.com/mmynk/splitbot/internal/storage"
)

// UpsertMember inserts the member or refreshes their display fields, and
// opens a zero balance for them in the group if they have none.
func (s *SQLStore) UpsertMember(ctx context.Context, groupID int64, member models.Member) error {
	now := time.Now().Unix()

	_, err := s.exec(ctx, `
		INSERT INTO members (id, username, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			updated_at = excluded.updated_at
	`,
		member.ID,
		member.Username,
		member.FirstName,
		member.LastName,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}

	if err := ensureGroup(ctx, s.conn, groupID, now); err != nil {
		return err
	}
	if err := ensureBalance(ctx, s.conn, member.ID, groupID, now); err != nil {
		return err
	}
	return nil
}

// GetMemberBalance returns the member's running balance in the group.
// A member without a balance row has a zero balance.
func (s *SQLStore) GetMemberBalance(ctx context.Context, memberID, groupID int64) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := s.queryRow(ctx,
		"SELECT amount FROM balances WHERE member_id = ? AND group_id = ?",
		memberID, groupID,
	).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return amount, nil
}

// ListGroupBalances returns every balance in the group with the given public
// username, highest first.
func (s *SQLStore) ListGroupBalances(ctx context.Context, groupUsername string) ([]models.MemberBalance, error) {
	if groupUsername == "" {
		return nil, storage.ErrNotFound
	}

	var groupID int64
	err := s.queryRow(ctx, `
		SELECT id FROM chat_groups
		WHERE LOWER(username) = LOWER(?)
		ORDER BY updated_at DESC
		LIMIT 1
	`, groupUsername).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group: %w", err)
	}

	rows, err := s.query(ctx, `
		SELECT m.id, m.username, m.first_name, m.last_name, b.amount
		FROM balances b
		JOIN members m ON m.id = b.member_id
		WHERE b.group_id = ?
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var balances []models.MemberBalance
	for rows.Next() {
		mb := models.MemberBalance{GroupID: groupID}
		if err := rows.Scan(&mb.ID, &mb.Username, &mb.FirstName, &mb.LastName, &mb.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, mb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}

	// Amounts are TEXT, so order numerically here rather than in SQL.
	sort.SliceStable(balances, func(i, j int) bool {
		if c := balances[i].Balance.Cmp(balances[j].Balance); c != 0 {
			return c > 0
		}
		return balances[i].ID < balances[j].ID
	})

	return balances, nil
}

func ensureBalance(ctx context.Context, c conn, memberID, groupID int64, now int64) error {
	_, err := c.exec(ctx, `
		INSERT INTO balances (member_id, group_id, amount, updated_at)
		VALUES (?, ?, '0', ?)
		ON CONFLICT (member_id, group_id) DO NOTHING
	`, memberID, groupID, now)
	if err != nil {
		return fmt.Errorf("failed to open balance: %w", err)
	}
	return nil
}
