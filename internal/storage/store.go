// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/expense"
	"github.com/mmynk/splitbot/internal/models"
)

// ErrNotFound is returned when a requested expense or group does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	// UpsertMember creates the member or refreshes their display fields,
	// and makes sure the member has a balance in the group.
	UpsertMember(ctx context.Context, groupID int64, member models.Member) error

	// UpsertGroup creates the group or refreshes its username.
	UpsertGroup(ctx context.Context, group models.Group) error

	// GetGroupDefaults returns the group's defaults. A group without any
	// row yet has empty defaults, not an error.
	GetGroupDefaults(ctx context.Context, groupID int64) (models.GroupDefaults, error)

	// SetDefaultPrice sets the group's default price; nil removes it.
	SetDefaultPrice(ctx context.Context, groupID int64, price *decimal.Decimal) error

	// SetDefaultExpenseName sets the group's default name; "" removes it.
	SetDefaultExpenseName(ctx context.Context, groupID int64, name string) error

	// SetDefaultActionName sets the group's default action; "" removes it.
	SetDefaultActionName(ctx context.Context, groupID int64, action string) error

	// CreateExpense persists a new expense together with its initial
	// participants and payer. The expense.ID and CreatedAt fields are
	// populated by the store.
	CreateExpense(ctx context.Context, e *models.Expense) error

	// SetExpenseMessageID records the chat message rendering the expense.
	SetExpenseMessageID(ctx context.Context, expenseID string, messageID int) error

	// GetExpense retrieves a fully populated expense by the message that
	// renders it. Returns ErrNotFound if there is none.
	GetExpense(ctx context.Context, groupID int64, messageID int) (*models.Expense, error)

	// GetMemberBalance returns the member's running balance in the group.
	GetMemberBalance(ctx context.Context, memberID, groupID int64) (decimal.Decimal, error)

	// ListGroupBalances returns the balances of every member of the group
	// with the given public username, ordered by balance descending.
	ListGroupBalances(ctx context.Context, groupUsername string) ([]models.MemberBalance, error)

	// InTx runs fn inside one transaction. The transaction commits if fn
	// returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any resources held by the store.
	Close() error
}

// Tx is a store transaction. It carries the ledger writes of one
// transition; the expense read through LockExpense stays locked against
// other transactions until the transaction ends.
type Tx interface {
	expense.Ledger

	// LockExpense loads the expense like Store.GetExpense and locks it.
	LockExpense(ctx context.Context, groupID int64, messageID int) (*models.Expense, error)

	// GetExpense reads the expense within the transaction without taking
	// a new lock.
	GetExpense(ctx context.Context, groupID int64, messageID int) (*models.Expense, error)
}
