package models

import "github.com/shopspring/decimal"

// Group represents a group chat.
type Group struct {
	// ID is the platform chat id.
	ID int64

	// Username is the public @handle of the chat. Private chats have none,
	// which means no balances link can be built for them.
	Username string
}

// GroupDefaults are per-group overrides read when a new expense is created.
// Zero values mean "not set" and fall through to the global defaults.
type GroupDefaults struct {
	Price       *decimal.Decimal
	ExpenseName string
	ActionName  string
}
