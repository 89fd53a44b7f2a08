package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Member represents a chat user.
type Member struct {
	// ID is the platform-assigned user id.
	ID int64

	// Username is the @handle without the leading @, if the user has one.
	Username string

	// FirstName and LastName are the profile names; both may be empty.
	FirstName string
	LastName  string
}

// DisplayName returns the best human-readable name available: first name,
// then username, then the numeric id.
func (m Member) DisplayName() string {
	if m.FirstName != "" {
		return m.FirstName
	}
	if m.Username != "" {
		return m.Username
	}
	return strconv.FormatInt(m.ID, 10)
}

// Participant is a member who opted into an expense, together with the
// member's running balance in the expense's group.
type Participant struct {
	Member
	Balance decimal.Decimal
}

// MemberBalance is one member's running balance in a group.
// Positive = the group owes the member, negative = the member owes the group.
type MemberBalance struct {
	Member
	GroupID int64
	Balance decimal.Decimal
}
