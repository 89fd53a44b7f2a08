package models

import "github.com/shopspring/decimal"

// State is the coarse lifecycle state of an expense.
type State int

const (
	StateActive State = iota
	StateFinished
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateFinished:
		return "finished"
	case StateDeleted:
		return "deleted"
	default:
		return "active"
	}
}

// Expense is the shared record a group splits.
// It is mutated only through the transitions in package expense.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the chat the expense was posted in.
	GroupID int64

	// MessageID is the chat message that renders the expense. Button presses
	// reference the expense through (GroupID, MessageID). Zero until the
	// message has been sent.
	MessageID int

	// Price is the full amount, resolved once at creation.
	Price decimal.Decimal

	// Name and ActionName label the expense ("football", "play").
	// Both are resolved at creation and never re-resolved.
	Name       string
	ActionName string

	// CreatedBy is the member who posted the expense. Immutable.
	CreatedBy Member

	// Participants are the members splitting the cost, in join order.
	Participants []Participant

	// Payer is the member who fronted the full price, or nil.
	Payer *Member

	IsFree     bool
	IsFinished bool
	IsDeleted  bool

	// CreatedAt is the Unix timestamp when the expense was created.
	CreatedAt int64
}

// State reports the lifecycle state. Finished and deleted never hold together.
func (e *Expense) State() State {
	switch {
	case e.IsDeleted:
		return StateDeleted
	case e.IsFinished:
		return StateFinished
	default:
		return StateActive
	}
}

// HasParticipant reports whether the member has opted in.
func (e *Expense) HasParticipant(memberID int64) bool {
	for _, p := range e.Participants {
		if p.ID == memberID {
			return true
		}
	}
	return false
}

// IsPayer reports whether the member is the current payer.
func (e *Expense) IsPayer(memberID int64) bool {
	return e.Payer != nil && e.Payer.ID == memberID
}

// PayerID returns the payer's id, or nil when nobody paid.
func (e *Expense) PayerID() *int64 {
	if e.Payer == nil {
		return nil
	}
	id := e.Payer.ID
	return &id
}

// ParticipantIDs returns participant ids in join order.
func (e *Expense) ParticipantIDs() []int64 {
	ids := make([]int64, len(e.Participants))
	for i, p := range e.Participants {
		ids[i] = p.ID
	}
	return ids
}

// CanSplit reports whether members may join or leave.
func (e *Expense) CanSplit() bool {
	return !e.IsDeleted && !e.IsFinished
}

// CanPay reports whether a member may become (or stop being) the payer.
func (e *Expense) CanPay() bool {
	return !e.IsDeleted && !e.IsFinished && !e.IsFree
}

// CanFree reports whether the free flag may be toggled.
func (e *Expense) CanFree() bool {
	return !e.IsDeleted && !e.IsFinished
}

// CanFinish reports whether the expense is ready to be finished.
func (e *Expense) CanFinish() bool {
	return !e.IsDeleted && !e.IsFinished && (e.IsFree || e.Payer != nil)
}

// CanDelete reports whether the expense may be soft-deleted.
func (e *Expense) CanDelete() bool {
	return !e.IsDeleted && !e.IsFinished
}

// CanRestore reports whether a deleted expense may be restored.
func (e *Expense) CanRestore() bool {
	return e.IsDeleted && !e.IsFinished
}

// CanEdit reports whether a finished expense may be reopened.
func (e *Expense) CanEdit() bool {
	return e.IsFinished && !e.IsDeleted
}
