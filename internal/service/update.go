package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/calculator"
	"github.com/mmynk/splitbot/internal/models"
)

// UpdateKind distinguishes posted messages from button presses.
type UpdateKind int

const (
	UpdateUnknown UpdateKind = iota
	UpdateMessage
	UpdateCallback
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateMessage:
		return "message"
	case UpdateCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Update is a normalized inbound chat update.
type Update struct {
	// ID is the platform update id, used to drop redeliveries. Zero
	// disables deduplication.
	ID   int
	Kind UpdateKind

	Chat models.Group
	From models.Member

	// Text is the posted message text.
	Text string

	// MessageID is the message whose button was pressed.
	MessageID int
	// CallbackID identifies the button press for the answer.
	CallbackID string
	// Data is the pressed button's action token.
	Data string
}

// OutcomeKind summarizes what handling an update did.
type OutcomeKind int

const (
	// OutcomeIgnored: nothing recognized or nothing changed.
	OutcomeIgnored OutcomeKind = iota
	// OutcomeReplied: a group command was answered.
	OutcomeReplied
	// OutcomeCreated: a new expense was posted.
	OutcomeCreated
	// OutcomeUpdated: a transition was applied.
	OutcomeUpdated
	// OutcomeRejected: a transition was refused with a reason.
	OutcomeRejected
	// OutcomeDuplicate: the update was already handled.
	OutcomeDuplicate
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReplied:
		return "replied"
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeRejected:
		return "rejected"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "ignored"
	}
}

// Outcome is the result of HandleUpdate.
type Outcome struct {
	Kind OutcomeKind
	// Projection is the expense after the update, for created and updated.
	Projection *Projection
	// Rejection is the refusal shown to the member.
	Rejection string
	// Reply is the text posted in answer to a group command.
	Reply string
}

func ignored() *Outcome {
	return &Outcome{Kind: OutcomeIgnored}
}

// Projection is the render-ready view of an expense.
type Projection struct {
	ExpenseID  string
	GroupID    int64
	MessageID  int
	Name       string
	ActionName string
	Price      decimal.Decimal

	CreatedBy models.Member
	// Participants carry their running balance in the group.
	Participants []models.Participant
	Payer        *models.Member

	IsFree     bool
	IsFinished bool
	IsDeleted  bool

	// Deltas are what finishing the expense adds to each participant's
	// balance. Empty while free or unpaid.
	Deltas []calculator.Delta
}

// Project builds the view of an expense.
func Project(e *models.Expense) *Projection {
	return &Projection{
		ExpenseID:    e.ID,
		GroupID:      e.GroupID,
		MessageID:    e.MessageID,
		Name:         e.Name,
		ActionName:   e.ActionName,
		Price:        e.Price,
		CreatedBy:    e.CreatedBy,
		Participants: e.Participants,
		Payer:        e.Payer,
		IsFree:       e.IsFree,
		IsFinished:   e.IsFinished,
		IsDeleted:    e.IsDeleted,
		Deltas:       calculator.ComputeDeltas(e.Price, e.ParticipantIDs(), e.PayerID(), e.IsFree),
	}
}

// Delta returns the member's delta, zero if they have none.
func (p *Projection) Delta(memberID int64) decimal.Decimal {
	return calculator.Lookup(p.Deltas, memberID)
}
