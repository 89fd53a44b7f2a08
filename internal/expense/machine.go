// Package expense implements the expense lifecycle: which button presses are
// legal in which state, and what each one writes to the ledger.
//
// An expense is active, finished or deleted:
//
//	active   --finish--> finished   (deltas added to balances)
//	finished --edit-->   active     (deltas subtracted again)
//	active   --delete--> deleted
//	deleted  --restore-> active
//
// split, pay and free only apply to active expenses.
//
// Apply reports two kinds of failure. A Result with a Rejection is a refusal
// the member is told about (not the creator, nobody paid yet). An error
// wrapping ErrInvalidTransition means the action should never have reached
// this expense in its current state. In both cases nothing was written.
package expense

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/calculator"
	"github.com/mmynk/splitbot/internal/models"
)

// Ledger is the set of writes a transition issues. All writes of one Apply
// call must land in the same store transaction.
type Ledger interface {
	AddParticipant(ctx context.Context, expenseID string, memberID int64) error
	RemoveParticipant(ctx context.Context, expenseID string, memberID int64) error
	// SetPayer sets the payer; nil clears it.
	SetPayer(ctx context.Context, expenseID string, memberID *int64) error
	SetFree(ctx context.Context, expenseID string, free bool) error
	SetFinished(ctx context.Context, expenseID string, finished bool) error
	SetDeleted(ctx context.Context, expenseID string, deleted bool) error
	// AdjustBalance adds delta to the member's running balance in the group.
	AdjustBalance(ctx context.Context, memberID, groupID int64, delta decimal.Decimal) error
}

// Actor is the member who pressed the button.
type Actor struct {
	ID int64
	// Admin is true when the member administers the group.
	Admin bool
}

// Notice is a follow-up announcement for the group after a transition.
type Notice int

const (
	NoticeNone Notice = iota
	// NoticeWhoWillPay: the expense lost its payer.
	NoticeWhoWillPay
	// NoticeWillPay: the actor became the payer.
	NoticeWillPay
	// NoticeFree: the expense was marked free while another member was
	// its payer.
	NoticeFree
)

// Result describes an applied or refused transition.
type Result struct {
	Action Action
	// Rejection is set when the transition was refused. Nothing was written.
	Rejection string
	Notice    Notice
}

// Rejected reports whether the transition was refused.
func (r Result) Rejected() bool {
	return r.Rejection != ""
}

// Apply runs action on the expense as actor, issuing writes through l.
// e must be the freshly loaded state of the expense inside the same
// transaction as l.
func Apply(ctx context.Context, l Ledger, e *models.Expense, action Action, actor Actor) (Result, error) {
	switch action {
	case ActionSplit:
		return split(ctx, l, e, actor)
	case ActionPay:
		return pay(ctx, l, e, actor)
	case ActionFree:
		return free(ctx, l, e, actor)
	case ActionFinish:
		return finish(ctx, l, e, actor)
	case ActionDelete:
		return remove(ctx, l, e, actor)
	case ActionRestore:
		return restore(ctx, l, e, actor)
	case ActionEdit:
		return edit(ctx, l, e, actor)
	default:
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownAction, action)
	}
}

func split(ctx context.Context, l Ledger, e *models.Expense, actor Actor) (Result, error) {
	res := Result{Action: ActionSplit}
	if !e.CanSplit() {
		return res, invalid(ActionSplit, e)
	}

	if !e.HasParticipant(actor.ID) {
		return res, l.AddParticipant(ctx, e.ID, actor.ID)
	}

	if err := l.RemoveParticipant(ctx, e.ID, actor.ID); err != nil {
		return res, err
	}
	if e.IsPayer(actor.ID) {
		if err := l.SetPayer(ctx, e.ID, nil); err != nil {
			return res, err
		}
		res.Notice = NoticeWhoWillPay
	}
	return res, nil
}

func pay(ctx context.Context, l Ledger, e *models.Expense, actor Actor) (Result, error) {
	res := Result{Action: ActionPay}
	if !e.CanPay() {
		return res, invalid(ActionPay, e)
	}

	if e.IsPayer(actor.ID) {
		res.Notice = NoticeWhoWillPay
		return res, l.SetPayer(ctx, e.ID, nil)
	}

	if !e.HasParticipant(actor.ID) {
		if err := l.AddParticipant(ctx, e.ID, actor.ID); err != nil {
			return res, err
		}
	}
	id := actor.ID
	res.Notice = NoticeWillPay
	return res, l.SetPayer(ctx, e.ID, &id)
}

func free(ctx context.Context, l Ledger, e *models.Expense, actor Actor) (Result, error) {
	res := Result{Action: ActionFree}
	if !e.CanFree() {
		return res, invalid(ActionFree, e)
	}

	if e.IsFree {
		res.Notice = NoticeWhoWillPay
		return res, l.SetFree(ctx, e.ID, false)
	}

	if err := l.SetFree(ctx, e.ID, true); err != nil {
		return res, err
	}
	// Announce only when someone else was about to pay.
	if e.Payer != nil && e.Payer.ID != actor.ID {
		res.Notice = NoticeFree
	}
	return res, l.SetPayer(ctx, e.ID, nil)
}

func finish(ctx context.Context, l Ledger, e *models.Expense, actor Actor) (Result, error) {
	res := Result{Action: ActionFinish}
	if e.IsDeleted || e.IsFinished {
		return res, invalid(ActionFinish, e)
	}
	if !e.CanFinish() {
		res.Rejection = RejectUnpaid
		return res, nil
	}
	if !ownerOrAdmin(e, actor) {
		res.Rejection = RejectFinishNotOwn
		return res, nil
	}

	if err := applyDeltas(ctx, l, e, false); err != nil {
		return res, err
	}
	return res, l.SetFinished(ctx, e.ID, true)
}

func remove(ctx context.Context, l Ledger, e *models.Expense, actor Actor) (Result, error) {
	res := Result{Action: ActionDelete}
	if !e.CanDelete() {
		return res, invalid(ActionDelete, e)
	}
	if !ownerOrAdmin(e, actor) {
		res.Rejection = RejectDeleteNotOwn
		return res, nil
	}
	return res, l.SetDeleted(ctx, e.ID, true)
}

func restore(ctx context.Context, l Ledger, e *models.Expense, actor Actor) (Result, error) {
	res := Result{Action: ActionRestore}
	if !e.CanRestore() {
		return res, invalid(ActionRestore, e)
	}
	if !actor.Admin {
		res.Rejection = RejectRestoreAdmin
		return res, nil
	}
	return res, l.SetDeleted(ctx, e.ID, false)
}

func edit(ctx context.Context, l Ledger, e *models.Expense, actor Actor) (Result, error) {
	res := Result{Action: ActionEdit}
	if !e.CanEdit() {
		return res, invalid(ActionEdit, e)
	}
	if !actor.Admin {
		res.Rejection = RejectEditAdmin
		return res, nil
	}

	if err := applyDeltas(ctx, l, e, true); err != nil {
		return res, err
	}
	return res, l.SetFinished(ctx, e.ID, false)
}

// applyDeltas adds (or, when reverse is set, subtracts) the expense's
// deltas to every participant's balance. Free expenses have none.
func applyDeltas(ctx context.Context, l Ledger, e *models.Expense, reverse bool) error {
	deltas := calculator.ComputeDeltas(e.Price, e.ParticipantIDs(), e.PayerID(), e.IsFree)
	for _, d := range deltas {
		amount := d.Amount
		if reverse {
			amount = amount.Neg()
		}
		if err := l.AdjustBalance(ctx, d.MemberID, e.GroupID, amount); err != nil {
			return fmt.Errorf("failed to adjust balance of member %d: %w", d.MemberID, err)
		}
	}
	return nil
}

func ownerOrAdmin(e *models.Expense, actor Actor) bool {
	return e.CreatedBy.ID == actor.ID || actor.Admin
}
