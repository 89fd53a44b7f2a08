package expense

import (
	"errors"
	"fmt"

	"github.com/mmynk/splitbot/internal/models"
)

var (
	// ErrInvalidTransition is wrapped by every *TransitionError.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrUnknownAction is returned for ActionUnknown.
	ErrUnknownAction = errors.New("unknown action")
)

// TransitionError is returned when an action reaches an expense whose state
// does not allow it, e.g. a stale button pressed on a finished expense.
// Nothing has been written when it is returned.
type TransitionError struct {
	Action    Action
	ExpenseID string
	State     models.State
	IsFree    bool
}

func (e *TransitionError) Error() string {
	state := e.State.String()
	if e.IsFree {
		state += " free"
	}
	return fmt.Sprintf("cannot apply %q to %s expense %s", e.Action, state, e.ExpenseID)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func invalid(action Action, e *models.Expense) error {
	return &TransitionError{
		Action:    action,
		ExpenseID: e.ID,
		State:     e.State(),
		IsFree:    e.IsFree,
	}
}

// Rejection reasons shown to the member who pressed the button.
const (
	RejectUnpaid       = "You can't finish an expense if it is not free and nobody paid!"
	RejectFinishNotOwn = "You can finish only your own expenses!"
	RejectDeleteNotOwn = "You can delete only your own expenses!"
	RejectRestoreAdmin = "Only admin can restore an expense!"
	RejectEditAdmin    = "Only admin can edit an expense!"
)
