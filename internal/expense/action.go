package expense

// Action is a user action on an expense, triggered by a button press.
type Action int

const (
	// ActionUnknown is any token that does not name an action.
	ActionUnknown Action = iota
	// ActionSplit joins or leaves the expense.
	ActionSplit
	// ActionPay joins the expense and becomes its payer, or stops paying.
	ActionPay
	// ActionFree toggles the free flag.
	ActionFree
	// ActionFinish applies the deltas to balances.
	ActionFinish
	// ActionDelete soft-deletes the expense.
	ActionDelete
	// ActionRestore undoes a delete.
	ActionRestore
	// ActionEdit reverses a finish so the expense can be corrected.
	ActionEdit
)

var tokens = map[Action]string{
	ActionSplit:   "split",
	ActionPay:     "pay",
	ActionFree:    "free",
	ActionFinish:  "done",
	ActionDelete:  "delete",
	ActionRestore: "restore",
	ActionEdit:    "edit",
}

// Keyboards sent before the tokens were shortened still carry these.
var legacyTokens = map[string]Action{
	"split | not split and not pay": ActionSplit,
	"split and pay | not pay":       ActionPay,
	"play":                          ActionSplit,
}

// ParseAction maps a callback payload to an Action.
func ParseAction(token string) Action {
	for action, t := range tokens {
		if t == token {
			return action
		}
	}
	if action, ok := legacyTokens[token]; ok {
		return action
	}
	return ActionUnknown
}

// Token returns the callback payload for the action.
func (a Action) Token() string {
	return tokens[a]
}

func (a Action) String() string {
	if t, ok := tokens[a]; ok {
		return t
	}
	return "unknown"
}

// RequiresAuthorization reports whether only the creator or an admin may
// perform the action.
func (a Action) RequiresAuthorization() bool {
	switch a {
	case ActionFinish, ActionDelete, ActionRestore, ActionEdit:
		return true
	}
	return false
}

// AdminOnly reports whether being the creator is not enough.
func (a Action) AdminOnly() bool {
	return a == ActionRestore || a == ActionEdit
}
