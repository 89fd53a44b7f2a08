// Package presenter renders expenses, notices and command replies as
// Telegram HTML with inline keyboards.
package presenter

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/commands"
	"github.com/mmynk/splitbot/internal/expense"
	"github.com/mmynk/splitbot/internal/models"
	"github.com/mmynk/splitbot/internal/service"
)

// Ensure Presenter implements service.Renderer
var _ service.Renderer = (*Presenter)(nil)

// Presenter implements service.Renderer.
type Presenter struct{}

// New creates a Presenter.
func New() *Presenter {
	return &Presenter{}
}

// UserLink renders a member as a mention that works without a username.
func UserLink(m models.Member) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, m.ID, html.EscapeString(m.DisplayName()))
}

// Money formats an amount with cents only when it has them.
func Money(d decimal.Decimal) string {
	if d.IsInteger() {
		return d.String()
	}
	return d.StringFixed(2)
}

// signed formats a delta with an explicit sign.
func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + Money(d)
	}
	return Money(d)
}

// Expense renders the expense message and the keyboard for its state.
func (p *Presenter) Expense(v *service.Projection) service.Message {
	if v.IsDeleted {
		return service.Message{
			Text: fmt.Sprintf("<s>%s</s> by %s was deleted.",
				html.EscapeString(title(v.Name)), UserLink(v.CreatedBy)),
			Keyboard: [][]service.Button{
				{{Text: "Restore", Data: expense.ActionRestore.Token()}},
			},
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>: %s\n", html.EscapeString(title(v.Name)), Money(v.Price))
	fmt.Fprintf(&b, "Created by %s\n", UserLink(v.CreatedBy))
	if v.IsFinished {
		b.WriteString("Finished\n")
	}

	fmt.Fprintf(&b, "\n<b>%s</b> (%d):\n", html.EscapeString(title(v.ActionName)), len(v.Participants))
	for i, pt := range v.Participants {
		fmt.Fprintf(&b, "%d. %s (balance %s)\n", i+1, UserLink(pt.Member), signed(pt.Balance))
	}

	b.WriteString("\n")
	switch {
	case v.IsFree:
		b.WriteString("Free!\n")
	case v.Payer != nil:
		fmt.Fprintf(&b, "Paid by %s\n", UserLink(*v.Payer))
	default:
		b.WriteString("Nobody paid yet\n")
	}

	if len(v.Deltas) > 0 {
		names := make(map[int64]models.Member, len(v.Participants))
		for _, pt := range v.Participants {
			names[pt.ID] = pt.Member
		}
		b.WriteString("\n<b>Split</b>:\n")
		for _, d := range v.Deltas {
			fmt.Fprintf(&b, "%s %s\n", UserLink(names[d.MemberID]), signed(d.Amount))
		}
	}

	return service.Message{
		Text:     strings.TrimRight(b.String(), "\n"),
		Keyboard: keyboard(v),
	}
}

func keyboard(v *service.Projection) [][]service.Button {
	if v.IsFinished {
		return [][]service.Button{
			{{Text: "Edit", Data: expense.ActionEdit.Token()}},
		}
	}

	action := title(v.ActionName)
	freeText := "Free"
	if v.IsFree {
		freeText = "Not free"
	}

	rows := [][]service.Button{
		{{Text: action, Data: expense.ActionSplit.Token()}},
	}
	if !v.IsFree {
		rows[0] = append(rows[0], service.Button{Text: action + " & pay", Data: expense.ActionPay.Token()})
	}
	return append(rows,
		[]service.Button{{Text: freeText, Data: expense.ActionFree.Token()}},
		[]service.Button{
			{Text: "Done", Data: expense.ActionFinish.Token()},
			{Text: "Delete", Data: expense.ActionDelete.Token()},
		},
	)
}

// Notice renders the follow-up announcement of a transition.
func (p *Presenter) Notice(v *service.Projection, notice expense.Notice, actor models.Member) string {
	switch notice {
	case expense.NoticeWhoWillPay:
		return "Who will pay?"
	case expense.NoticeWillPay:
		return UserLink(actor) + " will pay"
	case expense.NoticeFree:
		return html.EscapeString(title(v.Name)) + " is free!"
	default:
		return ""
	}
}

// Answer is the toast shown to the member after an applied transition.
func (p *Presenter) Answer(v *service.Projection) string {
	if v.IsDeleted {
		return "The expense was successfully deleted!"
	}
	return "The expense was successfully updated!"
}

// Help returns the usage text.
func (p *Presenter) Help() string {
	return commands.HelpText
}

// BalancesLink returns the link to the group's public balances page.
func (p *Presenter) BalancesLink(publicURL, groupUsername string) string {
	if groupUsername == "" {
		return "Make group public to get a link!"
	}
	if publicURL == "" {
		return "No url set up!"
	}
	return strings.TrimRight(publicURL, "/") + "/?group=" + url.QueryEscape(groupUsername)
}

// CommandDone confirms a defaults command.
func (p *Presenter) CommandDone(cmd commands.Command) string {
	switch cmd.Kind {
	case commands.KindSetDefaultPrice:
		return fmt.Sprintf("Group default price is %s now!", Money(cmd.Price))
	case commands.KindRemoveDefaultPrice:
		return "Group default price removed!"
	case commands.KindSetDefaultName:
		return fmt.Sprintf("Group default name is %s now!", html.EscapeString(cmd.Value))
	case commands.KindRemoveDefaultName:
		return "Group default name removed!"
	case commands.KindSetDefaultAction:
		return fmt.Sprintf("Group default action is %s now!", html.EscapeString(cmd.Value))
	case commands.KindRemoveDefaultAction:
		return "Group default action removed!"
	default:
		return "Done!"
	}
}

// title upper-cases the first letter: "football" becomes "Football".
func title(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
