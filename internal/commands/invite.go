package commands

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Invite is a message that starts a new expense.
type Invite struct {
	// Price is the explicit price from a [..] marker, or nil.
	Price *decimal.Decimal
	// Name is the explicit name from a {..} marker, or empty.
	Name string
}

var (
	// A digit followed somewhere later by a question mark: "today 19:00?".
	inviteRe = regexp.MustCompile(`\d.*\?`)
	priceRe  = regexp.MustCompile(`\[\s*(\d+(?:[.,]\d+)?)[^\]]*\]`)
	nameRe   = regexp.MustCompile(`\{([^}]*)\}`)
)

// ParseInvite reports whether text starts a new expense and extracts the
// explicit price and name if present. A price marker alone is enough to
// start an expense.
func ParseInvite(text string) (Invite, bool) {
	text = strings.TrimSpace(text)

	var inv Invite
	if m := priceRe.FindStringSubmatch(text); m != nil {
		if price, ok := parsePrice(m[1]); ok {
			inv.Price = &price
		}
	}
	if m := nameRe.FindStringSubmatch(text); m != nil {
		inv.Name = strings.TrimSpace(m[1])
	}

	if inv.Price == nil && !inviteRe.MatchString(text) {
		return Invite{}, false
	}
	return inv, true
}
