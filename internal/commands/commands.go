// Package commands recognizes what a plain group message asks for: a group
// maintenance command ("set default price 90") or a new expense ("Football
// tomorrow 19:00? [90] {football}").
package commands

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitbot/internal/calculator"
)

// Kind is the kind of a group command.
type Kind int

const (
	KindHelp Kind = iota + 1
	KindBalancesLink
	KindSetDefaultPrice
	KindRemoveDefaultPrice
	KindSetDefaultName
	KindRemoveDefaultName
	KindSetDefaultAction
	KindRemoveDefaultAction
)

var kindNames = map[Kind]string{
	KindHelp:                "help",
	KindBalancesLink:        "balances_link",
	KindSetDefaultPrice:     "set_default_price",
	KindRemoveDefaultPrice:  "remove_default_price",
	KindSetDefaultName:      "set_default_name",
	KindRemoveDefaultName:   "remove_default_name",
	KindSetDefaultAction:    "set_default_action",
	KindRemoveDefaultAction: "remove_default_action",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command is a parsed group command.
type Command struct {
	Kind Kind
	// Price is set for KindSetDefaultPrice.
	Price decimal.Decimal
	// Value is set for KindSetDefaultName and KindSetDefaultAction.
	Value string
}

var (
	helpRe                = regexp.MustCompile(`(?i)^/?help(@\w+)?$`)
	balancesLinkRe        = regexp.MustCompile(`(?i)^balances link$`)
	setDefaultPriceRe     = regexp.MustCompile(`(?i)^set default price (\d+(?:[.,]\d+)?)$`)
	removeDefaultPriceRe  = regexp.MustCompile(`(?i)^remove default price$`)
	setDefaultNameRe      = regexp.MustCompile(`(?i)^set default name (.+)$`)
	removeDefaultNameRe   = regexp.MustCompile(`(?i)^remove default name$`)
	setDefaultActionRe    = regexp.MustCompile(`(?i)^set default action (.+)$`)
	removeDefaultActionRe = regexp.MustCompile(`(?i)^remove default action$`)
)

// ParseCommand recognizes a group command. The whole trimmed message must
// match; commands are case-insensitive, values keep their case.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)

	switch {
	case helpRe.MatchString(text):
		return Command{Kind: KindHelp}, true
	case balancesLinkRe.MatchString(text):
		return Command{Kind: KindBalancesLink}, true
	case removeDefaultPriceRe.MatchString(text):
		return Command{Kind: KindRemoveDefaultPrice}, true
	case removeDefaultNameRe.MatchString(text):
		return Command{Kind: KindRemoveDefaultName}, true
	case removeDefaultActionRe.MatchString(text):
		return Command{Kind: KindRemoveDefaultAction}, true
	}

	if m := setDefaultPriceRe.FindStringSubmatch(text); m != nil {
		price, ok := parsePrice(m[1])
		if !ok {
			return Command{}, false
		}
		return Command{Kind: KindSetDefaultPrice, Price: price}, true
	}
	if m := setDefaultNameRe.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindSetDefaultName, Value: strings.TrimSpace(m[1])}, true
	}
	if m := setDefaultActionRe.FindStringSubmatch(text); m != nil {
		return Command{Kind: KindSetDefaultAction, Value: strings.TrimSpace(m[1])}, true
	}
	return Command{}, false
}

// parsePrice accepts "90", "12.50" and "12,50". Zero is not a price, and
// neither is anything finer than a cent.
func parsePrice(s string) (decimal.Decimal, bool) {
	price, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil || !price.IsPositive() {
		return decimal.Zero, false
	}
	if !price.Equal(price.Truncate(calculator.ShareScale)) {
		return decimal.Zero, false
	}
	return price, true
}

// HelpText lists what the bot understands, as Telegram HTML.
const HelpText = "<b>How to use</b>\n\n" +
	"Post a message with a time and a question mark, e.g. <code>Football today 19:00?</code>, " +
	"to start a new expense. Add <code>[90]</code> to set its price and <code>{football}</code> to name it.\n\n" +
	"Then use the buttons to join, pay, mark it free and finish it. " +
	"Finishing applies the split to everyone's balance.\n\n" +
	"<b>Group commands</b>\n" +
	"<code>balances link</code> - link to the group balances\n" +
	"<code>set default price 90</code> / <code>remove default price</code>\n" +
	"<code>set default name football</code> / <code>remove default name</code>\n" +
	"<code>set default action play</code> / <code>remove default action</code>\n" +
	"<code>help</code> - this message"
