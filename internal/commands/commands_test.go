package commands

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text  string
		ok    bool
		kind  Kind
		price string
		value string
	}{
		{text: "help", ok: true, kind: KindHelp},
		{text: "/help", ok: true, kind: KindHelp},
		{text: "/help@splitbot", ok: true, kind: KindHelp},
		{text: "  Balances Link ", ok: true, kind: KindBalancesLink},
		{text: "set default price 90", ok: true, kind: KindSetDefaultPrice, price: "90"},
		{text: "Set Default Price 12,50", ok: true, kind: KindSetDefaultPrice, price: "12.5"},
		{text: "set default price 0", ok: false},
		{text: "set default price 10.005", ok: false},
		{text: "set default price 10.500", ok: true, kind: KindSetDefaultPrice, price: "10.5"},
		{text: "remove default price", ok: true, kind: KindRemoveDefaultPrice},
		{text: "set default name Football", ok: true, kind: KindSetDefaultName, value: "Football"},
		{text: "remove default name", ok: true, kind: KindRemoveDefaultName},
		{text: "set default action play", ok: true, kind: KindSetDefaultAction, value: "play"},
		{text: "remove default action", ok: true, kind: KindRemoveDefaultAction},
		{text: "who wants to help me", ok: false},
		{text: "Football 19:00?", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, ok := ParseCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.kind, cmd.Kind)
			if tt.price != "" {
				assert.Equal(t, tt.price, cmd.Price.String())
			}
			assert.Equal(t, tt.value, cmd.Value)
		})
	}
}

func TestParseInvite(t *testing.T) {
	tests := []struct {
		text  string
		ok    bool
		price string
		name  string
	}{
		{text: "Football today 19:00?", ok: true},
		{text: "Tomorrow at 8? [90] {football}", ok: true, price: "90", name: "football"},
		{text: "[12.50 eur] dinner", ok: true, price: "12.5"},
		{text: "{pizza} [30]", ok: true, price: "30", name: "pizza"},
		{text: "anyone?", ok: false},
		{text: "I have 2 cats", ok: false},
		{text: "Game 7? {badminton}", ok: true, name: "badminton"},
		{text: "Squash 18:00? [10.005]", ok: true},
		{text: "[10.005] dinner", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			inv, ok := ParseInvite(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.price == "" {
				assert.True(t, inv.Price == nil)
			} else {
				assert.True(t, inv.Price != nil)
				assert.Equal(t, tt.price, inv.Price.String())
			}
			assert.Equal(t, tt.name, inv.Name)
		})
	}
}
