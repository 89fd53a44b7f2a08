package calculator

import (
	"github.com/shopspring/decimal"
)

// ShareScale is the number of decimal places a per-person share is kept at.
// Shares are truncated to this scale; whatever is left over is added to the
// payer's share, so shares always add up to the price exactly.
const ShareScale int32 = 2

// Delta is the signed balance adjustment attributed to one member for one
// expense. Positive means the group owes the member.
type Delta struct {
	MemberID int64
	Amount   decimal.Decimal
}

// Shares splits price between n people.
// share is what every non-payer owes; payerShare is share plus the
// truncation remainder, which is always in [0, n) units of the last place.
func Shares(price decimal.Decimal, n int) (share, payerShare decimal.Decimal) {
	if n <= 0 {
		return decimal.Zero, decimal.Zero
	}
	count := decimal.NewFromInt(int64(n))
	share, _ = price.QuoRem(count, ShareScale)
	remainder := price.Sub(share.Mul(count))
	return share, share.Add(remainder)
}

// ComputeDeltas returns each participant's delta for the current
// configuration of an expense, in participant order.
//
// A free expense, or one nobody paid for yet, has no balance effect and
// yields nil. Otherwise the payer gets price minus their own share and every
// other participant gets minus their share, so the deltas sum to zero.
func ComputeDeltas(price decimal.Decimal, participants []int64, payer *int64, isFree bool) []Delta {
	if isFree || payer == nil || len(participants) == 0 {
		return nil
	}

	share, payerShare := Shares(price, len(participants))

	deltas := make([]Delta, 0, len(participants))
	for _, id := range participants {
		amount := share.Neg()
		if id == *payer {
			amount = price.Sub(payerShare)
		}
		deltas = append(deltas, Delta{MemberID: id, Amount: amount})
	}
	return deltas
}

// Sum adds up the amounts of a delta list.
func Sum(deltas []Delta) decimal.Decimal {
	total := decimal.Zero
	for _, d := range deltas {
		total = total.Add(d.Amount)
	}
	return total
}

// Lookup returns the delta for a member, or zero when the member has none.
func Lookup(deltas []Delta, memberID int64) decimal.Decimal {
	for _, d := range deltas {
		if d.MemberID == memberID {
			return d.Amount
		}
	}
	return decimal.Zero
}
