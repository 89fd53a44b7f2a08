package calculator

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Balance is one member's running balance in a group.
type Balance struct {
	MemberID int64
	Amount   decimal.Decimal // Positive = owed money, Negative = owes money
}

// Transfer is a suggested payment that moves a group towards zero balances.
type Transfer struct {
	From   int64 // Member who owes
	To     int64 // Member who is owed
	Amount decimal.Decimal
}

// SettleUp suggests transfers that bring every balance to zero.
//
// Algorithm:
// - Split members into debtors (negative) and creditors (positive)
// - Sort both by magnitude, largest first, ties by member id
// - Greedily match the head debtor with the head creditor for the smaller
//   of the two amounts until one list runs out
//
// Balances in a healthy ledger sum to zero, in which case every debt is
// covered. If they do not, the leftover stays unmatched.
func SettleUp(balances []Balance) []Transfer {
	var debtors, creditors []Balance
	for _, b := range balances {
		switch b.Amount.Sign() {
		case -1:
			debtors = append(debtors, Balance{MemberID: b.MemberID, Amount: b.Amount.Neg()})
		case 1:
			creditors = append(creditors, b)
		}
	}
	byMagnitude := func(list []Balance) {
		sort.Slice(list, func(i, j int) bool {
			if c := list[i].Amount.Cmp(list[j].Amount); c != 0 {
				return c > 0
			}
			return list[i].MemberID < list[j].MemberID
		})
	}
	byMagnitude(debtors)
	byMagnitude(creditors)

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := decimal.Min(debtors[i].Amount, creditors[j].Amount)
		transfers = append(transfers, Transfer{
			From:   debtors[i].MemberID,
			To:     creditors[j].MemberID,
			Amount: amount,
		})

		debtors[i].Amount = debtors[i].Amount.Sub(amount)
		creditors[j].Amount = creditors[j].Amount.Sub(amount)

		if debtors[i].Amount.IsZero() {
			i++
		}
		if creditors[j].Amount.IsZero() {
			j++
		}
	}
	return transfers
}
