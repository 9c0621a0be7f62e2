package calculator

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Transfer is one instruction of a settlement plan: From pays To the Amount.
type Transfer struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// position is a member's outstanding magnitude while a plan is being built.
type position struct {
	memberID  string
	remaining decimal.Decimal
}

// PlanSettlements turns balances into transfers that bring every balance
// within Epsilon of zero.
//
// Debtors are sorted by debt (largest first), creditors by credit (largest
// first), ties keep their input order. A two-pointer greedy walk then matches
// the current debtor with the current creditor for min(debt, credit), moving
// past whoever is settled. Transfers come back in match order and amounts are
// rounded to two places.
//
// A single member never transfers. Otherwise total debt and total credit,
// summed over every non-zero net, must agree within Epsilon or the plan is
// refused with *BalanceInconsistencyError. Only then does an empty debtor or
// creditor side mean the group is settled.
func PlanSettlements(balances []Balance) ([]Transfer, error) {
	if len(balances) < 2 {
		return nil, nil
	}

	var debtors, creditors []position
	debt, credit := decimal.Zero, decimal.Zero
	for _, b := range balances {
		if b.Net.IsNegative() {
			debt = debt.Sub(b.Net)
		} else {
			credit = credit.Add(b.Net)
		}

		switch {
		case b.Net.LessThan(Epsilon.Neg()):
			debtors = append(debtors, position{memberID: b.MemberID, remaining: b.Net.Neg()})
		case b.Net.GreaterThan(Epsilon):
			creditors = append(creditors, position{memberID: b.MemberID, remaining: b.Net})
		}
	}

	if debt.Sub(credit).Abs().GreaterThan(Epsilon) {
		return nil, &BalanceInconsistencyError{Debt: debt, Credit: credit}
	}
	if len(debtors) == 0 || len(creditors) == 0 {
		return nil, nil
	}

	byRemaining := func(p []position) func(i, j int) bool {
		return func(i, j int) bool { return p[i].remaining.GreaterThan(p[j].remaining) }
	}
	sort.SliceStable(debtors, byRemaining(debtors))
	sort.SliceStable(creditors, byRemaining(creditors))

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor, creditor := &debtors[i], &creditors[j]

		amount := decimal.Min(debtor.remaining, creditor.remaining)
		if amount.GreaterThan(Epsilon) {
			transfers = append(transfers, Transfer{
				From:   debtor.memberID,
				To:     creditor.memberID,
				Amount: Round2(amount),
			})
		}

		debtor.remaining = debtor.remaining.Sub(amount)
		creditor.remaining = creditor.remaining.Sub(amount)

		if debtor.remaining.LessThanOrEqual(Epsilon) {
			i++
		}
		if creditor.remaining.LessThanOrEqual(Epsilon) {
			j++
		}
	}
	return transfers, nil
}
