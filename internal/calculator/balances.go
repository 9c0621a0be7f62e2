package calculator

import (
	"fmt"

	"github.com/mmynk/settleup/internal/models"
	"github.com/shopspring/decimal"
)

// Balance is the derived financial position of one member.
type Balance struct {
	MemberID string
	Paid     decimal.Decimal // expenses paid plus completed settlements sent
	Owed     decimal.Decimal // shares owed plus completed settlements received
	Net      decimal.Decimal // Paid - Owed. Positive = owed money, Negative = owes money
}

// ComputeBalances derives every member's balance from expenses, their shares
// and completed settlements. Balances are returned in member order.
//
// Algorithm:
//   - For each expense: payer's Paid += amount, each share member's Owed += share
//   - For each completed settlement: debtor's Paid += amount, creditor's Owed += amount
//   - Net = Paid - Owed
//
// Settlements that are not completed are ignored. A reference to a member that
// is not in members fails with *ReferentialIntegrityError.
func ComputeBalances(members []models.Member, expenses []models.Expense, settlements []models.Settlement) ([]Balance, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	balances := make([]Balance, len(members))
	index := make(map[string]int, len(members))
	for i, m := range members {
		if _, dup := index[m.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, m.ID)
		}
		index[m.ID] = i
		balances[i] = Balance{MemberID: m.ID}
	}

	resolve := func(record, recordID, field, memberID string) (*Balance, error) {
		i, ok := index[memberID]
		if !ok {
			return nil, &ReferentialIntegrityError{
				Record:   record,
				RecordID: recordID,
				Field:    field,
				MemberID: memberID,
			}
		}
		return &balances[i], nil
	}

	for _, expense := range expenses {
		payer, err := resolve(RecordExpense, expense.ID, "paid_by", expense.PaidBy)
		if err != nil {
			return nil, err
		}
		payer.Paid = payer.Paid.Add(expense.Amount)

		for _, share := range expense.Shares {
			member, err := resolve(RecordShare, expense.ID, "member_id", share.MemberID)
			if err != nil {
				return nil, err
			}
			member.Owed = member.Owed.Add(share.Amount)
		}
	}

	for _, s := range settlements {
		if s.Status != models.SettlementCompleted {
			continue
		}
		from, err := resolve(RecordSettlement, s.ID, "from_member_id", s.FromMemberID)
		if err != nil {
			return nil, err
		}
		to, err := resolve(RecordSettlement, s.ID, "to_member_id", s.ToMemberID)
		if err != nil {
			return nil, err
		}
		// The debtor has effectively paid more, the creditor has received part of what they were owed.
		from.Paid = from.Paid.Add(s.Amount)
		to.Owed = to.Owed.Add(s.Amount)
	}

	for i := range balances {
		balances[i].Net = balances[i].Paid.Sub(balances[i].Owed)
	}
	return balances, nil
}

// Totals returns the sum of Paid and Owed across balances.
func Totals(balances []Balance) (paid, owed decimal.Decimal) {
	for _, b := range balances {
		paid = paid.Add(b.Paid)
		owed = owed.Add(b.Owed)
	}
	return paid, owed
}
