package calculator

import (
	"github.com/google/go-cmp/cmp"
	"github.com/mmynk/settleup/internal/models"
	"github.com/shopspring/decimal"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func members(ids ...string) []models.Member {
	out := make([]models.Member, len(ids))
	for i, id := range ids {
		out[i] = models.Member{ID: id, DisplayName: id}
	}
	return out
}

// expense builds an expense where shares are given as member/amount pairs.
func expense(id, payer, amount string, shares ...string) models.Expense {
	e := models.Expense{ID: id, PaidBy: payer, Amount: d(amount)}
	for i := 0; i+1 < len(shares); i += 2 {
		e.Shares = append(e.Shares, models.Share{ExpenseID: id, MemberID: shares[i], Amount: d(shares[i+1])})
	}
	return e
}

func completed(id, from, to, amount string) models.Settlement {
	return models.Settlement{
		ID:           id,
		FromMemberID: from,
		ToMemberID:   to,
		Amount:       d(amount),
		Status:       models.SettlementCompleted,
	}
}
