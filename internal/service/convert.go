package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/rpc"
)

func formatAmount(d decimal.Decimal) string {
	return calculator.Round2(d).StringFixed(2)
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalidArgument("%s: invalid amount %q", field, s)
	}
	return d, nil
}

func toRPCMember(m models.Member) rpc.Member {
	return rpc.Member{
		ID:             m.ID,
		DisplayName:    m.DisplayName,
		PaymentAddress: m.PaymentAddress,
		JoinedAt:       m.JoinedAt,
	}
}

func toRPCGroup(g *models.Group) rpc.Group {
	members := make([]rpc.Member, len(g.Members))
	for i, m := range g.Members {
		members[i] = toRPCMember(m)
	}
	return rpc.Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedBy:   g.CreatedBy,
		Members:     members,
		CreatedAt:   g.CreatedAt,
	}
}

func toRPCExpense(e *models.Expense) rpc.Expense {
	shares := make([]rpc.Share, len(e.Shares))
	for i, s := range e.Shares {
		shares[i] = rpc.Share{MemberID: s.MemberID, Amount: formatAmount(s.Amount)}
	}
	return rpc.Expense{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Category:    e.Category,
		Amount:      formatAmount(e.Amount),
		PaidBy:      e.PaidBy,
		Shares:      shares,
		CreatedAt:   e.CreatedAt,
	}
}

// memberDirectory resolves display names and payment addresses for output.
type memberDirectory map[string]models.Member

func newMemberDirectory(members []models.Member) memberDirectory {
	dir := make(memberDirectory, len(members))
	for _, m := range members {
		dir[m.ID] = m
	}
	return dir
}

func (d memberDirectory) name(id string) string {
	if m, ok := d[id]; ok {
		return m.DisplayName
	}
	return id
}

func (d memberDirectory) settlement(s *models.Settlement) rpc.Settlement {
	return rpc.Settlement{
		ID:               s.ID,
		GroupID:          s.GroupID,
		FromMemberID:     s.FromMemberID,
		FromName:         d.name(s.FromMemberID),
		ToMemberID:       s.ToMemberID,
		ToName:           d.name(s.ToMemberID),
		ToPaymentAddress: d[s.ToMemberID].PaymentAddress,
		Amount:           formatAmount(s.Amount),
		Status:           string(s.Status),
		CreatedAt:        s.CreatedAt,
		SettledAt:        s.SettledAt,
	}
}

func (d memberDirectory) balance(b calculator.Balance) rpc.Balance {
	return rpc.Balance{
		MemberID:    b.MemberID,
		DisplayName: d.name(b.MemberID),
		Paid:        formatAmount(b.Paid),
		Owed:        formatAmount(b.Owed),
		Net:         formatAmount(b.Net),
	}
}
