package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func share(member, amount string) Share {
	return Share{MemberID: member, Amount: decimal.RequireFromString(amount)}
}

func TestExpenseValidate(t *testing.T) {
	tests := []struct {
		name    string
		expense Expense
		wantErr bool
	}{
		{
			name: "valid equal split",
			expense: Expense{
				Amount: decimal.RequireFromString("90"),
				PaidBy: "A",
				Shares: []Share{share("A", "30"), share("B", "30"), share("C", "30")},
			},
		},
		{
			name: "shares need not sum to amount",
			expense: Expense{
				Amount: decimal.RequireFromString("90"),
				PaidBy: "A",
				Shares: []Share{share("A", "40"), share("B", "40"), share("C", "40")},
			},
		},
		{
			name: "zero share allowed",
			expense: Expense{
				Amount: decimal.RequireFromString("10"),
				PaidBy: "A",
				Shares: []Share{share("A", "10"), share("B", "0")},
			},
		},
		{
			name:    "zero amount",
			expense: Expense{Amount: decimal.Zero, PaidBy: "A", Shares: []Share{share("A", "0")}},
			wantErr: true,
		},
		{
			name:    "missing payer",
			expense: Expense{Amount: decimal.RequireFromString("10"), Shares: []Share{share("A", "10")}},
			wantErr: true,
		},
		{
			name:    "no shares",
			expense: Expense{Amount: decimal.RequireFromString("10"), PaidBy: "A"},
			wantErr: true,
		},
		{
			name: "negative share",
			expense: Expense{
				Amount: decimal.RequireFromString("10"),
				PaidBy: "A",
				Shares: []Share{share("A", "15"), share("B", "-5")},
			},
			wantErr: true,
		},
		{
			name: "duplicate member",
			expense: Expense{
				Amount: decimal.RequireFromString("10"),
				PaidBy: "A",
				Shares: []Share{share("B", "5"), share("B", "5")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.expense.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidExpense) {
				t.Errorf("expected ErrInvalidExpense, got %v", err)
			}
		})
	}
}

func TestSettlementValidate(t *testing.T) {
	valid := Settlement{
		FromMemberID: "B",
		ToMemberID:   "A",
		Amount:       decimal.RequireFromString("30"),
		Status:       SettlementPending,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	self := valid
	self.ToMemberID = "B"
	if err := self.Validate(); !errors.Is(err, ErrInvalidSettlement) {
		t.Errorf("self settlement: expected ErrInvalidSettlement, got %v", err)
	}

	zero := valid
	zero.Amount = decimal.Zero
	if err := zero.Validate(); !errors.Is(err, ErrInvalidSettlement) {
		t.Errorf("zero amount: expected ErrInvalidSettlement, got %v", err)
	}

	unknown := valid
	unknown.Status = "paid"
	if err := unknown.Validate(); !errors.Is(err, ErrInvalidSettlement) {
		t.Errorf("unknown status: expected ErrInvalidSettlement, got %v", err)
	}
}

func TestGroupMembers(t *testing.T) {
	g := &Group{Members: []Member{{ID: "A", DisplayName: "Asha"}, {ID: "B", DisplayName: "Bilal"}}}

	if !g.HasMember("B") {
		t.Error("expected B to be a member")
	}
	if g.HasMember("Z") {
		t.Error("did not expect Z to be a member")
	}
	if m, ok := g.Member("A"); !ok || m.DisplayName != "Asha" {
		t.Errorf("Member(A) = %+v, %v", m, ok)
	}
	ids := g.MemberIDs()
	if len(ids) != 2 || ids[0] != "A" || ids[1] != "B" {
		t.Errorf("MemberIDs() = %v", ids)
	}
}
