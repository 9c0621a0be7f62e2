package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/rpc"
)

func shareAmounts(e rpc.Expense) map[string]string {
	out := make(map[string]string, len(e.Shares))
	for _, s := range e.Shares {
		out[s.MemberID] = s.Amount
	}
	return out
}

func TestCreateExpenseEqualSplit(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.as(t, "alice")
	group := createGroup(t, alice, "bob", "carol")

	tests := []struct {
		name   string
		req    *rpc.CreateExpenseRequest
		payer  string
		shares map[string]string
	}{
		{
			name:   "whole group by default",
			req:    &rpc.CreateExpenseRequest{Description: "Dinner", Amount: "100"},
			payer:  "alice",
			shares: map[string]string{"alice": "33.34", "bob": "33.33", "carol": "33.33"},
		},
		{
			name:   "selected participants",
			req:    &rpc.CreateExpenseRequest{Description: "Cab", Amount: "25.01", PaidBy: "bob", ParticipantIDs: []string{"bob", "carol"}},
			payer:  "bob",
			shares: map[string]string{"bob": "12.51", "carol": "12.50"},
		},
		{
			name:   "amount rounded to cents",
			req:    &rpc.CreateExpenseRequest{Description: "Tip", Amount: "10.005", ParticipantIDs: []string{"carol"}},
			payer:  "alice",
			shares: map[string]string{"carol": "10.01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.GroupID = group.ID
			expense := addExpense(t, alice, tt.req)

			if expense.ID == "" {
				t.Error("expected expense ID")
			}
			if expense.PaidBy != tt.payer {
				t.Errorf("paid_by: expected %s, got %s", tt.payer, expense.PaidBy)
			}
			got := shareAmounts(expense)
			if len(got) != len(tt.shares) {
				t.Fatalf("shares: expected %v, got %v", tt.shares, got)
			}
			for id, want := range tt.shares {
				if got[id] != want {
					t.Errorf("share %s: expected %s, got %s", id, want, got[id])
				}
			}
		})
	}
}

func TestCreateExpenseCustomShares(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.as(t, "alice")
	group := createGroup(t, alice, "bob")

	expense := addExpense(t, alice, &rpc.CreateExpenseRequest{
		GroupID:     group.ID,
		Description: "Groceries",
		Category:    "food",
		Amount:      "30",
		Shares: []rpc.Share{
			{MemberID: "alice", Amount: "10"},
			{MemberID: "bob", Amount: "20"},
		},
	})

	if expense.Amount != "30.00" || expense.Category != "food" {
		t.Errorf("unexpected expense: %+v", expense)
	}
	if got := shareAmounts(expense); got["bob"] != "20.00" {
		t.Errorf("bob share: expected 20.00, got %s", got["bob"])
	}
}

func TestCreateExpenseCustomSharesInCents(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.as(t, "alice")
	group := createGroup(t, alice, "bob", "carol", "dave", "erin")
	ctx := context.Background()

	// 3.333 each would leave alice 0.012 short after four rounded transfers.
	subCent := &rpc.CreateExpenseRequest{GroupID: group.ID, Description: "Tickets", Amount: "13.332"}
	for _, id := range []string{"bob", "carol", "dave", "erin"} {
		subCent.Shares = append(subCent.Shares, rpc.Share{MemberID: id, Amount: "3.333"})
	}
	_, err := alice.expenses.CreateExpense(ctx, connect.NewRequest(subCent))
	wantCode(t, err, connect.CodeInvalidArgument)

	expense := addExpense(t, alice, &rpc.CreateExpenseRequest{
		GroupID:     group.ID,
		Description: "Tickets",
		Amount:      "13.33",
		Shares: []rpc.Share{
			{MemberID: "bob", Amount: "3.330"},
			{MemberID: "carol", Amount: "3.33"},
			{MemberID: "dave", Amount: "3.33"},
			{MemberID: "erin", Amount: "3.34"},
		},
	})
	if got := shareAmounts(expense); got["bob"] != "3.33" || got["erin"] != "3.34" {
		t.Errorf("unexpected shares: %v", got)
	}

	plan := settleUp(t, alice, group.ID)
	total := 0
	for _, st := range plan.Settlements {
		if st.ToMemberID != "alice" {
			t.Errorf("unexpected creditor %s", st.ToMemberID)
		}
		cents, err := decimal.NewFromString(st.Amount)
		if err != nil {
			t.Fatalf("bad amount %q: %v", st.Amount, err)
		}
		total += int(cents.Shift(2).IntPart())
	}
	if total != 1333 {
		t.Errorf("transfers to alice total %d cents, want 1333", total)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	ts := setupTestServer(t)
	alice, mallory := ts.as(t, "alice"), ts.as(t, "mallory")
	group := createGroup(t, alice, "bob")

	tests := []struct {
		name   string
		client clients
		req    rpc.CreateExpenseRequest
		code   connect.Code
	}{
		{"non-member caller", mallory, rpc.CreateExpenseRequest{Amount: "10"}, connect.CodePermissionDenied},
		{"bad amount", alice, rpc.CreateExpenseRequest{Amount: "ten"}, connect.CodeInvalidArgument},
		{"zero amount", alice, rpc.CreateExpenseRequest{Amount: "0"}, connect.CodeInvalidArgument},
		{"negative amount", alice, rpc.CreateExpenseRequest{Amount: "-5"}, connect.CodeInvalidArgument},
		{"payer outside group", alice, rpc.CreateExpenseRequest{Amount: "10", PaidBy: "mallory"}, connect.CodeInvalidArgument},
		{"participant outside group", alice, rpc.CreateExpenseRequest{Amount: "10", ParticipantIDs: []string{"mallory"}}, connect.CodeInvalidArgument},
		{"duplicate participant", alice, rpc.CreateExpenseRequest{Amount: "10", ParticipantIDs: []string{"bob", "bob"}}, connect.CodeInvalidArgument},
		{"negative share", alice, rpc.CreateExpenseRequest{Amount: "10", Shares: []rpc.Share{{MemberID: "bob", Amount: "-1"}}}, connect.CodeInvalidArgument},
		{"duplicate share", alice, rpc.CreateExpenseRequest{Amount: "10", Shares: []rpc.Share{
			{MemberID: "bob", Amount: "5"}, {MemberID: "bob", Amount: "5"},
		}}, connect.CodeInvalidArgument},
		{"sub-cent share", alice, rpc.CreateExpenseRequest{Amount: "10", Shares: []rpc.Share{
			{MemberID: "alice", Amount: "6.667"}, {MemberID: "bob", Amount: "3.333"},
		}}, connect.CodeInvalidArgument},
		{"unknown group", alice, rpc.CreateExpenseRequest{GroupID: "missing", Amount: "10"}, connect.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if req.GroupID == "" {
				req.GroupID = group.ID
			}
			_, err := tt.client.expenses.CreateExpense(context.Background(), connect.NewRequest(&req))
			wantCode(t, err, tt.code)
		})
	}
}

func TestListAndDeleteExpenses(t *testing.T) {
	ts := setupTestServer(t)
	alice, mallory := ts.as(t, "alice"), ts.as(t, "mallory")
	group := createGroup(t, alice, "bob")
	ctx := context.Background()

	first := addExpense(t, alice, &rpc.CreateExpenseRequest{GroupID: group.ID, Description: "First", Amount: "10"})
	second := addExpense(t, alice, &rpc.CreateExpenseRequest{GroupID: group.ID, Description: "Second", Amount: "20"})

	resp, err := alice.expenses.ListExpenses(ctx, connect.NewRequest(&rpc.ListExpensesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(resp.Msg.Expenses) != 2 {
		t.Fatalf("expenses: expected 2, got %d", len(resp.Msg.Expenses))
	}
	if resp.Msg.Expenses[0].ID != second.ID {
		t.Errorf("expected newest expense first, got %s", resp.Msg.Expenses[0].Description)
	}

	_, err = mallory.expenses.DeleteExpense(ctx, connect.NewRequest(&rpc.DeleteExpenseRequest{ExpenseID: first.ID}))
	wantCode(t, err, connect.CodePermissionDenied)

	if _, err := alice.expenses.DeleteExpense(ctx, connect.NewRequest(&rpc.DeleteExpenseRequest{ExpenseID: first.ID})); err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	_, err = alice.expenses.DeleteExpense(ctx, connect.NewRequest(&rpc.DeleteExpenseRequest{ExpenseID: first.ID}))
	wantCode(t, err, connect.CodeNotFound)

	resp, err = alice.expenses.ListExpenses(ctx, connect.NewRequest(&rpc.ListExpensesRequest{GroupID: group.ID}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(resp.Msg.Expenses) != 1 {
		t.Errorf("expenses: expected 1, got %d", len(resp.Msg.Expenses))
	}
}
