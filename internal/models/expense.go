package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Expense represents an amount paid by one member on behalf of the group.
// Expenses are immutable once created; they can only be deleted, which also
// deletes their shares.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Description is the name of the expense (e.g., "Dinner", "Cab to airport").
	Description string

	// Category is an optional label used for grouping in reports.
	Category string

	// Amount is the total paid. It is credited to the payer.
	Amount decimal.Decimal

	// PaidBy is the member ID of the payer.
	PaidBy string

	// Shares attribute the expense to the members who owe for it.
	// Their sum is usually Amount but this is not enforced here.
	Shares []Share

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// Share is the portion of one expense owed by one member.
type Share struct {
	// ExpenseID is the owning expense.
	ExpenseID string

	// MemberID is the member who owes this share.
	MemberID string

	// Amount is what the member owes, never negative.
	Amount decimal.Decimal
}

// Validate checks the structural invariants of an expense and its shares.
// It does not check that shares sum to the expense amount.
func (e Expense) Validate() error {
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidExpense, e.Amount)
	}
	if e.PaidBy == "" {
		return fmt.Errorf("%w: payer required", ErrInvalidExpense)
	}
	if len(e.Shares) == 0 {
		return fmt.Errorf("%w: at least one share required", ErrInvalidExpense)
	}

	seen := make(map[string]bool, len(e.Shares))
	for _, share := range e.Shares {
		if share.MemberID == "" {
			return fmt.Errorf("%w: share without member", ErrInvalidExpense)
		}
		if share.Amount.IsNegative() {
			return fmt.Errorf("%w: share for %s is negative", ErrInvalidExpense, share.MemberID)
		}
		if seen[share.MemberID] {
			return fmt.Errorf("%w: duplicate share for %s", ErrInvalidExpense, share.MemberID)
		}
		seen[share.MemberID] = true
	}
	return nil
}

// SharesTotal returns the sum of all share amounts.
func (e Expense) SharesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, share := range e.Shares {
		total = total.Add(share.Amount)
	}
	return total
}
