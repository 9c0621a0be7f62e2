package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the lifecycle state of a settlement.
type SettlementStatus string

const (
	// SettlementPending marks a planned transfer not yet confirmed.
	SettlementPending SettlementStatus = "pending"
	// SettlementCompleted marks a transfer confirmed as paid.
	SettlementCompleted SettlementStatus = "completed"
)

// ParseSettlementStatus converts a wire value into a SettlementStatus.
func ParseSettlementStatus(s string) (SettlementStatus, error) {
	switch SettlementStatus(s) {
	case SettlementPending, SettlementCompleted:
		return SettlementStatus(s), nil
	default:
		return "", fmt.Errorf("%w: unknown settlement status %q", ErrInvalidSettlement, s)
	}
}

// Settlement represents a payment between group members to clear debts.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// FromMemberID is the member who pays (debtor settling up).
	FromMemberID string

	// ToMemberID is the member who receives payment (creditor being paid).
	ToMemberID string

	// Amount is the payment amount, always positive.
	Amount decimal.Decimal

	// Status is pending until a member confirms the real-world payment.
	Status SettlementStatus

	// CreatedAt is the Unix timestamp when the settlement was planned.
	CreatedAt int64

	// SettledAt is the Unix timestamp of completion, zero while pending.
	SettledAt int64
}

// Validate checks the settlement invariants.
func (s Settlement) Validate() error {
	if s.FromMemberID == "" || s.ToMemberID == "" {
		return fmt.Errorf("%w: both members required", ErrInvalidSettlement)
	}
	if s.FromMemberID == s.ToMemberID {
		return fmt.Errorf("%w: member %s cannot settle with themselves", ErrInvalidSettlement, s.FromMemberID)
	}
	if !s.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidSettlement, s.Amount)
	}
	if _, err := ParseSettlementStatus(string(s.Status)); err != nil {
		return err
	}
	return nil
}

// Involves reports whether memberID is the debtor or the creditor.
func (s Settlement) Involves(memberID string) bool {
	return s.FromMemberID == memberID || s.ToMemberID == memberID
}
