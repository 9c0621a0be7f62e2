package calculator

import (
	"fmt"

	"github.com/mmynk/settleup/internal/models"
	"github.com/shopspring/decimal"
)

// SplitEqually divides amount among memberIDs in whole minor units (cents).
// Every member gets floor(cents / n); the leftover cents go one each to the
// first members, so the shares always add up to the amount rounded to two places.
//
// Example: 100.00 among A, B, C -> A 33.34, B 33.33, C 33.33
func SplitEqually(amount decimal.Decimal, memberIDs []string) ([]models.Share, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s", amount)
	}
	if len(memberIDs) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	seen := make(map[string]bool, len(memberIDs))
	for _, id := range memberIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, id)
		}
		seen[id] = true
	}

	cents := Round2(amount).Shift(2).IntPart()
	n := int64(len(memberIDs))
	base, leftover := cents/n, cents%n

	shares := make([]models.Share, len(memberIDs))
	for i, id := range memberIDs {
		c := base
		if int64(i) < leftover {
			c++
		}
		shares[i] = models.Share{MemberID: id, Amount: decimal.New(c, -2)}
	}
	return shares, nil
}
