package calculator

import "github.com/shopspring/decimal"

// Epsilon is the tolerance for every "is zero" comparison on balances.
var Epsilon = decimal.New(1, -2)

// Round2 rounds to two decimal places, half away from zero.
// Use it only when presenting or emitting amounts, never mid-computation.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsSettled reports whether d is within Epsilon of zero.
func IsSettled(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(Epsilon)
}
