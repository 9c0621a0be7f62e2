package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNoMembers       = errors.New("at least one member required")
	ErrDuplicateMember = errors.New("duplicate member")
)

// Record kinds reported by ReferentialIntegrityError.
const (
	RecordExpense    = "expense"
	RecordShare      = "share"
	RecordSettlement = "settlement"
)

// ReferentialIntegrityError reports a record pointing at a member that is not
// part of the supplied member list.
type ReferentialIntegrityError struct {
	Record   string // RecordExpense, RecordShare or RecordSettlement
	RecordID string // ID of the offending expense or settlement
	Field    string // field holding the dangling reference
	MemberID string // the unresolved member ID
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s %s: %s references unknown member %q", e.Record, e.RecordID, e.Field, e.MemberID)
}

// BalanceInconsistencyError reports that what debtors owe and what creditors
// are owed differ by more than Epsilon, i.e. the books do not balance.
type BalanceInconsistencyError struct {
	Debt   decimal.Decimal // total owed by debtors, as a positive number
	Credit decimal.Decimal // total owed to creditors
}

func (e *BalanceInconsistencyError) Error() string {
	return fmt.Sprintf("balances do not net to zero: debtors owe %s, creditors are owed %s",
		Round2(e.Debt).StringFixed(2), Round2(e.Credit).StringFixed(2))
}
