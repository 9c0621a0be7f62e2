// Package ledger loads the records of one group and runs the balance and
// settlement computations over them.
package ledger

import (
	"context"
	"fmt"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// Snapshot holds the records of one group as of a single read.
type Snapshot storage.Ledger

// Load reads a consistent snapshot of the group.
func Load(ctx context.Context, r storage.LedgerReader, groupID string) (*Snapshot, error) {
	l, err := r.ReadLedger(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return (*Snapshot)(l), nil
}

// Settle plans the group from a fresh snapshot and stores the plan as its
// pending settlements, with no completion able to land in between. On a
// planning error the stale pending plan is discarded and the error returned.
// The snapshot is nil when it could not be read.
func Settle(ctx context.Context, st storage.SettlementStore, groupID string) (*Snapshot, []*models.Settlement, error) {
	var snap *Snapshot
	drafts, err := st.ApplyPlan(ctx, groupID, func(l *storage.Ledger) ([]*models.Settlement, error) {
		snap = (*Snapshot)(l)
		_, transfers, err := snap.Plan()
		if err != nil {
			return nil, err
		}
		return Drafts(transfers), nil
	})
	if err != nil {
		return snap, nil, err
	}
	return snap, drafts, nil
}

// Balances computes every member's balance from the snapshot.
func (s *Snapshot) Balances() ([]calculator.Balance, error) {
	return calculator.ComputeBalances(s.Members, s.Expenses, s.Completed)
}

// Plan computes balances and the transfers that settle them.
func (s *Snapshot) Plan() ([]calculator.Balance, []calculator.Transfer, error) {
	balances, err := s.Balances()
	if err != nil {
		return nil, nil, err
	}
	transfers, err := calculator.PlanSettlements(balances)
	if err != nil {
		return balances, nil, err
	}
	return balances, transfers, nil
}

// Member looks up a member of the snapshot by ID.
func (s *Snapshot) Member(memberID string) (models.Member, bool) {
	for _, m := range s.Members {
		if m.ID == memberID {
			return m, true
		}
	}
	return models.Member{}, false
}

// Drafts turns planned transfers into settlement drafts for
// storage.SettlementStore.ReplacePendingSettlements.
func Drafts(transfers []calculator.Transfer) []*models.Settlement {
	drafts := make([]*models.Settlement, len(transfers))
	for i, tr := range transfers {
		drafts[i] = &models.Settlement{
			FromMemberID: tr.From,
			ToMemberID:   tr.To,
			Amount:       tr.Amount,
		}
	}
	return drafts
}
