package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// ReadLedger reads a group's members, expenses and completed settlements in
// one transaction.
func (s *SQLiteStore) ReadLedger(ctx context.Context, groupID string) (*storage.Ledger, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	l, err := readLedger(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return l, nil
}

func readLedger(ctx context.Context, q querier, groupID string) (*storage.Ledger, error) {
	if err := groupExists(ctx, q, groupID); err != nil {
		return nil, err
	}

	members, err := listMembers(ctx, q, groupID)
	if err != nil {
		return nil, err
	}
	expenses, err := listExpenses(ctx, q, groupID)
	if err != nil {
		return nil, err
	}
	completed, err := listSettlements(ctx, q, groupID, models.SettlementCompleted)
	if err != nil {
		return nil, err
	}
	return &storage.Ledger{
		GroupID:   groupID,
		Members:   members,
		Expenses:  expenses,
		Completed: completed,
	}, nil
}
