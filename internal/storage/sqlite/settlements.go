package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

const settlementColumns = "id, group_id, from_member_id, to_member_id, amount, status, created_at, settled_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row rowScanner) (models.Settlement, error) {
	var st models.Settlement
	err := row.Scan(&st.ID, &st.GroupID, &st.FromMemberID, &st.ToMemberID,
		&st.Amount, &st.Status, &st.CreatedAt, &st.SettledAt)
	return st, err
}

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	st, err := scanSettlement(s.db.QueryRowContext(ctx,
		"SELECT "+settlementColumns+" FROM settlements WHERE id = ?",
		settlementID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return &st, nil
}

// ListSettlements retrieves a group's settlements in creation order.
func (s *SQLiteStore) ListSettlements(ctx context.Context, groupID string, status models.SettlementStatus) ([]models.Settlement, error) {
	if err := groupExists(ctx, s.db, groupID); err != nil {
		return nil, err
	}
	return listSettlements(ctx, s.db, groupID, status)
}

func listSettlements(ctx context.Context, q querier, groupID string, status models.SettlementStatus) ([]models.Settlement, error) {
	query := "SELECT " + settlementColumns + " FROM settlements WHERE group_id = ?"
	args := []any{groupID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at, rowid"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}

// ReplacePendingSettlements swaps the group's pending plan for drafts.
func (s *SQLiteStore) ReplacePendingSettlements(ctx context.Context, groupID string, drafts []*models.Settlement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := groupExists(ctx, tx, groupID); err != nil {
		return err
	}
	if err := replacePending(ctx, tx, groupID, drafts); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ApplyPlan reads the group's ledger and stores the drafts plan returns as
// the new pending plan, all in one transaction. When plan fails the old
// pending plan is still discarded and plan's error is returned.
func (s *SQLiteStore) ApplyPlan(ctx context.Context, groupID string, plan storage.PlanFunc) ([]*models.Settlement, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	l, err := readLedger(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}

	drafts, planErr := plan(l)
	if planErr != nil {
		drafts = nil
	}
	if err := replacePending(ctx, tx, groupID, drafts); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	if planErr != nil {
		return nil, planErr
	}
	return drafts, nil
}

func replacePending(ctx context.Context, tx *sql.Tx, groupID string, drafts []*models.Settlement) error {
	now := time.Now().Unix()
	for _, draft := range drafts {
		draft.GroupID = groupID
		draft.Status = models.SettlementPending
		draft.SettledAt = 0
		if draft.ID == "" {
			draft.ID = uuid.New().String()
		}
		if draft.CreatedAt == 0 {
			draft.CreatedAt = now
		}
		if err := draft.Validate(); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM settlements WHERE group_id = ? AND status = 'pending'",
		groupID,
	); err != nil {
		return fmt.Errorf("failed to delete pending settlements: %w", err)
	}

	for _, draft := range drafts {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO settlements ("+settlementColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			draft.ID, draft.GroupID, draft.FromMemberID, draft.ToMemberID,
			draft.Amount, draft.Status, draft.CreatedAt, draft.SettledAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert settlement: %w", err)
		}
	}
	return nil
}

// CompleteSettlement marks a pending settlement as completed.
// The conditional update makes the transition single-writer.
func (s *SQLiteStore) CompleteSettlement(ctx context.Context, settlementID string, settledAt int64) (*models.Settlement, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE settlements SET status = 'completed', settled_at = ? WHERE id = ? AND status = 'pending'",
		settledAt, settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to complete settlement: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check updated rows: %w", err)
	}

	st, err := s.GetSettlement(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("settlement %s is %s: %w", settlementID, st.Status, storage.ErrSettlementNotPending)
	}
	return st, nil
}
