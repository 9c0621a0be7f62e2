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

// CreateGroup persists a new group and its initial members.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	seen := make(map[string]bool, len(group.Members))
	for _, m := range group.Members {
		if err := m.Validate(); err != nil {
			return err
		}
		if seen[m.ID] {
			return fmt.Errorf("member %s: %w", m.ID, storage.ErrAlreadyExists)
		}
		seen[m.ID] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, description, created_by, created_at) VALUES (?, ?, ?, ?, ?)",
		group.ID, group.Name, group.Description, group.CreatedBy, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i := range group.Members {
		member := &group.Members[i]
		member.GroupID = group.ID
		if member.JoinedAt == 0 {
			member.JoinedAt = group.CreatedAt
		}
		if err := insertMember(ctx, tx, member); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertMember(ctx context.Context, q querier, m *models.Member) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO group_members (group_id, member_id, display_name, payment_address, joined_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.GroupID, m.ID, m.DisplayName, m.PaymentAddress, m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID, including its members.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_by, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.Description, &group.CreatedBy, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group.Members, err = listMembers(ctx, s.db, groupID)
	if err != nil {
		return nil, err
	}
	return group, nil
}

// ListGroupsByMember returns the groups memberID belongs to.
func (s *SQLiteStore) ListGroupsByMember(ctx context.Context, memberID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id FROM groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.member_id = ?
		 ORDER BY g.created_at, g.rowid`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	groups := make([]*models.Group, 0, len(ids))
	for _, id := range ids {
		group, err := s.GetGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// DeleteGroup removes a group; members, expenses, shares and settlements cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	return nil
}

// AddMember adds a member to an existing group.
func (s *SQLiteStore) AddMember(ctx context.Context, member *models.Member) error {
	if err := member.Validate(); err != nil {
		return err
	}
	if member.JoinedAt == 0 {
		member.JoinedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := groupExists(ctx, tx, member.GroupID); err != nil {
		return err
	}

	taken, err := exists(ctx, tx,
		"SELECT 1 FROM group_members WHERE group_id = ? AND member_id = ?",
		member.GroupID, member.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to check member existence: %w", err)
	}
	if taken {
		return fmt.Errorf("member %s: %w", member.ID, storage.ErrAlreadyExists)
	}

	if err := insertMember(ctx, tx, member); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RemoveMember removes a member that nothing in the group refers to.
func (s *SQLiteStore) RemoveMember(ctx context.Context, groupID, memberID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	found, err := exists(ctx, tx,
		"SELECT 1 FROM group_members WHERE group_id = ? AND member_id = ?",
		groupID, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to check member existence: %w", err)
	}
	if !found {
		return fmt.Errorf("member %s in group %s: %w", memberID, groupID, storage.ErrNotFound)
	}

	pending, err := exists(ctx, tx,
		`SELECT 1 FROM settlements
		 WHERE group_id = ? AND status = 'pending' AND (from_member_id = ? OR to_member_id = ?)`,
		groupID, memberID, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to check pending settlements: %w", err)
	}
	if pending {
		return fmt.Errorf("member %s: %w", memberID, storage.ErrMemberHasPendingSettlements)
	}

	referenced, err := exists(ctx, tx,
		`SELECT 1 FROM expenses WHERE group_id = ? AND paid_by = ?
		 UNION ALL
		 SELECT 1 FROM expense_shares es JOIN expenses e ON e.id = es.expense_id
		 WHERE e.group_id = ? AND es.member_id = ?
		 UNION ALL
		 SELECT 1 FROM settlements WHERE group_id = ? AND (from_member_id = ? OR to_member_id = ?)
		 LIMIT 1`,
		groupID, memberID, groupID, memberID, groupID, memberID, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to check member references: %w", err)
	}
	if referenced {
		return fmt.Errorf("member %s: %w", memberID, storage.ErrMemberReferenced)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = ? AND member_id = ?",
		groupID, memberID,
	); err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListMembers returns the members of a group in join order.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	if err := groupExists(ctx, s.db, groupID); err != nil {
		return nil, err
	}
	return listMembers(ctx, s.db, groupID)
}

func listMembers(ctx context.Context, q querier, groupID string) ([]models.Member, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT group_id, member_id, display_name, payment_address, joined_at
		 FROM group_members WHERE group_id = ? ORDER BY rowid`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.GroupID, &m.ID, &m.DisplayName, &m.PaymentAddress, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}
