// Package memory provides an in-process implementation of storage.Store.
// Its contents live and die with the process, so only a running server can
// make use of it.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type groupRecord struct {
	group *models.Group
	seq   int
}

type expenseRecord struct {
	expense *models.Expense
	seq     int
}

// Store keeps every record in maps guarded by a single mutex.
type Store struct {
	mu          sync.RWMutex
	seq         int
	groups      map[string]*groupRecord
	expenses    map[string]*expenseRecord
	settlements map[string][]*models.Settlement // by group, creation order
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		groups:      make(map[string]*groupRecord),
		expenses:    make(map[string]*expenseRecord),
		settlements: make(map[string][]*models.Settlement),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) next() int {
	s.seq++
	return s.seq
}

func cloneGroup(g *models.Group) *models.Group {
	c := *g
	c.Members = slices.Clone(g.Members)
	return &c
}

func cloneExpense(e *models.Expense) models.Expense {
	c := *e
	c.Shares = slices.Clone(e.Shares)
	return c
}

func (s *Store) group(groupID string) (*groupRecord, error) {
	rec, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	return rec, nil
}

func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if _, ok := s.groups[group.ID]; ok {
		return fmt.Errorf("group %s: %w", group.ID, storage.ErrAlreadyExists)
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	seen := make(map[string]bool, len(group.Members))
	for i := range group.Members {
		m := &group.Members[i]
		if err := m.Validate(); err != nil {
			return err
		}
		if seen[m.ID] {
			return fmt.Errorf("member %s: %w", m.ID, storage.ErrAlreadyExists)
		}
		seen[m.ID] = true
		m.GroupID = group.ID
		if m.JoinedAt == 0 {
			m.JoinedAt = group.CreatedAt
		}
	}

	s.groups[group.ID] = &groupRecord{group: cloneGroup(group), seq: s.next()}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.group(groupID)
	if err != nil {
		return nil, err
	}
	return cloneGroup(rec.group), nil
}

func (s *Store) ListGroupsByMember(ctx context.Context, memberID string) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []*groupRecord
	for _, rec := range s.groups {
		if rec.group.HasMember(memberID) {
			recs = append(recs, rec)
		}
	}
	slices.SortFunc(recs, func(a, b *groupRecord) int {
		if a.group.CreatedAt != b.group.CreatedAt {
			return int(a.group.CreatedAt - b.group.CreatedAt)
		}
		return a.seq - b.seq
	})

	groups := make([]*models.Group, 0, len(recs))
	for _, rec := range recs {
		groups = append(groups, cloneGroup(rec.group))
	}
	return groups, nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.group(groupID); err != nil {
		return err
	}
	delete(s.groups, groupID)
	delete(s.settlements, groupID)
	for id, rec := range s.expenses {
		if rec.expense.GroupID == groupID {
			delete(s.expenses, id)
		}
	}
	return nil
}

func (s *Store) AddMember(ctx context.Context, member *models.Member) error {
	if err := member.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.group(member.GroupID)
	if err != nil {
		return err
	}
	if rec.group.HasMember(member.ID) {
		return fmt.Errorf("member %s: %w", member.ID, storage.ErrAlreadyExists)
	}
	if member.JoinedAt == 0 {
		member.JoinedAt = time.Now().Unix()
	}
	rec.group.Members = append(rec.group.Members, *member)
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, groupID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.group(groupID)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(rec.group.Members, func(m models.Member) bool { return m.ID == memberID })
	if idx < 0 {
		return fmt.Errorf("member %s in group %s: %w", memberID, groupID, storage.ErrNotFound)
	}

	referenced := false
	for _, st := range s.settlements[groupID] {
		if !st.Involves(memberID) {
			continue
		}
		if st.Status == models.SettlementPending {
			return fmt.Errorf("member %s: %w", memberID, storage.ErrMemberHasPendingSettlements)
		}
		referenced = true
	}
	for _, e := range s.expenses {
		if e.expense.GroupID != groupID {
			continue
		}
		if e.expense.PaidBy == memberID ||
			slices.ContainsFunc(e.expense.Shares, func(sh models.Share) bool { return sh.MemberID == memberID }) {
			referenced = true
		}
	}
	if referenced {
		return fmt.Errorf("member %s: %w", memberID, storage.ErrMemberReferenced)
	}

	rec.group.Members = slices.Delete(rec.group.Members, idx, idx+1)
	return nil
}

func (s *Store) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.group(groupID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(rec.group.Members), nil
}

func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if err := expense.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.group(expense.GroupID); err != nil {
		return err
	}
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if _, ok := s.expenses[expense.ID]; ok {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrAlreadyExists)
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	for i := range expense.Shares {
		expense.Shares[i].ExpenseID = expense.ID
	}

	c := cloneExpense(expense)
	s.expenses[expense.ID] = &expenseRecord{expense: &c, seq: s.next()}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.expenses[expenseID]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	c := cloneExpense(rec.expense)
	return &c, nil
}

func (s *Store) ListExpenses(ctx context.Context, groupID string) ([]models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.group(groupID); err != nil {
		return nil, err
	}
	return s.listExpenses(groupID), nil
}

func (s *Store) listExpenses(groupID string) []models.Expense {
	var recs []*expenseRecord
	for _, rec := range s.expenses {
		if rec.expense.GroupID == groupID {
			recs = append(recs, rec)
		}
	}
	// Newest first.
	slices.SortFunc(recs, func(a, b *expenseRecord) int {
		if a.expense.CreatedAt != b.expense.CreatedAt {
			return int(b.expense.CreatedAt - a.expense.CreatedAt)
		}
		return b.seq - a.seq
	})

	expenses := make([]models.Expense, 0, len(recs))
	for _, rec := range recs {
		expenses = append(expenses, cloneExpense(rec.expense))
	}
	return expenses
}

func (s *Store) DeleteExpense(ctx context.Context, expenseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[expenseID]; !ok {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	delete(s.expenses, expenseID)
	return nil
}

func (s *Store) GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, err := s.settlement(settlementID)
	if err != nil {
		return nil, err
	}
	c := *st
	return &c, nil
}

func (s *Store) settlement(settlementID string) (*models.Settlement, error) {
	for _, list := range s.settlements {
		for _, st := range list {
			if st.ID == settlementID {
				return st, nil
			}
		}
	}
	return nil, fmt.Errorf("settlement %s: %w", settlementID, storage.ErrNotFound)
}

func (s *Store) ListSettlements(ctx context.Context, groupID string, status models.SettlementStatus) ([]models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.group(groupID); err != nil {
		return nil, err
	}
	return s.listSettlements(groupID, status), nil
}

func (s *Store) listSettlements(groupID string, status models.SettlementStatus) []models.Settlement {
	var out []models.Settlement
	for _, st := range s.settlements[groupID] {
		if status == "" || st.Status == status {
			out = append(out, *st)
		}
	}
	return out
}

// ReadLedger copies the group's records under the read lock.
func (s *Store) ReadLedger(ctx context.Context, groupID string) (*storage.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.readLedger(groupID)
}

func (s *Store) readLedger(groupID string) (*storage.Ledger, error) {
	rec, err := s.group(groupID)
	if err != nil {
		return nil, err
	}
	return &storage.Ledger{
		GroupID:   groupID,
		Members:   slices.Clone(rec.group.Members),
		Expenses:  s.listExpenses(groupID),
		Completed: s.listSettlements(groupID, models.SettlementCompleted),
	}, nil
}

func (s *Store) ReplacePendingSettlements(ctx context.Context, groupID string, drafts []*models.Settlement) error {
	if err := prepareDrafts(groupID, drafts); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.group(groupID); err != nil {
		return err
	}
	s.replacePending(groupID, drafts)
	return nil
}

// ApplyPlan holds the write lock from the ledger read to the plan swap.
func (s *Store) ApplyPlan(ctx context.Context, groupID string, plan storage.PlanFunc) ([]*models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.readLedger(groupID)
	if err != nil {
		return nil, err
	}

	drafts, planErr := plan(l)
	if planErr != nil {
		s.replacePending(groupID, nil)
		return nil, planErr
	}
	if err := prepareDrafts(groupID, drafts); err != nil {
		return nil, err
	}
	s.replacePending(groupID, drafts)
	return drafts, nil
}

func prepareDrafts(groupID string, drafts []*models.Settlement) error {
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
	return nil
}

// replacePending must be called with the write lock held.
func (s *Store) replacePending(groupID string, drafts []*models.Settlement) {
	kept := slices.DeleteFunc(s.settlements[groupID], func(st *models.Settlement) bool {
		return st.Status == models.SettlementPending
	})
	for _, draft := range drafts {
		c := *draft
		kept = append(kept, &c)
	}
	s.settlements[groupID] = kept
}

func (s *Store) CompleteSettlement(ctx context.Context, settlementID string, settledAt int64) (*models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.settlement(settlementID)
	if err != nil {
		return nil, err
	}
	if st.Status != models.SettlementPending {
		return nil, fmt.Errorf("settlement %s is %s: %w", settlementID, st.Status, storage.ErrSettlementNotPending)
	}
	st.Status = models.SettlementCompleted
	st.SettledAt = settledAt
	c := *st
	return &c, nil
}
