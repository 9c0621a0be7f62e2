// Package storetest holds the behavioural contract every storage.Store
// implementation must satisfy. Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// Factory returns a fresh, empty store. The store is closed by Run.
type Factory func(t *testing.T) storage.Store

// Run executes the full contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"CreateGroupPopulatesFields", testCreateGroupPopulatesFields},
		{"CreateGroupRejectsDuplicateMembers", testCreateGroupRejectsDuplicateMembers},
		{"GetGroupNotFound", testGetGroupNotFound},
		{"ListGroupsByMember", testListGroupsByMember},
		{"AddMember", testAddMember},
		{"RemoveMember", testRemoveMember},
		{"RemoveMemberBlockedByPending", testRemoveMemberBlockedByPending},
		{"RemoveMemberBlockedByExpense", testRemoveMemberBlockedByExpense},
		{"DeleteGroupCascades", testDeleteGroupCascades},
		{"ExpenseRoundTrip", testExpenseRoundTrip},
		{"ListExpensesNewestFirst", testListExpensesNewestFirst},
		{"DeleteExpense", testDeleteExpense},
		{"ReplacePendingSettlements", testReplacePendingSettlements},
		{"CompleteSettlement", testCompleteSettlement},
		{"CompleteSettlementSingleWinner", testCompleteSettlementSingleWinner},
		{"ReadLedger", testReadLedger},
		{"ApplyPlan", testApplyPlan},
		{"ApplyPlanDiscardsOnError", testApplyPlanDiscardsOnError},
		{"ApplyPlanSerializesWithCompletion", testApplyPlanSerializesWithCompletion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newGroup(t *testing.T, s storage.Store, memberIDs ...string) *models.Group {
	t.Helper()
	group := &models.Group{Name: "Flat", CreatedBy: memberIDs[0]}
	for _, id := range memberIDs {
		group.Members = append(group.Members, models.Member{ID: id, DisplayName: "Member " + id})
	}
	require.NoError(t, s.CreateGroup(context.Background(), group))
	return group
}

func newExpense(t *testing.T, s storage.Store, groupID, payer string, createdAt int64, shares map[string]string) *models.Expense {
	t.Helper()
	expense := &models.Expense{
		GroupID:     groupID,
		Description: "Dinner",
		PaidBy:      payer,
		CreatedAt:   createdAt,
	}
	total := decimal.Zero
	for _, id := range []string{"alice", "bob", "carol"} {
		amount, ok := shares[id]
		if !ok {
			continue
		}
		expense.Shares = append(expense.Shares, models.Share{MemberID: id, Amount: dec(amount)})
		total = total.Add(dec(amount))
	}
	expense.Amount = total
	require.NoError(t, s.CreateExpense(context.Background(), expense))
	return expense
}

func draft(from, to, amount string) *models.Settlement {
	return &models.Settlement{FromMemberID: from, ToMemberID: to, Amount: dec(amount)}
}

func testCreateGroupPopulatesFields(t *testing.T, s storage.Store) {
	group := newGroup(t, s, "alice", "bob")

	require.NotEmpty(t, group.ID)
	require.NotZero(t, group.CreatedAt)
	for _, m := range group.Members {
		require.Equal(t, group.ID, m.GroupID)
		require.NotZero(t, m.JoinedAt)
	}

	got, err := s.GetGroup(context.Background(), group.ID)
	require.NoError(t, err)
	require.Equal(t, "Flat", got.Name)
	require.Equal(t, []string{"alice", "bob"}, got.MemberIDs())
}

func testCreateGroupRejectsDuplicateMembers(t *testing.T, s storage.Store) {
	group := &models.Group{
		Name: "Dupes",
		Members: []models.Member{
			{ID: "alice", DisplayName: "Alice"},
			{ID: "alice", DisplayName: "Alice again"},
		},
	}
	err := s.CreateGroup(context.Background(), group)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func testGetGroupNotFound(t *testing.T, s storage.Store) {
	ctx := context.Background()

	_, err := s.GetGroup(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.ListMembers(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.ListExpenses(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.ListSettlements(ctx, "missing", "")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.ErrorIs(t, s.DeleteGroup(ctx, "missing"), storage.ErrNotFound)
}

func testListGroupsByMember(t *testing.T, s storage.Store) {
	ctx := context.Background()
	first := newGroup(t, s, "alice", "bob")
	newGroup(t, s, "bob", "carol")
	third := newGroup(t, s, "carol", "alice")

	groups, err := s.ListGroupsByMember(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, first.ID, groups[0].ID)
	require.Equal(t, third.ID, groups[1].ID)

	groups, err = s.ListGroupsByMember(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, groups)
}

func testAddMember(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice")

	member := &models.Member{GroupID: group.ID, ID: "bob", DisplayName: "Bob", PaymentAddress: "bob@upi"}
	require.NoError(t, s.AddMember(ctx, member))
	require.NotZero(t, member.JoinedAt)

	err := s.AddMember(ctx, &models.Member{GroupID: group.ID, ID: "bob", DisplayName: "Bob"})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	err = s.AddMember(ctx, &models.Member{GroupID: "missing", ID: "carol", DisplayName: "Carol"})
	require.ErrorIs(t, err, storage.ErrNotFound)

	err = s.AddMember(ctx, &models.Member{GroupID: group.ID, ID: "dave"})
	require.ErrorIs(t, err, models.ErrInvalidMember)

	members, err := s.ListMembers(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, "bob", members[1].ID)
	require.Equal(t, "bob@upi", members[1].PaymentAddress)
}

func testRemoveMember(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice", "bob")

	require.NoError(t, s.RemoveMember(ctx, group.ID, "bob"))
	require.ErrorIs(t, s.RemoveMember(ctx, group.ID, "bob"), storage.ErrNotFound)

	members, err := s.ListMembers(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, "alice", members[0].ID)
}

func testRemoveMemberBlockedByPending(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice", "bob", "carol")
	require.NoError(t, s.ReplacePendingSettlements(ctx, group.ID, []*models.Settlement{draft("bob", "alice", "5.00")}))

	err := s.RemoveMember(ctx, group.ID, "bob")
	require.ErrorIs(t, err, storage.ErrMemberHasPendingSettlements)

	require.NoError(t, s.RemoveMember(ctx, group.ID, "carol"))
}

func testRemoveMemberBlockedByExpense(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice", "bob", "carol")
	newExpense(t, s, group.ID, "alice", 0, map[string]string{"alice": "5", "bob": "5"})

	require.ErrorIs(t, s.RemoveMember(ctx, group.ID, "alice"), storage.ErrMemberReferenced)
	require.ErrorIs(t, s.RemoveMember(ctx, group.ID, "bob"), storage.ErrMemberReferenced)
	require.NoError(t, s.RemoveMember(ctx, group.ID, "carol"))
}

func testDeleteGroupCascades(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice", "bob")
	expense := newExpense(t, s, group.ID, "alice", 0, map[string]string{"alice": "5", "bob": "5"})
	drafts := []*models.Settlement{draft("bob", "alice", "5.00")}
	require.NoError(t, s.ReplacePendingSettlements(ctx, group.ID, drafts))

	require.NoError(t, s.DeleteGroup(ctx, group.ID))

	_, err := s.GetGroup(ctx, group.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetExpense(ctx, expense.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetSettlement(ctx, drafts[0].ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func testExpenseRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice", "bob", "carol")
	created := newExpense(t, s, group.ID, "alice", 0, map[string]string{"alice": "10.01", "bob": "10", "carol": "9.99"})

	require.NotEmpty(t, created.ID)
	require.NotZero(t, created.CreatedAt)

	got, err := s.GetExpense(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, group.ID, got.GroupID)
	require.Equal(t, "alice", got.PaidBy)
	require.True(t, got.Amount.Equal(dec("30")), "amount = %s", got.Amount)
	require.Len(t, got.Shares, 3)
	for i, want := range []string{"10.01", "10", "9.99"} {
		require.Equal(t, created.ID, got.Shares[i].ExpenseID)
		require.True(t, got.Shares[i].Amount.Equal(dec(want)), "share %d = %s", i, got.Shares[i].Amount)
	}

	err = s.CreateExpense(ctx, &models.Expense{GroupID: "missing", PaidBy: "alice", Amount: dec("1"),
		Shares: []models.Share{{MemberID: "alice", Amount: dec("1")}}})
	require.ErrorIs(t, err, storage.ErrNotFound)

	err = s.CreateExpense(ctx, &models.Expense{GroupID: group.ID, PaidBy: "alice", Amount: dec("-1"),
		Shares: []models.Share{{MemberID: "alice", Amount: dec("1")}}})
	require.ErrorIs(t, err, models.ErrInvalidExpense)
}

func testListExpensesNewestFirst(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice", "bob")
	older := newExpense(t, s, group.ID, "alice", 100, map[string]string{"bob": "1"})
	newer := newExpense(t, s, group.ID, "bob", 200, map[string]string{"alice": "2"})
	sameTime := newExpense(t, s, group.ID, "bob", 200, map[string]string{"alice": "3"})

	expenses, err := s.ListExpenses(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, expenses, 3)
	require.Equal(t, sameTime.ID, expenses[0].ID)
	require.Equal(t, newer.ID, expenses[1].ID)
	require.Equal(t, older.ID, expenses[2].ID)
	require.Len(t, expenses[2].Shares, 1)
}

func testDeleteExpense(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice", "bob")
	expense := newExpense(t, s, group.ID, "alice", 0, map[string]string{"bob": "4"})

	require.NoError(t, s.DeleteExpense(ctx, expense.ID))
	require.ErrorIs(t, s.DeleteExpense(ctx, expense.ID), storage.ErrNotFound)

	expenses, err := s.ListExpenses(ctx, group.ID)
	require.NoError(t, err)
	require.Empty(t, expenses)

	// Shares went with the expense, so bob is no longer referenced.
	require.NoError(t, s.RemoveMember(ctx, group.ID, "bob"))
}

func testReplacePendingSettlements(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice", "bob", "carol")

	first := []*models.Settlement{draft("bob", "alice", "10.00"), draft("carol", "alice", "5.00")}
	require.NoError(t, s.ReplacePendingSettlements(ctx, group.ID, first))
	for _, st := range first {
		require.NotEmpty(t, st.ID)
		require.Equal(t, group.ID, st.GroupID)
		require.Equal(t, models.SettlementPending, st.Status)
	}

	_, err := s.CompleteSettlement(ctx, first[0].ID, 1234)
	require.NoError(t, err)

	second := []*models.Settlement{draft("carol", "alice", "5.00")}
	require.NoError(t, s.ReplacePendingSettlements(ctx, group.ID, second))

	pending, err := s.ListSettlements(ctx, group.ID, models.SettlementPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, second[0].ID, pending[0].ID)

	completed, err := s.ListSettlements(ctx, group.ID, models.SettlementCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.Equal(t, first[0].ID, completed[0].ID)

	all, err := s.ListSettlements(ctx, group.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, s.ReplacePendingSettlements(ctx, group.ID, nil))
	pending, err = s.ListSettlements(ctx, group.ID, models.SettlementPending)
	require.NoError(t, err)
	require.Empty(t, pending)

	err = s.ReplacePendingSettlements(ctx, "missing", []*models.Settlement{draft("bob", "alice", "1")})
	require.ErrorIs(t, err, storage.ErrNotFound)

	err = s.ReplacePendingSettlements(ctx, group.ID, []*models.Settlement{draft("bob", "bob", "1")})
	require.ErrorIs(t, err, models.ErrInvalidSettlement)
}

func testCompleteSettlement(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice", "bob")
	drafts := []*models.Settlement{draft("bob", "alice", "12.50")}
	require.NoError(t, s.ReplacePendingSettlements(ctx, group.ID, drafts))

	done, err := s.CompleteSettlement(ctx, drafts[0].ID, 1700000000)
	require.NoError(t, err)
	require.Equal(t, models.SettlementCompleted, done.Status)
	require.Equal(t, int64(1700000000), done.SettledAt)
	require.True(t, done.Amount.Equal(dec("12.5")))

	_, err = s.CompleteSettlement(ctx, drafts[0].ID, 1700000001)
	require.ErrorIs(t, err, storage.ErrSettlementNotPending)

	_, err = s.CompleteSettlement(ctx, "missing", 1)
	require.ErrorIs(t, err, storage.ErrNotFound)

	got, err := s.GetSettlement(ctx, drafts[0].ID)
	require.NoError(t, err)
	require.Equal(t, int64(1700000000), got.SettledAt)
}

func testCompleteSettlementSingleWinner(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice", "bob")
	drafts := []*models.Settlement{draft("bob", "alice", "3.00")}
	require.NoError(t, s.ReplacePendingSettlements(ctx, group.ID, drafts))

	const callers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := range callers {
		wg.Add(1)
		go func(at int64) {
			defer wg.Done()
			_, err := s.CompleteSettlement(ctx, drafts[0].ID, at)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, storage.ErrSettlementNotPending) {
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(i + 1))
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func testReadLedger(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice", "bob")
	newExpense(t, s, group.ID, "alice", 100, map[string]string{"alice": "10", "bob": "10"})
	drafts := []*models.Settlement{draft("bob", "alice", "10.00"), draft("alice", "bob", "1.00")}
	require.NoError(t, s.ReplacePendingSettlements(ctx, group.ID, drafts))
	_, err := s.CompleteSettlement(ctx, drafts[0].ID, 200)
	require.NoError(t, err)

	l, err := s.ReadLedger(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, group.ID, l.GroupID)
	require.Len(t, l.Members, 2)
	require.Len(t, l.Expenses, 1)
	require.Len(t, l.Expenses[0].Shares, 2)
	require.Len(t, l.Completed, 1)
	require.Equal(t, drafts[0].ID, l.Completed[0].ID)

	_, err = s.ReadLedger(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// owedToAlice plans a single bob->alice transfer for whatever bob still owes
// after completed settlements.
func owedToAlice(due decimal.Decimal) storage.PlanFunc {
	return func(l *storage.Ledger) ([]*models.Settlement, error) {
		remaining := due
		for _, st := range l.Completed {
			if st.FromMemberID == "bob" && st.ToMemberID == "alice" {
				remaining = remaining.Sub(st.Amount)
			}
		}
		if !remaining.IsPositive() {
			return nil, nil
		}
		return []*models.Settlement{{FromMemberID: "bob", ToMemberID: "alice", Amount: remaining}}, nil
	}
}

func testApplyPlan(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice", "bob")
	stale := []*models.Settlement{draft("bob", "alice", "99.00")}
	require.NoError(t, s.ReplacePendingSettlements(ctx, group.ID, stale))

	var seen *storage.Ledger
	plan := owedToAlice(dec("30"))
	drafts, err := s.ApplyPlan(ctx, group.ID, func(l *storage.Ledger) ([]*models.Settlement, error) {
		seen = l
		return plan(l)
	})
	require.NoError(t, err)
	require.NotNil(t, seen)
	require.Len(t, seen.Members, 2)
	require.Len(t, drafts, 1)
	require.NotEmpty(t, drafts[0].ID)
	require.Equal(t, models.SettlementPending, drafts[0].Status)

	pending, err := s.ListSettlements(ctx, group.ID, models.SettlementPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, drafts[0].ID, pending[0].ID)
	require.True(t, pending[0].Amount.Equal(dec("30")))

	_, err = s.ApplyPlan(ctx, "missing", plan)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func testApplyPlanDiscardsOnError(t *testing.T, s storage.Store) {
	ctx := context.Background()
	group := newGroup(t, s, "alice", "bob")
	require.NoError(t, s.ReplacePendingSettlements(ctx, group.ID, []*models.Settlement{draft("bob", "alice", "5.00")}))

	errBooks := errors.New("books do not balance")
	drafts, err := s.ApplyPlan(ctx, group.ID, func(*storage.Ledger) ([]*models.Settlement, error) {
		return nil, errBooks
	})
	require.ErrorIs(t, err, errBooks)
	require.Nil(t, drafts)

	pending, err := s.ListSettlements(ctx, group.ID, models.SettlementPending)
	require.NoError(t, err)
	require.Empty(t, pending)
}

// A completion racing a replan must land either before the ledger read, so
// the new plan accounts for it, or after the swap, when the settlement it
// targets no longer exists. Both together would ask bob to pay twice.
func testApplyPlanSerializesWithCompletion(t *testing.T, s storage.Store) {
	ctx := context.Background()

	for round := range 20 {
		group := newGroup(t, s, "alice", "bob")
		pending := []*models.Settlement{draft("bob", "alice", "30.00")}
		require.NoError(t, s.ReplacePendingSettlements(ctx, group.ID, pending))

		var (
			wg          sync.WaitGroup
			completeErr error
			planErr     error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, completeErr = s.CompleteSettlement(ctx, pending[0].ID, int64(round+1))
		}()
		go func() {
			defer wg.Done()
			_, planErr = s.ApplyPlan(ctx, group.ID, owedToAlice(dec("30")))
		}()
		wg.Wait()
		require.NoError(t, planErr)

		completed, err := s.ListSettlements(ctx, group.ID, models.SettlementCompleted)
		require.NoError(t, err)
		open, err := s.ListSettlements(ctx, group.ID, models.SettlementPending)
		require.NoError(t, err)

		if completeErr == nil {
			require.Len(t, completed, 1, "round %d", round)
			require.Empty(t, open, "round %d: completed payment planned again", round)
		} else {
			require.ErrorIs(t, completeErr, storage.ErrNotFound, "round %d", round)
			require.Empty(t, completed, "round %d", round)
			require.Len(t, open, 1, "round %d", round)
		}
	}
}
