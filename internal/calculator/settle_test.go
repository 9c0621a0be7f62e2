package calculator

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmynk/settleup/internal/models"
	"github.com/shopspring/decimal"
)

func plan(t *testing.T, ms []models.Member, expenses []models.Expense, settlements []models.Settlement) []Transfer {
	t.Helper()
	balances, err := ComputeBalances(ms, expenses, settlements)
	if err != nil {
		t.Fatalf("ComputeBalances() unexpected error: %v", err)
	}
	transfers, err := PlanSettlements(balances)
	if err != nil {
		t.Fatalf("PlanSettlements() unexpected error: %v", err)
	}
	return transfers
}

func TestPlanSettlements_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		members     []models.Member
		expenses    []models.Expense
		settlements []models.Settlement
		want        []Transfer
	}{
		{
			name:     "two debtors pay one creditor",
			members:  members("A", "B", "C"),
			expenses: []models.Expense{expense("e1", "A", "90", "A", "30", "B", "30", "C", "30")},
			want: []Transfer{
				{From: "B", To: "A", Amount: d("30")},
				{From: "C", To: "A", Amount: d("30")},
			},
		},
		{
			name:     "single member never transfers",
			members:  members("A"),
			expenses: []models.Expense{expense("e1", "A", "50", "A", "40")},
		},
		{
			name:     "two members even split",
			members:  members("A", "B"),
			expenses: []models.Expense{expense("e1", "A", "100", "A", "50", "B", "50")},
			want:     []Transfer{{From: "B", To: "A", Amount: d("50")}},
		},
		{
			name:        "completed settlement removes a debtor",
			members:     members("A", "B", "C"),
			expenses:    []models.Expense{expense("e1", "A", "90", "A", "30", "B", "30", "C", "30")},
			settlements: []models.Settlement{completed("s1", "B", "A", "30")},
			want:        []Transfer{{From: "C", To: "A", Amount: d("30")}},
		},
		{
			name:    "balanced expenses need no transfers",
			members: members("A", "B", "C"),
			expenses: []models.Expense{
				expense("e1", "A", "30", "A", "10", "B", "10", "C", "10"),
				expense("e2", "B", "30", "A", "10", "B", "10", "C", "10"),
				expense("e3", "C", "30", "A", "10", "B", "10", "C", "10"),
			},
		},
		{
			name:     "empty expense list",
			members:  members("A", "B", "C"),
			expenses: nil,
		},
		{
			name:    "largest debt matched with largest credit first",
			members: members("A", "B", "C", "D"),
			expenses: []models.Expense{
				expense("e1", "A", "100", "C", "70", "D", "30"),
				expense("e2", "B", "50", "C", "10", "D", "40"),
			},
			// A +100, B +50, C -80, D -70
			want: []Transfer{
				{From: "C", To: "A", Amount: d("80")},
				{From: "D", To: "A", Amount: d("20")},
				{From: "D", To: "B", Amount: d("50")},
			},
		},
		{
			name:    "ties keep member order",
			members: members("A", "C", "B"),
			expenses: []models.Expense{
				expense("e1", "A", "90", "A", "30", "B", "30", "C", "30"),
			},
			want: []Transfer{
				{From: "C", To: "A", Amount: d("30")},
				{From: "B", To: "A", Amount: d("30")},
			},
		},
		{
			name:    "one cent residue from a three-way split is absorbed",
			members: members("A", "B", "C"),
			expenses: []models.Expense{
				expense("e1", "A", "100", "A", "33.33", "B", "33.33", "C", "33.33"),
			},
			// A +66.67, B -33.33, C -33.33: 0.01 left on A is within tolerance
			want: []Transfer{
				{From: "B", To: "A", Amount: d("33.33")},
				{From: "C", To: "A", Amount: d("33.33")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := plan(t, tt.members, tt.expenses, tt.settlements)
			if diff := cmp.Diff(tt.want, got, decimalEqual); diff != "" {
				t.Errorf("PlanSettlements() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlanSettlements_Inconsistent(t *testing.T) {
	// Shares total 120 on a 90 expense.
	balances, err := ComputeBalances(
		members("A", "B", "C"),
		[]models.Expense{expense("e1", "A", "90", "A", "40", "B", "40", "C", "40")},
		nil,
	)
	if err != nil {
		t.Fatalf("ComputeBalances() should not validate share sums, got %v", err)
	}

	_, err = PlanSettlements(balances)
	var incErr *BalanceInconsistencyError
	if !errors.As(err, &incErr) {
		t.Fatalf("expected *BalanceInconsistencyError, got %v", err)
	}
	if !incErr.Debt.Equal(d("80")) || !incErr.Credit.Equal(d("50")) {
		t.Errorf("got debt %s credit %s, want 80 and 50", incErr.Debt, incErr.Credit)
	}
}

func TestPlanSettlements_InconsistentOneSided(t *testing.T) {
	tests := []struct {
		name         string
		expense      models.Expense
		debt, credit string
	}{
		{
			// A -10, B -40: nobody is owed anything.
			name:    "over-stated shares leave no creditor",
			expense: expense("e1", "A", "30", "A", "40", "B", "40"),
			debt:    "50",
			credit:  "0",
		},
		{
			// A +40, B 0: nobody owes anything.
			name:    "under-stated shares leave no debtor",
			expense: expense("e1", "A", "50", "A", "10", "B", "0"),
			debt:    "0",
			credit:  "40",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			balances, err := ComputeBalances(members("A", "B"), []models.Expense{tt.expense}, nil)
			if err != nil {
				t.Fatalf("ComputeBalances() unexpected error: %v", err)
			}

			got, err := PlanSettlements(balances)
			var incErr *BalanceInconsistencyError
			if !errors.As(err, &incErr) {
				t.Fatalf("expected *BalanceInconsistencyError, got plan %v err %v", got, err)
			}
			if !incErr.Debt.Equal(d(tt.debt)) || !incErr.Credit.Equal(d(tt.credit)) {
				t.Errorf("got debt %s credit %s, want %s and %s", incErr.Debt, incErr.Credit, tt.debt, tt.credit)
			}
		})
	}
}

func TestPlanSettlements_CentResiduesAreSettled(t *testing.T) {
	// Books balance exactly, but every debt is inside the tolerance.
	balances := []Balance{
		{MemberID: "A", Net: d("0.02")},
		{MemberID: "B", Net: d("-0.01")},
		{MemberID: "C", Net: d("-0.01")},
	}
	got, err := PlanSettlements(balances)
	if err != nil {
		t.Fatalf("PlanSettlements() unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty plan, got %v", got)
	}
}

func TestPlanSettlements_WithinToleranceIsSettled(t *testing.T) {
	balances := []Balance{
		{MemberID: "A", Net: d("0.01")},
		{MemberID: "B", Net: d("-0.01")},
		{MemberID: "C", Net: d("0")},
	}
	got, err := PlanSettlements(balances)
	if err != nil {
		t.Fatalf("PlanSettlements() unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty plan, got %v", got)
	}
}

func TestPlanSettlements_RoundsEmittedAmounts(t *testing.T) {
	balances := []Balance{
		{MemberID: "A", Net: d("10.005")},
		{MemberID: "B", Net: d("-10.005")},
	}
	got, err := PlanSettlements(balances)
	if err != nil {
		t.Fatalf("PlanSettlements() unexpected error: %v", err)
	}
	want := []Transfer{{From: "B", To: "A", Amount: d("10.01")}}
	if diff := cmp.Diff(want, got, decimalEqual); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

// randomLedger builds a consistent group: equal splits and arbitrary completed settlements.
func randomLedger(r *rand.Rand) ([]models.Member, []models.Expense, []models.Settlement) {
	n := 2 + r.Intn(7)
	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('A' + i))
	}
	ms := members(ids...)

	var expenses []models.Expense
	for e := 0; e < 1+r.Intn(10); e++ {
		var participants []string
		for _, id := range ids {
			if r.Intn(3) > 0 {
				participants = append(participants, id)
			}
		}
		if len(participants) == 0 {
			participants = ids
		}
		amount := decimal.New(int64(1+r.Intn(100000)), -2)
		shares, err := SplitEqually(amount, participants)
		if err != nil {
			panic(err)
		}
		expenses = append(expenses, models.Expense{
			ID:     string(rune('a' + e)),
			PaidBy: ids[r.Intn(n)],
			Amount: amount,
			Shares: shares,
		})
	}

	var settlements []models.Settlement
	for s := 0; s < r.Intn(3); s++ {
		from, to := r.Intn(n), r.Intn(n)
		if from == to {
			continue
		}
		settlements = append(settlements, models.Settlement{
			ID:           string(rune('s' + s)),
			FromMemberID: ids[from],
			ToMemberID:   ids[to],
			Amount:       decimal.New(int64(1+r.Intn(5000)), -2),
			Status:       models.SettlementCompleted,
		})
	}
	return ms, expenses, settlements
}

func TestPlanSettlements_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		ms, expenses, settlements := randomLedger(r)

		balances, err := ComputeBalances(ms, expenses, settlements)
		if err != nil {
			t.Fatalf("run %d: ComputeBalances() unexpected error: %v", run, err)
		}

		paid, owed := Totals(balances)
		if !paid.Sub(owed).Abs().LessThanOrEqual(Epsilon) {
			t.Fatalf("run %d: zero-sum violated: paid %s, owed %s", run, paid, owed)
		}

		transfers, err := PlanSettlements(balances)
		if err != nil {
			t.Fatalf("run %d: PlanSettlements() unexpected error: %v", run, err)
		}

		if len(transfers) > len(ms)-1 {
			t.Errorf("run %d: %d transfers for %d members", run, len(transfers), len(ms))
		}

		again, _ := PlanSettlements(balances)
		if diff := cmp.Diff(transfers, again, decimalEqual); diff != "" {
			t.Errorf("run %d: plan not deterministic (-first +second):\n%s", run, diff)
		}

		net := make(map[string]decimal.Decimal, len(balances))
		for _, b := range balances {
			net[b.MemberID] = b.Net
		}
		for _, tr := range transfers {
			if !tr.Amount.GreaterThan(Epsilon) {
				t.Errorf("run %d: transfer below tolerance: %+v", run, tr)
			}
			net[tr.From] = net[tr.From].Add(tr.Amount)
			net[tr.To] = net[tr.To].Sub(tr.Amount)
		}
		for id, v := range net {
			if !IsSettled(v) {
				t.Errorf("run %d: member %s left with %s after applying plan", run, id, v)
			}
		}

		settled := make([]Balance, len(balances))
		for i, b := range balances {
			settled[i] = Balance{MemberID: b.MemberID, Net: net[b.MemberID]}
		}
		if rest, err := PlanSettlements(settled); err != nil || len(rest) != 0 {
			t.Errorf("run %d: settled balances produced %v, %v", run, rest, err)
		}
	}
}
