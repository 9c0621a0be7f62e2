package calculator

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmynk/settleup/internal/models"
)

func TestComputeBalances(t *testing.T) {
	tests := []struct {
		name        string
		members     []models.Member
		expenses    []models.Expense
		settlements []models.Settlement
		want        []Balance
	}{
		{
			name:     "one payer, equal split among three",
			members:  members("A", "B", "C"),
			expenses: []models.Expense{expense("e1", "A", "90", "A", "30", "B", "30", "C", "30")},
			want: []Balance{
				{MemberID: "A", Paid: d("90"), Owed: d("30"), Net: d("60")},
				{MemberID: "B", Paid: d("0"), Owed: d("30"), Net: d("-30")},
				{MemberID: "C", Paid: d("0"), Owed: d("30"), Net: d("-30")},
			},
		},
		{
			name:        "completed settlement moves both sides",
			members:     members("A", "B", "C"),
			expenses:    []models.Expense{expense("e1", "A", "90", "A", "30", "B", "30", "C", "30")},
			settlements: []models.Settlement{completed("s1", "B", "A", "30")},
			want: []Balance{
				{MemberID: "A", Paid: d("90"), Owed: d("60"), Net: d("30")},
				{MemberID: "B", Paid: d("30"), Owed: d("30"), Net: d("0")},
				{MemberID: "C", Paid: d("0"), Owed: d("30"), Net: d("-30")},
			},
		},
		{
			name:    "pending settlements are ignored",
			members: members("A", "B"),
			expenses: []models.Expense{
				expense("e1", "A", "100", "A", "50", "B", "50"),
			},
			settlements: []models.Settlement{{
				ID: "s1", FromMemberID: "B", ToMemberID: "A", Amount: d("50"), Status: models.SettlementPending,
			}},
			want: []Balance{
				{MemberID: "A", Paid: d("100"), Owed: d("50"), Net: d("50")},
				{MemberID: "B", Paid: d("0"), Owed: d("50"), Net: d("-50")},
			},
		},
		{
			name:    "no expenses",
			members: members("A", "B"),
			want: []Balance{
				{MemberID: "A", Net: d("0")},
				{MemberID: "B", Net: d("0")},
			},
		},
		{
			name:     "share sum above expense amount is not validated here",
			members:  members("A", "B", "C"),
			expenses: []models.Expense{expense("e1", "A", "90", "A", "40", "B", "40", "C", "40")},
			want: []Balance{
				{MemberID: "A", Paid: d("90"), Owed: d("40"), Net: d("50")},
				{MemberID: "B", Paid: d("0"), Owed: d("40"), Net: d("-40")},
				{MemberID: "C", Paid: d("0"), Owed: d("40"), Net: d("-40")},
			},
		},
		{
			name:    "fractional shares stay exact",
			members: members("A", "B", "C"),
			expenses: []models.Expense{
				expense("e1", "A", "0.30", "A", "0.10", "B", "0.10", "C", "0.10"),
				expense("e2", "B", "0.30", "A", "0.10", "B", "0.10", "C", "0.10"),
				expense("e3", "C", "0.30", "A", "0.10", "B", "0.10", "C", "0.10"),
			},
			want: []Balance{
				{MemberID: "A", Paid: d("0.3"), Owed: d("0.3"), Net: d("0")},
				{MemberID: "B", Paid: d("0.3"), Owed: d("0.3"), Net: d("0")},
				{MemberID: "C", Paid: d("0.3"), Owed: d("0.3"), Net: d("0")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeBalances(tt.members, tt.expenses, tt.settlements)
			if err != nil {
				t.Fatalf("ComputeBalances() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, decimalEqual); diff != "" {
				t.Errorf("ComputeBalances() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComputeBalances_ReferentialIntegrity(t *testing.T) {
	tests := []struct {
		name        string
		expenses    []models.Expense
		settlements []models.Settlement
		want        ReferentialIntegrityError
	}{
		{
			name:     "unknown payer",
			expenses: []models.Expense{expense("e1", "Z", "10", "A", "10")},
			want:     ReferentialIntegrityError{Record: RecordExpense, RecordID: "e1", Field: "paid_by", MemberID: "Z"},
		},
		{
			name:     "unknown share member",
			expenses: []models.Expense{expense("e2", "A", "10", "A", "5", "Y", "5")},
			want:     ReferentialIntegrityError{Record: RecordShare, RecordID: "e2", Field: "member_id", MemberID: "Y"},
		},
		{
			name:        "unknown debtor in completed settlement",
			settlements: []models.Settlement{completed("s1", "X", "A", "5")},
			want:        ReferentialIntegrityError{Record: RecordSettlement, RecordID: "s1", Field: "from_member_id", MemberID: "X"},
		},
		{
			name:        "unknown creditor in completed settlement",
			settlements: []models.Settlement{completed("s2", "A", "W", "5")},
			want:        ReferentialIntegrityError{Record: RecordSettlement, RecordID: "s2", Field: "to_member_id", MemberID: "W"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeBalances(members("A", "B"), tt.expenses, tt.settlements)
			var refErr *ReferentialIntegrityError
			if !errors.As(err, &refErr) {
				t.Fatalf("expected *ReferentialIntegrityError, got %v", err)
			}
			if *refErr != tt.want {
				t.Errorf("got %+v, want %+v", *refErr, tt.want)
			}
		})
	}
}

func TestComputeBalances_InvalidMembers(t *testing.T) {
	if _, err := ComputeBalances(nil, nil, nil); !errors.Is(err, ErrNoMembers) {
		t.Errorf("empty members: expected ErrNoMembers, got %v", err)
	}
	if _, err := ComputeBalances(members("A", "A"), nil, nil); !errors.Is(err, ErrDuplicateMember) {
		t.Errorf("duplicate members: expected ErrDuplicateMember, got %v", err)
	}
}

func TestComputeBalances_PendingWithUnknownMemberIgnored(t *testing.T) {
	pending := models.Settlement{ID: "s1", FromMemberID: "gone", ToMemberID: "A", Amount: d("5"), Status: models.SettlementPending}
	if _, err := ComputeBalances(members("A"), nil, []models.Settlement{pending}); err != nil {
		t.Errorf("pending settlement should not be resolved, got %v", err)
	}
}

func TestComputeBalances_ZeroSum(t *testing.T) {
	got, err := ComputeBalances(
		members("A", "B", "C", "D"),
		[]models.Expense{
			expense("e1", "A", "100", "A", "33.34", "B", "33.33", "C", "33.33"),
			expense("e2", "D", "12.50", "B", "6.25", "D", "6.25"),
			expense("e3", "C", "7", "A", "7"),
		},
		[]models.Settlement{completed("s1", "B", "A", "20"), completed("s2", "A", "C", "1.99")},
	)
	if err != nil {
		t.Fatalf("ComputeBalances() unexpected error: %v", err)
	}

	paid, owed := Totals(got)
	if !paid.Sub(owed).Abs().LessThanOrEqual(Epsilon) {
		t.Errorf("zero-sum violated: paid %s, owed %s", paid, owed)
	}
}
