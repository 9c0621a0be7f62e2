package commands

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage/sqlite"
)

const testSecret = "commands-test-secret-at-least-32-bytes"

func seedDB(t *testing.T) (dbPath, groupID string) {
	t.Helper()
	ctx := context.Background()
	dbPath = filepath.Join(t.TempDir(), "settleup.db")

	store, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("sqlite.New failed: %v", err)
	}
	defer store.Close()

	group := &models.Group{
		Name:      "Cabin",
		CreatedBy: "alice",
		Members: []models.Member{
			{ID: "alice", DisplayName: "Alice"},
			{ID: "bob", DisplayName: "Bob"},
			{ID: "carol", DisplayName: "Carol"},
		},
	}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	expense := &models.Expense{
		GroupID:     group.ID,
		Description: "Groceries",
		PaidBy:      "alice",
		Amount:      decimal.RequireFromString("90"),
		Shares: []models.Share{
			{MemberID: "alice", Amount: decimal.RequireFromString("30")},
			{MemberID: "bob", Amount: decimal.RequireFromString("30")},
			{MemberID: "carol", Amount: decimal.RequireFromString("30")},
		},
	}
	if err := store.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	return dbPath, group.ID
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBalancesCommand(t *testing.T) {
	dbPath, groupID := seedDB(t)

	out, err := run(t, "balances", "--db", dbPath, "--group", groupID)
	if err != nil {
		t.Fatalf("balances failed: %v\n%s", err, out)
	}

	for _, want := range []string{"MEMBER", "Alice", "90.00", "60.00", "-30.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPlanCommand(t *testing.T) {
	dbPath, groupID := seedDB(t)

	out, err := run(t, "plan", "--db", dbPath, "--group", groupID)
	if err != nil {
		t.Fatalf("plan failed: %v\n%s", err, out)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 transfers, got:\n%s", out)
	}
	for _, line := range lines[1:] {
		if !strings.Contains(line, "Alice") || !strings.Contains(line, "30.00") {
			t.Errorf("unexpected transfer line %q", line)
		}
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("sqlite.New failed: %v", err)
	}
	defer store.Close()
	pending, err := store.ListSettlements(context.Background(), groupID, models.SettlementPending)
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("plan must not persist settlements, found %d", len(pending))
	}
}

func TestPlanCommand_UnknownGroup(t *testing.T) {
	dbPath, _ := seedDB(t)

	if _, err := run(t, "plan", "--db", dbPath, "--group", "missing"); err == nil {
		t.Fatal("expected error for unknown group")
	}
}

func TestReportCommandsRejectMemoryBackend(t *testing.T) {
	for _, command := range []string{"balances", "plan"} {
		t.Run(command, func(t *testing.T) {
			t.Setenv("DATA_BACKEND", "memory")

			_, err := run(t, command, "--group", "any")
			if !errors.Is(err, errMemoryBackend) {
				t.Fatalf("err = %v, want errMemoryBackend", err)
			}
		})
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	out, err := run(t, "token", "--member", "alice", "--name", "Alice")
	if err != nil {
		t.Fatalf("token failed: %v", err)
	}

	claims, err := auth.NewJWTManager(testSecret, 0).Validate(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if claims.MemberID != "alice" || claims.DisplayName != "Alice" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := run(t, "token", "--member", "alice"); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}
