// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/settleup/internal/models"
)

var (
	ErrNotFound                    = errors.New("not found")
	ErrAlreadyExists               = errors.New("already exists")
	ErrMemberHasPendingSettlements = errors.New("member has pending settlements")
	ErrMemberReferenced            = errors.New("member is referenced by expenses or settlements")
	ErrSettlementNotPending        = errors.New("settlement is not pending")
)

// GroupStore persists groups and their members.
type GroupStore interface {
	// CreateGroup persists a new group with its initial members.
	// group.ID, group.CreatedAt and each member's GroupID/JoinedAt are populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its members in join order.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsByMember returns every group memberID belongs to, oldest first.
	ListGroupsByMember(ctx context.Context, memberID string) ([]*models.Group, error)

	// DeleteGroup removes a group and everything recorded in it.
	DeleteGroup(ctx context.Context, groupID string) error

	// AddMember adds a member to an existing group.
	// Returns ErrAlreadyExists if the member ID is taken in that group.
	AddMember(ctx context.Context, member *models.Member) error

	// RemoveMember removes a member from a group.
	// Returns ErrMemberHasPendingSettlements if a pending settlement references
	// the member, ErrMemberReferenced if any expense, share or completed
	// settlement does.
	RemoveMember(ctx context.Context, groupID, memberID string) error
}

// Ledger is a consistent read of the records a group's balances are
// computed from.
type Ledger struct {
	GroupID   string
	Members   []models.Member
	Expenses  []models.Expense
	Completed []models.Settlement
}

// PlanFunc computes a pending plan from a ledger. It must not call back into
// the store.
type PlanFunc func(l *Ledger) ([]*models.Settlement, error)

// LedgerReader supplies the records balances are computed from.
type LedgerReader interface {
	// ReadLedger returns the group's members, expenses and completed
	// settlements as of a single point in time.
	ReadLedger(ctx context.Context, groupID string) (*Ledger, error)

	// ListMembers returns the members of a group in join order.
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)

	// ListExpenses returns the expenses of a group with shares embedded, newest first.
	ListExpenses(ctx context.Context, groupID string) ([]models.Expense, error)

	// ListSettlements returns the settlements of a group in creation order.
	// An empty status returns all of them.
	ListSettlements(ctx context.Context, groupID string, status models.SettlementStatus) ([]models.Settlement, error)
}

// ExpenseStore persists expenses and their shares.
type ExpenseStore interface {
	// CreateExpense persists an expense and its shares.
	// expense.ID, expense.CreatedAt and each share's ExpenseID are populated by the store.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its shares.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// DeleteExpense removes an expense and its shares.
	DeleteExpense(ctx context.Context, expenseID string) error
}

// SettlementStore persists settlement plans and their confirmations.
type SettlementStore interface {
	// GetSettlement retrieves a settlement by ID.
	GetSettlement(ctx context.Context, settlementID string) (*models.Settlement, error)

	// ReplacePendingSettlements atomically deletes every pending settlement of
	// the group and inserts drafts as the new pending plan, keeping their order.
	// Each draft's ID, GroupID, Status and CreatedAt are populated by the store.
	ReplacePendingSettlements(ctx context.Context, groupID string, drafts []*models.Settlement) error

	// ApplyPlan reads the group's ledger, calls plan on it and stores the
	// result as the new pending plan without letting other writes in between.
	// If plan fails the old pending plan is discarded anyway and plan's error
	// is returned unchanged.
	ApplyPlan(ctx context.Context, groupID string, plan PlanFunc) ([]*models.Settlement, error)

	// CompleteSettlement transitions a settlement from pending to completed.
	// Only one caller can win the transition; the others get ErrSettlementNotPending.
	CompleteSettlement(ctx context.Context, settlementID string, settledAt int64) (*models.Settlement, error)
}

// Store defines the interface for all storage operations.
// This abstraction allows swapping storage backends (SQLite, in-memory, etc.)
// without changing the service layer.
type Store interface {
	GroupStore
	LedgerReader
	ExpenseStore
	SettlementStore

	// Close releases any resources held by the store.
	Close() error
}
