package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/rpc"
	"github.com/mmynk/settleup/internal/storage"
)

var _ rpc.ExpenseServiceHandler = (*ExpenseService)(nil)

// ExpenseService implements the Connect ExpenseService
type ExpenseService struct {
	store   storage.Store
	metrics *metrics.Metrics
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(store storage.Store, m *metrics.Metrics) *ExpenseService {
	return &ExpenseService{store: store, metrics: m}
}

// CreateExpense records an expense. Custom shares are used as given and must
// be whole cents; otherwise the amount is split equally over the selected
// participants, or over the whole group when none are selected.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[rpc.CreateExpenseRequest]) (*connect.Response[rpc.CreateExpenseResponse], error) {
	slog.Info("CreateExpense request received",
		"group_id", req.Msg.GroupID,
		"amount", req.Msg.Amount,
		"paid_by", req.Msg.PaidBy,
		"participants_count", len(req.Msg.ParticipantIDs),
		"shares_count", len(req.Msg.Shares),
	)

	group, caller, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, fail("CreateExpense failed", err, "group_id", req.Msg.GroupID)
	}

	amount, err := parseAmount("amount", req.Msg.Amount)
	if err != nil {
		return nil, fail("CreateExpense failed", err, "group_id", group.ID)
	}
	amount = calculator.Round2(amount)
	if !amount.IsPositive() {
		return nil, fail("CreateExpense failed",
			invalidArgument("amount must be positive, got %s", req.Msg.Amount), "group_id", group.ID)
	}

	paidBy := req.Msg.PaidBy
	if paidBy == "" {
		paidBy = caller
	}
	if !group.HasMember(paidBy) {
		return nil, fail("CreateExpense failed",
			invalidArgument("payer %s is not a member of the group", paidBy), "group_id", group.ID)
	}

	shares, err := buildShares(group, amount, req.Msg)
	if err != nil {
		return nil, fail("CreateExpense failed", err, "group_id", group.ID)
	}

	expense := &models.Expense{
		GroupID:     group.ID,
		Description: req.Msg.Description,
		Category:    req.Msg.Category,
		Amount:      amount,
		PaidBy:      paidBy,
		Shares:      shares,
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, fail("CreateExpense failed", err, "group_id", group.ID)
	}
	s.metrics.ExpensesCreated.Inc()

	slog.Info("Expense created",
		"expense_id", expense.ID,
		"group_id", group.ID,
		"amount", expense.Amount.StringFixed(2),
		"shares_count", len(expense.Shares),
	)

	return connect.NewResponse(&rpc.CreateExpenseResponse{Expense: toRPCExpense(expense)}), nil
}

func buildShares(group *models.Group, amount decimal.Decimal, msg *rpc.CreateExpenseRequest) ([]models.Share, error) {
	if len(msg.Shares) > 0 {
		shares := make([]models.Share, len(msg.Shares))
		for i, sh := range msg.Shares {
			if !group.HasMember(sh.MemberID) {
				return nil, invalidArgument("share member %s is not a member of the group", sh.MemberID)
			}
			a, err := parseAmount(fmt.Sprintf("shares[%d].amount", i), sh.Amount)
			if err != nil {
				return nil, err
			}
			// Shares are whole cents, like every amount the planner emits.
			if !a.Equal(calculator.Round2(a)) {
				return nil, invalidArgument("shares[%d].amount: %s has more than two decimal places", i, sh.Amount)
			}
			shares[i] = models.Share{MemberID: sh.MemberID, Amount: a}
		}
		return shares, nil
	}

	participants := msg.ParticipantIDs
	if len(participants) == 0 {
		participants = group.MemberIDs()
	}
	for _, id := range participants {
		if !group.HasMember(id) {
			return nil, invalidArgument("participant %s is not a member of the group", id)
		}
	}

	shares, err := calculator.SplitEqually(amount, participants)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidExpense, err)
	}
	return shares, nil
}

// ListExpenses lists a group's expenses, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[rpc.ListExpensesRequest]) (*connect.Response[rpc.ListExpensesResponse], error) {
	slog.Info("ListExpenses request received", "group_id", req.Msg.GroupID)

	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, fail("ListExpenses failed", err, "group_id", req.Msg.GroupID)
	}

	expenses, err := s.store.ListExpenses(ctx, group.ID)
	if err != nil {
		return nil, fail("ListExpenses failed", err, "group_id", group.ID)
	}

	out := make([]rpc.Expense, len(expenses))
	for i := range expenses {
		out[i] = toRPCExpense(&expenses[i])
	}

	slog.Info("ListExpenses successful", "group_id", group.ID, "count", len(out))

	return connect.NewResponse(&rpc.ListExpensesResponse{Expenses: out}), nil
}

// DeleteExpense removes an expense and its shares.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[rpc.DeleteExpenseRequest]) (*connect.Response[rpc.DeleteExpenseResponse], error) {
	slog.Info("DeleteExpense request received", "expense_id", req.Msg.ExpenseID)

	if req.Msg.ExpenseID == "" {
		return nil, fail("DeleteExpense failed", invalidArgument("expense_id required"))
	}
	expense, err := s.store.GetExpense(ctx, req.Msg.ExpenseID)
	if err != nil {
		return nil, fail("DeleteExpense failed", err, "expense_id", req.Msg.ExpenseID)
	}
	if _, _, err := groupForCaller(ctx, s.store, expense.GroupID); err != nil {
		return nil, fail("DeleteExpense failed", err, "expense_id", expense.ID)
	}

	if err := s.store.DeleteExpense(ctx, expense.ID); err != nil {
		return nil, fail("DeleteExpense failed", err, "expense_id", expense.ID)
	}

	slog.Info("Expense deleted", "expense_id", expense.ID, "group_id", expense.GroupID)

	return connect.NewResponse(&rpc.DeleteExpenseResponse{}), nil
}
