package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/calculator"
	"github.com/mmynk/settleup/internal/events"
	"github.com/mmynk/settleup/internal/ledger"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/rpc"
	"github.com/mmynk/settleup/internal/storage"
)

var _ rpc.SettlementServiceHandler = (*SettlementService)(nil)

// SettlementService implements the Connect SettlementService: balances,
// settlement plans and payment confirmations.
type SettlementService struct {
	store     storage.Store
	metrics   *metrics.Metrics
	publisher events.Publisher
	now       func() time.Time
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(store storage.Store, m *metrics.Metrics, publisher events.Publisher) *SettlementService {
	return &SettlementService{
		store:     store,
		metrics:   m,
		publisher: publisher,
		now:       time.Now,
	}
}

// GetBalances returns every member's paid, owed and net amounts.
func (s *SettlementService) GetBalances(ctx context.Context, req *connect.Request[rpc.GetBalancesRequest]) (*connect.Response[rpc.GetBalancesResponse], error) {
	slog.Info("GetBalances request received", "group_id", req.Msg.GroupID)

	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, fail("GetBalances failed", err, "group_id", req.Msg.GroupID)
	}

	snap, err := ledger.Load(ctx, s.store, group.ID)
	if err != nil {
		return nil, fail("GetBalances failed", err, "group_id", group.ID)
	}
	balances, err := snap.Balances()
	if err != nil {
		return nil, fail("GetBalances failed", err, "group_id", group.ID)
	}

	dir := newMemberDirectory(snap.Members)
	out := make([]rpc.Balance, len(balances))
	for i, b := range balances {
		out[i] = dir.balance(b)
	}
	paid, owed := calculator.Totals(balances)

	slog.Info("GetBalances successful",
		"group_id", group.ID,
		"members_count", len(balances),
		"expenses_count", len(snap.Expenses),
	)

	return connect.NewResponse(&rpc.GetBalancesResponse{
		Balances:  out,
		TotalPaid: formatAmount(paid),
		TotalOwed: formatAmount(owed),
	}), nil
}

// SettleUp computes a fresh plan and persists it as the group's pending
// settlements, replacing any earlier pending plan. When the books cannot be
// planned the earlier pending plan is discarded and the error returned.
func (s *SettlementService) SettleUp(ctx context.Context, req *connect.Request[rpc.SettleUpRequest]) (*connect.Response[rpc.SettleUpResponse], error) {
	slog.Info("SettleUp request received", "group_id", req.Msg.GroupID)
	start := s.now()

	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, fail("SettleUp failed", err, "group_id", req.Msg.GroupID)
	}

	// The plan is computed and stored in one step on the store, so a payment
	// confirmed meanwhile is either in the snapshot or no longer pending.
	snap, drafts, err := ledger.Settle(ctx, s.store, group.ID)
	if err != nil {
		s.metrics.ObservePlan(planResult(err), 0, start)
		return nil, fail("SettleUp failed", err, "group_id", group.ID)
	}

	result := metrics.ResultPlanned
	if len(drafts) == 0 {
		result = metrics.ResultSettled
	}
	s.metrics.ObservePlan(result, len(drafts), start)
	s.publish(ctx, events.NewPlanReplaced(group.ID, len(drafts)))

	dir := newMemberDirectory(snap.Members)
	out := make([]rpc.Settlement, len(drafts))
	for i, d := range drafts {
		out[i] = dir.settlement(d)
	}

	slog.Info("SettleUp successful", "group_id", group.ID, "transfers_count", len(out))

	return connect.NewResponse(&rpc.SettleUpResponse{
		Settlements: out,
		AllSettled:  len(out) == 0,
	}), nil
}

func planResult(err error) string {
	var (
		refErr          *calculator.ReferentialIntegrityError
		inconsistentErr *calculator.BalanceInconsistencyError
	)
	switch {
	case errors.As(err, &inconsistentErr):
		return metrics.ResultInconsistent
	case errors.As(err, &refErr):
		return metrics.ResultDangling
	default:
		return metrics.ResultError
	}
}

// ListSettlements lists a group's settlements, optionally filtered by status.
func (s *SettlementService) ListSettlements(ctx context.Context, req *connect.Request[rpc.ListSettlementsRequest]) (*connect.Response[rpc.ListSettlementsResponse], error) {
	slog.Info("ListSettlements request received", "group_id", req.Msg.GroupID, "status", req.Msg.Status)

	group, _, err := groupForCaller(ctx, s.store, req.Msg.GroupID)
	if err != nil {
		return nil, fail("ListSettlements failed", err, "group_id", req.Msg.GroupID)
	}

	var status models.SettlementStatus
	if req.Msg.Status != "" {
		status, err = models.ParseSettlementStatus(req.Msg.Status)
		if err != nil {
			return nil, fail("ListSettlements failed", err)
		}
	}

	settlements, err := s.store.ListSettlements(ctx, group.ID, status)
	if err != nil {
		return nil, fail("ListSettlements failed", err, "group_id", group.ID)
	}

	dir := newMemberDirectory(group.Members)
	out := make([]rpc.Settlement, len(settlements))
	for i := range settlements {
		out[i] = dir.settlement(&settlements[i])
	}

	return connect.NewResponse(&rpc.ListSettlementsResponse{Settlements: out}), nil
}

// CompleteSettlement confirms that a pending transfer was paid. Only the
// debtor or the creditor of the settlement may confirm it.
func (s *SettlementService) CompleteSettlement(ctx context.Context, req *connect.Request[rpc.CompleteSettlementRequest]) (*connect.Response[rpc.CompleteSettlementResponse], error) {
	slog.Info("CompleteSettlement request received", "settlement_id", req.Msg.SettlementID)

	if req.Msg.SettlementID == "" {
		return nil, fail("CompleteSettlement failed", invalidArgument("settlement_id required"))
	}
	st, err := s.store.GetSettlement(ctx, req.Msg.SettlementID)
	if err != nil {
		return nil, fail("CompleteSettlement failed", err, "settlement_id", req.Msg.SettlementID)
	}

	group, caller, err := groupForCaller(ctx, s.store, st.GroupID)
	if err != nil {
		return nil, fail("CompleteSettlement failed", err, "settlement_id", st.ID)
	}
	if !st.Involves(caller) {
		return nil, fail("CompleteSettlement failed", fmt.Errorf("settlement %s: %w", st.ID, errNotParty),
			"member_id", caller)
	}

	done, err := s.store.CompleteSettlement(ctx, st.ID, s.now().Unix())
	if err != nil {
		return nil, fail("CompleteSettlement failed", err, "settlement_id", st.ID)
	}
	s.metrics.SettlementsCompleted.Inc()
	s.publish(ctx, events.NewSettlementCompleted(done.GroupID, done.ID, done.FromMemberID, done.ToMemberID, done.Amount))

	slog.Info("Settlement completed",
		"settlement_id", done.ID,
		"group_id", done.GroupID,
		"amount", formatAmount(done.Amount),
		"confirmed_by", caller,
	)

	return connect.NewResponse(&rpc.CompleteSettlementResponse{
		Settlement: newMemberDirectory(group.Members).settlement(done),
	}), nil
}

// publish delivers e without failing the request.
func (s *SettlementService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		slog.Warn("Failed to publish event", "type", e.Type, "group_id", e.GroupID, "error", err)
	}
}
