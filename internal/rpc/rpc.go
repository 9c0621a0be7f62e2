package rpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const (
	GroupServiceName      = "settleup.v1.GroupService"
	ExpenseServiceName    = "settleup.v1.ExpenseService"
	SettlementServiceName = "settleup.v1.SettlementService"
)

// Fully-qualified procedure names, which double as HTTP routes.
const (
	GroupServiceCreateGroupProcedure  = "/" + GroupServiceName + "/CreateGroup"
	GroupServiceGetGroupProcedure     = "/" + GroupServiceName + "/GetGroup"
	GroupServiceListGroupsProcedure   = "/" + GroupServiceName + "/ListGroups"
	GroupServiceDeleteGroupProcedure  = "/" + GroupServiceName + "/DeleteGroup"
	GroupServiceAddMemberProcedure    = "/" + GroupServiceName + "/AddMember"
	GroupServiceRemoveMemberProcedure = "/" + GroupServiceName + "/RemoveMember"

	ExpenseServiceCreateExpenseProcedure = "/" + ExpenseServiceName + "/CreateExpense"
	ExpenseServiceListExpensesProcedure  = "/" + ExpenseServiceName + "/ListExpenses"
	ExpenseServiceDeleteExpenseProcedure = "/" + ExpenseServiceName + "/DeleteExpense"

	SettlementServiceGetBalancesProcedure        = "/" + SettlementServiceName + "/GetBalances"
	SettlementServiceSettleUpProcedure           = "/" + SettlementServiceName + "/SettleUp"
	SettlementServiceListSettlementsProcedure    = "/" + SettlementServiceName + "/ListSettlements"
	SettlementServiceCompleteSettlementProcedure = "/" + SettlementServiceName + "/CompleteSettlement"
)

// GroupServiceHandler is implemented by the server side of settleup.v1.GroupService.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	DeleteGroup(context.Context, *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error)
	RemoveMember(context.Context, *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error)
}

// ExpenseServiceHandler is implemented by the server side of settleup.v1.ExpenseService.
type ExpenseServiceHandler interface {
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error)
}

// SettlementServiceHandler is implemented by the server side of settleup.v1.SettlementService.
type SettlementServiceHandler interface {
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
	SettleUp(context.Context, *connect.Request[SettleUpRequest]) (*connect.Response[SettleUpResponse], error)
	ListSettlements(context.Context, *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error)
	CompleteSettlement(context.Context, *connect.Request[CompleteSettlementRequest]) (*connect.Response[CompleteSettlementResponse], error)
}

// The client interfaces mirror the handlers; a client can stand in for a handler.
type (
	GroupServiceClient      = GroupServiceHandler
	ExpenseServiceClient    = ExpenseServiceHandler
	SettlementServiceClient = SettlementServiceHandler
)

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}

func handle[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts []connect.HandlerOption,
) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// NewGroupServiceHandler builds an HTTP handler for svc and returns the path to mount it on.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, GroupServiceCreateGroupProcedure, svc.CreateGroup, opts)
	handle(mux, GroupServiceGetGroupProcedure, svc.GetGroup, opts)
	handle(mux, GroupServiceListGroupsProcedure, svc.ListGroups, opts)
	handle(mux, GroupServiceDeleteGroupProcedure, svc.DeleteGroup, opts)
	handle(mux, GroupServiceAddMemberProcedure, svc.AddMember, opts)
	handle(mux, GroupServiceRemoveMemberProcedure, svc.RemoveMember, opts)
	return "/" + GroupServiceName + "/", mux
}

// NewExpenseServiceHandler builds an HTTP handler for svc and returns the path to mount it on.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts)
	handle(mux, ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts)
	handle(mux, ExpenseServiceDeleteExpenseProcedure, svc.DeleteExpense, opts)
	return "/" + ExpenseServiceName + "/", mux
}

// NewSettlementServiceHandler builds an HTTP handler for svc and returns the path to mount it on.
func NewSettlementServiceHandler(svc SettlementServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, SettlementServiceGetBalancesProcedure, svc.GetBalances, opts)
	handle(mux, SettlementServiceSettleUpProcedure, svc.SettleUp, opts)
	handle(mux, SettlementServiceListSettlementsProcedure, svc.ListSettlements, opts)
	handle(mux, SettlementServiceCompleteSettlementProcedure, svc.CompleteSettlement, opts)
	return "/" + SettlementServiceName + "/", mux
}

type groupServiceClient struct {
	createGroup  *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup     *connect.Client[GetGroupRequest, GetGroupResponse]
	listGroups   *connect.Client[ListGroupsRequest, ListGroupsResponse]
	deleteGroup  *connect.Client[DeleteGroupRequest, DeleteGroupResponse]
	addMember    *connect.Client[AddMemberRequest, AddMemberResponse]
	removeMember *connect.Client[RemoveMemberRequest, RemoveMemberResponse]
}

// NewGroupServiceClient returns a client for the GroupService served at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GroupServiceClient {
	opts = clientOptions(opts)
	return &groupServiceClient{
		createGroup:  connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:     connect.NewClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups:   connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		deleteGroup:  connect.NewClient[DeleteGroupRequest, DeleteGroupResponse](httpClient, baseURL+GroupServiceDeleteGroupProcedure, opts...),
		addMember:    connect.NewClient[AddMemberRequest, AddMemberResponse](httpClient, baseURL+GroupServiceAddMemberProcedure, opts...),
		removeMember: connect.NewClient[RemoveMemberRequest, RemoveMemberResponse](httpClient, baseURL+GroupServiceRemoveMemberProcedure, opts...),
	}
}

func (c *groupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *groupServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}

func (c *groupServiceClient) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

func (c *groupServiceClient) RemoveMember(ctx context.Context, req *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error) {
	return c.removeMember.CallUnary(ctx, req)
}

type expenseServiceClient struct {
	createExpense *connect.Client[CreateExpenseRequest, CreateExpenseResponse]
	listExpenses  *connect.Client[ListExpensesRequest, ListExpensesResponse]
	deleteExpense *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
}

// NewExpenseServiceClient returns a client for the ExpenseService served at baseURL.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ExpenseServiceClient {
	opts = clientOptions(opts)
	return &expenseServiceClient{
		createExpense: connect.NewClient[CreateExpenseRequest, CreateExpenseResponse](httpClient, baseURL+ExpenseServiceCreateExpenseProcedure, opts...),
		listExpenses:  connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+ExpenseServiceListExpensesProcedure, opts...),
		deleteExpense: connect.NewClient[DeleteExpenseRequest, DeleteExpenseResponse](httpClient, baseURL+ExpenseServiceDeleteExpenseProcedure, opts...),
	}
}

func (c *expenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *expenseServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

type settlementServiceClient struct {
	getBalances        *connect.Client[GetBalancesRequest, GetBalancesResponse]
	settleUp           *connect.Client[SettleUpRequest, SettleUpResponse]
	listSettlements    *connect.Client[ListSettlementsRequest, ListSettlementsResponse]
	completeSettlement *connect.Client[CompleteSettlementRequest, CompleteSettlementResponse]
}

// NewSettlementServiceClient returns a client for the SettlementService served at baseURL.
func NewSettlementServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) SettlementServiceClient {
	opts = clientOptions(opts)
	return &settlementServiceClient{
		getBalances:        connect.NewClient[GetBalancesRequest, GetBalancesResponse](httpClient, baseURL+SettlementServiceGetBalancesProcedure, opts...),
		settleUp:           connect.NewClient[SettleUpRequest, SettleUpResponse](httpClient, baseURL+SettlementServiceSettleUpProcedure, opts...),
		listSettlements:    connect.NewClient[ListSettlementsRequest, ListSettlementsResponse](httpClient, baseURL+SettlementServiceListSettlementsProcedure, opts...),
		completeSettlement: connect.NewClient[CompleteSettlementRequest, CompleteSettlementResponse](httpClient, baseURL+SettlementServiceCompleteSettlementProcedure, opts...),
	}
}

func (c *settlementServiceClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}

func (c *settlementServiceClient) SettleUp(ctx context.Context, req *connect.Request[SettleUpRequest]) (*connect.Response[SettleUpResponse], error) {
	return c.settleUp.CallUnary(ctx, req)
}

func (c *settlementServiceClient) ListSettlements(ctx context.Context, req *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}

func (c *settlementServiceClient) CompleteSettlement(ctx context.Context, req *connect.Request[CompleteSettlementRequest]) (*connect.Response[CompleteSettlementResponse], error) {
	return c.completeSettlement.CallUnary(ctx, req)
}
