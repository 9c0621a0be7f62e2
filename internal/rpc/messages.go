package rpc

// Amounts travel as decimal strings with two fractional digits ("30.00").
// Timestamps are Unix seconds.

type Member struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	PaymentAddress string `json:"payment_address,omitempty"`
	JoinedAt       int64  `json:"joined_at,omitempty"`
}

type Group struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	CreatedBy   string   `json:"created_by"`
	Members     []Member `json:"members"`
	CreatedAt   int64    `json:"created_at"`
}

type Share struct {
	MemberID string `json:"member_id"`
	Amount   string `json:"amount"`
}

type Expense struct {
	ID          string  `json:"id"`
	GroupID     string  `json:"group_id"`
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Amount      string  `json:"amount"`
	PaidBy      string  `json:"paid_by"`
	Shares      []Share `json:"shares"`
	CreatedAt   int64   `json:"created_at"`
}

type Balance struct {
	MemberID    string `json:"member_id"`
	DisplayName string `json:"display_name"`
	Paid        string `json:"paid"`
	Owed        string `json:"owed"`
	Net         string `json:"net"`
}

// Settlement carries the names and the creditor's payment address so a
// client can hand the transfer to a payment app without another lookup.
type Settlement struct {
	ID               string `json:"id"`
	GroupID          string `json:"group_id"`
	FromMemberID     string `json:"from_member_id"`
	FromName         string `json:"from_name"`
	ToMemberID       string `json:"to_member_id"`
	ToName           string `json:"to_name"`
	ToPaymentAddress string `json:"to_payment_address,omitempty"`
	Amount           string `json:"amount"`
	Status           string `json:"status"`
	CreatedAt        int64  `json:"created_at"`
	SettledAt        int64  `json:"settled_at,omitempty"`
}

// GroupService

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Members besides the caller, who always joins as the first member.
	Members []Member `json:"members,omitempty"`
}

type CreateGroupResponse struct {
	Group Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id"`
}

type GetGroupResponse struct {
	Group Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []Group `json:"groups"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"group_id"`
}

type DeleteGroupResponse struct{}

type AddMemberRequest struct {
	GroupID string `json:"group_id"`
	Member  Member `json:"member"`
}

type AddMemberResponse struct {
	Member Member `json:"member"`
}

type RemoveMemberRequest struct {
	GroupID  string `json:"group_id"`
	MemberID string `json:"member_id"`
}

type RemoveMemberResponse struct{}

// ExpenseService

// CreateExpenseRequest splits Amount by Shares when given, otherwise equally
// over ParticipantIDs, or over the whole group when neither is set.
type CreateExpenseRequest struct {
	GroupID        string   `json:"group_id"`
	Description    string   `json:"description"`
	Category       string   `json:"category,omitempty"`
	Amount         string   `json:"amount"`
	PaidBy         string   `json:"paid_by"`
	ParticipantIDs []string `json:"participant_ids,omitempty"`
	Shares         []Share  `json:"shares,omitempty"`
}

type CreateExpenseResponse struct {
	Expense Expense `json:"expense"`
}

type ListExpensesRequest struct {
	GroupID string `json:"group_id"`
}

type ListExpensesResponse struct {
	Expenses []Expense `json:"expenses"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expense_id"`
}

type DeleteExpenseResponse struct{}

// SettlementService

type GetBalancesRequest struct {
	GroupID string `json:"group_id"`
}

type GetBalancesResponse struct {
	Balances  []Balance `json:"balances"`
	TotalPaid string    `json:"total_paid"`
	TotalOwed string    `json:"total_owed"`
}

type SettleUpRequest struct {
	GroupID string `json:"group_id"`
}

type SettleUpResponse struct {
	Settlements []Settlement `json:"settlements"`
	AllSettled  bool         `json:"all_settled"`
}

type ListSettlementsRequest struct {
	GroupID string `json:"group_id"`
	// Status is "pending", "completed" or empty for both.
	Status string `json:"status,omitempty"`
}

type ListSettlementsResponse struct {
	Settlements []Settlement `json:"settlements"`
}

type CompleteSettlementRequest struct {
	SettlementID string `json:"settlement_id"`
}

type CompleteSettlementResponse struct {
	Settlement Settlement `json:"settlement"`
}
