package rpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
)

func TestCodecRoundTrip(t *testing.T) {
	c := Codec{}
	if c.Name() != "json" {
		t.Fatalf("Name() = %q", c.Name())
	}

	data, err := c.Marshal(&SettleUpRequest{GroupID: "g1"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"group_id":"g1"}` {
		t.Errorf("Marshal = %s", data)
	}

	var got SettleUpRequest
	if err := c.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.GroupID != "g1" {
		t.Errorf("GroupID = %q, want g1", got.GroupID)
	}

	if err := c.Unmarshal(nil, &got); err != nil {
		t.Errorf("Unmarshal(empty) = %v", err)
	}
	if err := c.Unmarshal([]byte("{"), &got); err == nil {
		t.Error("Unmarshal accepted malformed JSON")
	}
}

// echoExpenses implements only ListExpenses; the other methods are never called.
type echoExpenses struct {
	ExpenseServiceHandler
}

func (echoExpenses) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	if req.Msg.GroupID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("group_id required"))
	}
	return connect.NewResponse(&ListExpensesResponse{
		Expenses: []Expense{{ID: "e1", GroupID: req.Msg.GroupID, Amount: "30.00"}},
	}), nil
}

func TestHandlerAndClient(t *testing.T) {
	path, handler := NewExpenseServiceHandler(echoExpenses{})
	if path != "/settleup.v1.ExpenseService/" {
		t.Fatalf("path = %q", path)
	}
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewExpenseServiceClient(http.DefaultClient, server.URL)

	resp, err := client.ListExpenses(context.Background(), connect.NewRequest(&ListExpensesRequest{GroupID: "g1"}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(resp.Msg.Expenses) != 1 || resp.Msg.Expenses[0].Amount != "30.00" {
		t.Errorf("unexpected response: %+v", resp.Msg)
	}

	_, err = client.ListExpenses(context.Background(), connect.NewRequest(&ListExpensesRequest{}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", connect.CodeOf(err))
	}
}

func TestHandlerAcceptsPlainJSON(t *testing.T) {
	_, handler := NewExpenseServiceHandler(echoExpenses{})
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Post(server.URL+ExpenseServiceListExpensesProcedure, "application/json",
		strings.NewReader(`{"group_id":"trip"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
