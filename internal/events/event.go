// Package events publishes settlement lifecycle notifications for external
// collaborators such as push notification and payment handoff workers.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Type names an event.
type Type string

const (
	// PlanReplaced is emitted after a new pending plan is persisted.
	PlanReplaced Type = "plan.replaced"
	// SettlementCompleted is emitted after a member confirms a payment.
	SettlementCompleted Type = "settlement.completed"
)

// Event is the JSON message body.
type Event struct {
	Type         Type             `json:"type"`
	GroupID      string           `json:"group_id"`
	SettlementID string           `json:"settlement_id,omitempty"`
	FromMemberID string           `json:"from_member_id,omitempty"`
	ToMemberID   string           `json:"to_member_id,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Count        int              `json:"count,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// NewPlanReplaced describes a plan of count pending transfers.
func NewPlanReplaced(groupID string, count int) Event {
	return Event{
		Type:      PlanReplaced,
		GroupID:   groupID,
		Count:     count,
		Timestamp: time.Now().UTC(),
	}
}

// NewSettlementCompleted describes a confirmed transfer.
func NewSettlementCompleted(groupID, settlementID, from, to string, amount decimal.Decimal) Event {
	return Event{
		Type:         SettlementCompleted,
		GroupID:      groupID,
		SettlementID: settlementID,
		FromMemberID: from,
		ToMemberID:   to,
		Amount:       &amount,
		Timestamp:    time.Now().UTC(),
	}
}

// ToJSON serializes the event.
func (e Event) ToJSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// FromJSON parses an event body.
func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return e, nil
}
