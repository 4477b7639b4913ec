package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashFlowEvent is a dated cash movement tied to a decision
type CashFlowEvent struct {
	ID          string          `json:"id"`
	DecisionID  int64           `json:"decision_id"`
	FlowType    FlowType        `json:"flow_type"`
	Kind        string          `json:"kind"`
	EventDate   time.Time       `json:"event_date"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CancelledAt *time.Time      `json:"cancelled_at,omitempty"`
}

// IsActive reports whether the event still counts toward the forecast
func (e *CashFlowEvent) IsActive() bool {
	return e.Status == CashFlowStatusActive
}
