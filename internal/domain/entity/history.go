package entity

import "time"

// DecisionHistory is the audit trail of a decision's lifecycle
type DecisionHistory struct {
	ID             int64     `json:"id"`
	DecisionID     int64     `json:"decision_id"`
	ActorID        string    `json:"actor_id"`
	ActorRole      Role      `json:"actor_role"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	ActionType     string    `json:"action_type"`
	Notes          string    `json:"notes"`
	Timestamp      time.Time `json:"timestamp"`
}
