package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"proposal saved", TypeProposalSaved, true},
		{"decision finalized", TypeDecisionFinalized, true},
		{"decision reverted", TypeDecisionReverted, true},
		{"actual invoice", TypeActualInvoiceEntered, true},
		{"unknown type", Type("instance.created"), false},
		{"empty string", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(TypeDecisionFinalized, 42, "run-1", map[string]interface{}{"status": "LOCKED"})

	if event.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if event.Type != TypeDecisionFinalized {
		t.Errorf("Event Type = %v, want %v", event.Type, TypeDecisionFinalized)
	}
	if event.DecisionID != 42 || event.RunID != "run-1" {
		t.Errorf("Event identity = (%d, %s), want (42, run-1)", event.DecisionID, event.RunID)
	}
	if event.GetPayloadString("status") != "LOCKED" {
		t.Errorf("Payload[status] = %v, want LOCKED", event.Payload["status"])
	}
	if event.CorrelationID == "" || event.CorrelationID == event.ID {
		t.Error("Event CorrelationID should be set independently of ID")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}
}

func TestNewEvent_NilPayload(t *testing.T) {
	event := NewEvent(TypeDecisionReverted, 1, "", nil)
	if event.Payload == nil {
		t.Fatal("Payload should default to an empty map")
	}
	if got := event.GetPayloadInt("missing"); got != 0 {
		t.Errorf("GetPayloadInt(missing) = %d, want 0", got)
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	a := NewEventWithCorrelation(TypeDecisionFinalized, 1, "run", nil, "batch-1")
	b := NewEventWithCorrelation(TypeDecisionFinalized, 2, "run", nil, "batch-1")

	if a.CorrelationID != "batch-1" || b.CorrelationID != "batch-1" {
		t.Errorf("correlation = (%s, %s), want batch-1 for both", a.CorrelationID, b.CorrelationID)
	}
	if a.ID == b.ID {
		t.Error("events in one batch should still have distinct IDs")
	}
}

func TestEvent_WithPayloadAndActor(t *testing.T) {
	original := NewEvent(TypeProposalSaved, 0, "run-9", map[string]interface{}{"count": 3})

	modified := original.WithPayload("proposal_name", "Lowest Cost").WithActor("u-1")

	if _, exists := original.Payload["proposal_name"]; exists {
		t.Error("Original event should not be modified")
	}
	if original.ActorID != "" {
		t.Error("Original event actor should not be modified")
	}
	if modified.GetPayloadInt("count") != 3 {
		t.Error("Modified event should retain original payload")
	}
	if modified.GetPayloadString("proposal_name") != "Lowest Cost" {
		t.Error("Modified event should have new payload")
	}
	if modified.ID != original.ID || modified.CorrelationID != original.CorrelationID {
		t.Error("Modified event should keep identity fields")
	}
	if modified.ActorID != "u-1" {
		t.Errorf("ActorID = %q, want u-1", modified.ActorID)
	}
}

func TestEvent_GetPayloadInt(t *testing.T) {
	event := NewEvent(TypeDecisionFinalized, 1, "run", map[string]interface{}{
		"int64":   int64(100),
		"int":     50,
		"float64": 75.5,
		"string":  "not a number",
	})

	tests := []struct {
		key  string
		want int64
	}{
		{"int64", 100},
		{"int", 50},
		{"float64", 75},
		{"string", 0},
		{"nonexistent", 0},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := event.GetPayloadInt(tt.key); got != tt.want {
				t.Errorf("GetPayloadInt(%v) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}
