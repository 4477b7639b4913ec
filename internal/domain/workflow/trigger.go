package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerFinalize Trigger = "FINALIZE"
	TriggerRevert   Trigger = "REVERT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// IsValid returns true if the trigger is known to the lifecycle
func (t Trigger) IsValid() bool {
	return t == TriggerFinalize || t == TriggerRevert
}
