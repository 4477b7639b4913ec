package workflow

// State represents a decision lifecycle state
type State string

const (
	StateProposed State = "PROPOSED"
	StateLocked   State = "LOCKED"
	StateReverted State = "REVERTED"
)

var validStates = map[State]bool{
	StateProposed: true,
	StateLocked:   true,
	StateReverted: true,
}

var terminalStates = map[State]bool{
	StateReverted: true,
}

// IsTerminal returns true if no transition leaves the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}
