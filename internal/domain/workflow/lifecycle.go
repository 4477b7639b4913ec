package workflow

import "fmt"

// transitions is the complete decision lifecycle. Any (state, trigger)
// pair missing from this table is rejected.
var transitions = map[State]map[Trigger]State{
	StateProposed: {TriggerFinalize: StateLocked},
	StateLocked:   {TriggerRevert: StateReverted},
	StateReverted: {},
}

// Transition returns the state reached by firing trigger from current
func Transition(current State, trigger Trigger) (State, error) {
	if !current.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidState, current)
	}
	next, ok := transitions[current][trigger]
	if !ok {
		return current, fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, current)
	}
	return next, nil
}

// ConfigureLifecycle registers every lifecycle transition on the builder.
// guards may attach a condition to a trigger; a missing entry means unguarded.
func ConfigureLifecycle(b StateMachineBuilder, guards map[Trigger]GuardFunc) StateMachineBuilder {
	for from, edges := range transitions {
		cfg := b.Configure(from)
		for trigger, to := range edges {
			cfg.PermitIf(trigger, to, guards[trigger])
		}
	}
	return b
}
