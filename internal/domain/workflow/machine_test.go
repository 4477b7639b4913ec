package workflow

import (
	"context"
	"errors"
	"testing"
)

type guardKey struct{}

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateProposed, false},
		{StateLocked, false},
		{StateReverted, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"proposed", StateProposed, true},
		{"reverted", StateReverted, true},
		{"solver status is not a lifecycle state", State("OPTIMAL"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		trigger Trigger
		want    State
		wantErr error
	}{
		{"finalize proposed", StateProposed, TriggerFinalize, StateLocked, nil},
		{"revert locked", StateLocked, TriggerRevert, StateReverted, nil},
		{"finalize locked", StateLocked, TriggerFinalize, StateLocked, ErrInvalidTransition},
		{"finalize reverted", StateReverted, TriggerFinalize, StateReverted, ErrInvalidTransition},
		{"revert proposed", StateProposed, TriggerRevert, StateProposed, ErrInvalidTransition},
		{"revert reverted", StateReverted, TriggerRevert, StateReverted, ErrInvalidTransition},
		{"unknown state", State("DRAFT"), TriggerFinalize, "", ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.from, tt.trigger)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Transition() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Transition() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Transition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransition_TableCoversEveryState(t *testing.T) {
	for state := range validStates {
		if _, ok := transitions[state]; !ok {
			t.Errorf("state %s missing from transition table", state)
		}
	}
	for state := range terminalStates {
		if len(transitions[state]) != 0 {
			t.Errorf("terminal state %s has outgoing transitions", state)
		}
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := NewBuilder()

	config := builder.Configure(StateProposed)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	if config2 := builder.Configure(StateProposed); config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	NewBuilder().Configure(State("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	NewBuilder().Build(State("INVALID"))
}

func TestStateConfiguration_PermitPanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid target state")
		}
	}()

	NewBuilder().Configure(StateProposed).Permit(TriggerFinalize, State("INVALID"))
}

func TestStateMachine_LifecyclePath(t *testing.T) {
	machine := ConfigureLifecycle(NewBuilder(), nil).Build(StateProposed)
	ctx := context.Background()

	if err := machine.Fire(ctx, TriggerFinalize); err != nil {
		t.Fatalf("Fire(FINALIZE) failed: %v", err)
	}
	if machine.State() != StateLocked {
		t.Fatalf("State = %v, want %v", machine.State(), StateLocked)
	}

	if err := machine.Fire(ctx, TriggerRevert); err != nil {
		t.Fatalf("Fire(REVERT) failed: %v", err)
	}
	if machine.State() != StateReverted {
		t.Fatalf("State = %v, want %v", machine.State(), StateReverted)
	}

	if got := machine.PermittedTriggers(ctx); len(got) != 0 {
		t.Errorf("PermittedTriggers() from terminal state = %v, want none", got)
	}
}

func TestStateMachine_Fire_InvalidTransitionLeavesState(t *testing.T) {
	machine := ConfigureLifecycle(NewBuilder(), nil).Build(StateProposed)

	err := machine.Fire(context.Background(), TriggerRevert)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if machine.State() != StateProposed {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateProposed, machine.State())
	}
}

func TestStateMachine_GuardedFinalize(t *testing.T) {
	guard := func(ctx context.Context) bool {
		ok, _ := ctx.Value(guardKey{}).(bool)
		return ok
	}
	builder := ConfigureLifecycle(NewBuilder(), map[Trigger]GuardFunc{TriggerFinalize: guard})

	blocked := context.WithValue(context.Background(), guardKey{}, false)
	allowed := context.WithValue(context.Background(), guardKey{}, true)

	machine := builder.Build(StateProposed)
	if machine.CanFire(blocked, TriggerFinalize) {
		t.Error("CanFire() should evaluate the guard and return false")
	}
	if got := machine.PermittedTriggers(blocked); len(got) != 0 {
		t.Errorf("PermittedTriggers() = %v, want none while guard fails", got)
	}

	err := machine.Fire(blocked, TriggerFinalize)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}
	if machine.State() != StateProposed {
		t.Errorf("State changed despite failed guard: %v", machine.State())
	}

	if !machine.CanFire(allowed, TriggerFinalize) {
		t.Error("CanFire() should return true when guard passes")
	}
	if err := machine.Fire(allowed, TriggerFinalize); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine.State() != StateLocked {
		t.Errorf("State = %v, want %v", machine.State(), StateLocked)
	}
}

func TestStateMachine_NoConfiguration(t *testing.T) {
	machine := NewBuilder().Build(StateProposed)

	if err := machine.Fire(context.Background(), TriggerFinalize); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
	if triggers := machine.PermittedTriggers(context.Background()); len(triggers) != 0 {
		t.Errorf("PermittedTriggers() returned %d triggers, want 0", len(triggers))
	}
}

func TestStateMachine_Independence(t *testing.T) {
	builder := ConfigureLifecycle(NewBuilder(), nil)

	machine1 := builder.Build(StateProposed)
	machine2 := builder.Build(StateProposed)

	if err := machine1.Fire(context.Background(), TriggerFinalize); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}

	if machine2.State() != StateProposed {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), StateProposed)
	}
}
