package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	tests := []struct {
		name        string
		mode        Mode
		obs         Observation
		wantState   State
		wantActions []Action
	}{
		{
			name:        "disabled only tears down",
			mode:        ModeRestart,
			obs:         Observation{State: StateDisabled, ControlAvailable: true, Sync: Syncing},
			wantState:   StateDisabled,
			wantActions: []Action{ActionTearDownTrigger},
		},
		{
			name:      "control binary missing",
			mode:      ModeRestart,
			obs:       Observation{State: StateActive},
			wantState: StateActive,
		},
		{
			name:        "syncing restarts daemon",
			mode:        ModeRestart,
			obs:         Observation{State: StateActive, ControlAvailable: true, Sync: Syncing},
			wantState:   StateActive,
			wantActions: []Action{ActionRestartDaemon},
		},
		{
			name:        "unknown counts as syncing",
			mode:        ModeRestart,
			obs:         Observation{State: StateActive, ControlAvailable: true, Sync: SyncUnknown},
			wantState:   StateActive,
			wantActions: []Action{ActionRestartDaemon},
		},
		{
			name:        "synced disables",
			mode:        ModeRestart,
			obs:         Observation{State: StateActive, ControlAvailable: true, Sync: Synced},
			wantState:   StateDisabled,
			wantActions: []Action{ActionTearDownTrigger},
		},
		{
			name:      "wait mode never restarts",
			mode:      ModeWait,
			obs:       Observation{State: StateActive, ControlAvailable: true, Sync: Syncing},
			wantState: StateActive,
		},
		{
			name:        "wait mode launches console once synced",
			mode:        ModeWait,
			obs:         Observation{State: StateActive, ControlAvailable: true, Sync: Synced},
			wantState:   StateDisabled,
			wantActions: []Action{ActionStartConsole, ActionTearDownTrigger},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, actions := Reconcile(tt.mode, tt.obs)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantActions, actions)
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("wait")
	assert.NoError(t, err)
	assert.Equal(t, ModeWait, m)

	_, err = ParseMode("")
	assert.Error(t, err)
}
