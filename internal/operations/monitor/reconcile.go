package monitor

import "fmt"

// Mode selects the monitor variant
type Mode string

const (
	// ModeRestart restarts the daemon on every run until it has synced
	ModeRestart Mode = "restart"
	// ModeWait only waits for sync and then launches the console
	ModeWait Mode = "wait"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRestart, ModeWait:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown monitor mode %q", s)
}

// State is the persisted lifecycle of a monitor
type State string

const (
	StateActive   State = "ACTIVE"
	StateDisabled State = "DISABLED"
)

// SyncStatus is what the node reported on this run
type SyncStatus int

const (
	SyncUnknown SyncStatus = iota
	Syncing
	Synced
)

func (s SyncStatus) String() string {
	switch s {
	case Syncing:
		return "syncing"
	case Synced:
		return "synced"
	}
	return "unknown"
}

// Action is a side effect requested by Reconcile
type Action string

const (
	ActionRestartDaemon   Action = "restart-daemon"
	ActionStartConsole    Action = "start-console"
	ActionTearDownTrigger Action = "teardown-trigger"
)

// Observation is everything a single run knows
type Observation struct {
	State            State
	ControlAvailable bool
	Sync             SyncStatus
}

// Reconcile decides the next state and the actions for one run. Teardown
// is always the last action.
func Reconcile(mode Mode, obs Observation) (State, []Action) {
	if obs.State == StateDisabled {
		return StateDisabled, []Action{ActionTearDownTrigger}
	}
	if !obs.ControlAvailable {
		return StateActive, nil
	}

	if obs.Sync == Synced {
		if mode == ModeWait {
			return StateDisabled, []Action{ActionStartConsole, ActionTearDownTrigger}
		}
		return StateDisabled, []Action{ActionTearDownTrigger}
	}

	// syncing or unknown
	if mode == ModeRestart {
		return StateActive, []Action{ActionRestartDaemon}
	}
	return StateActive, nil
}
