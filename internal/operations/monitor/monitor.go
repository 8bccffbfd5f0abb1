package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/store"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/systemd"
	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
	"github.com/CloudNativeWorks/lynx-node/pkg/template"
)

// StatusSource reports the node's sync state
type StatusSource interface {
	ControlAvailable() bool
	InitialBlockDownload(ctx context.Context) (bool, error)
}

type Options struct {
	Mode           Mode
	Store          *store.Store
	Units          systemd.Manager
	Status         StatusSource
	ConsoleCommand string
	ServiceUser    string
}

type Monitor struct {
	mode           Mode
	store          *store.Store
	units          systemd.Manager
	status         StatusSource
	consoleCommand string
	serviceUser    string
	logger         *logger.Logger
}

// Result summarises one run
type Result struct {
	Previous State
	State    State
	Sync     SyncStatus
	Actions  []Action
}

func New(opts Options) *Monitor {
	return &Monitor{
		mode:           opts.Mode,
		store:          opts.Store,
		units:          opts.Units,
		status:         opts.Status,
		consoleCommand: opts.ConsoleCommand,
		serviceUser:    opts.ServiceUser,
		logger:         logger.NewLogger("sync-monitor"),
	}
}

// Service returns the unit name of the monitor service for mode
func Service(mode Mode) string {
	if mode == ModeWait {
		return template.SyncWaitUnit
	}
	return template.SyncMonitorUnit
}

// Timer returns the unit name of the timer driving mode
func Timer(mode Mode) string {
	if mode == ModeWait {
		return template.SyncWaitTimer
	}
	return template.SyncMonitorTimer
}

func other(mode Mode) Mode {
	if mode == ModeWait {
		return ModeRestart
	}
	return ModeWait
}

func stateKey(mode Mode) string {
	return fmt.Sprintf("sync-%s.state", mode)
}

// LoadState returns the persisted state for mode, ACTIVE when none is stored
func LoadState(st *store.Store, mode Mode) (State, error) {
	value, err := st.Get(stateKey(mode))
	if errors.Is(err, store.ErrNotFound) {
		return StateActive, nil
	}
	if err != nil {
		return "", err
	}
	switch State(value) {
	case StateActive, StateDisabled:
		return State(value), nil
	}
	return "", fmt.Errorf("corrupt monitor state %q", value)
}

func (m *Monitor) observe(ctx context.Context) (Observation, error) {
	state, err := LoadState(m.store, m.mode)
	if err != nil {
		return Observation{}, err
	}
	obs := Observation{State: state}
	if state == StateDisabled {
		return obs, nil
	}

	obs.ControlAvailable = m.status.ControlAvailable()
	if !obs.ControlAvailable {
		return obs, nil
	}

	ibd, err := m.status.InitialBlockDownload(ctx)
	switch {
	case err != nil:
		m.logger.Warnf("sync status query failed, treating node as syncing: %v", err)
		obs.Sync = SyncUnknown
	case ibd:
		obs.Sync = Syncing
	default:
		obs.Sync = Synced
	}
	return obs, nil
}

// Run performs one monitor pass
func (m *Monitor) Run(ctx context.Context) (Result, error) {
	obs, err := m.observe(ctx)
	if err != nil {
		return Result{}, err
	}

	next, actions := Reconcile(m.mode, obs)
	res := Result{Previous: obs.State, State: next, Sync: obs.Sync, Actions: actions}

	if obs.State == StateActive && !obs.ControlAvailable {
		m.logger.Info("lynx-cli not installed yet, nothing to do")
	}

	for _, action := range actions {
		switch action {
		case ActionRestartDaemon:
			m.logger.Infof("node is %s, restarting %s", obs.Sync, template.DaemonUnit)
			if err := m.units.Restart(ctx, template.DaemonUnit); err != nil {
				return res, fmt.Errorf("failed to restart daemon: %w", err)
			}
		case ActionStartConsole:
			if err := m.units.Enable(ctx, template.ConsoleUnit); err != nil {
				return res, fmt.Errorf("failed to enable console: %w", err)
			}
			if err := m.units.Start(ctx, template.ConsoleUnit); err != nil {
				return res, fmt.Errorf("failed to start console: %w", err)
			}
		case ActionTearDownTrigger:
			if next != obs.State {
				if err := m.store.Put(stateKey(m.mode), string(next)); err != nil {
					return res, fmt.Errorf("failed to persist monitor state: %w", err)
				}
				m.logger.Infof("node synced, %s disabled", Timer(m.mode))
			}
			m.tearDown(ctx, Timer(m.mode))
		}
	}
	return res, nil
}

// tearDown stops and disables a timer, logging failures only
func (m *Monitor) tearDown(ctx context.Context, timer string) {
	for _, err := range systemd.TearDown(ctx, m.units, timer) {
		m.logger.Warnf("teardown of %s: %v", timer, err)
	}
}

// Install defines the units for this mode and arms its timer. The timer of
// the other mode is torn down. A monitor that already disabled itself is
// left disabled.
func (m *Monitor) Install(ctx context.Context, execStart string) error {
	m.tearDown(ctx, Timer(other(m.mode)))

	desc := "Lynx sync monitor"
	if m.mode == ModeWait {
		desc = "Lynx sync wait"
		if _, err := m.units.Define(ctx, systemd.Unit{
			Name:    template.ConsoleUnit,
			Options: template.ConsoleService(m.consoleCommand, m.serviceUser),
		}); err != nil {
			return err
		}
	}

	if _, err := m.units.Define(ctx, systemd.Unit{
		Name:    Service(m.mode),
		Options: template.TaskService(desc, execStart),
	}); err != nil {
		return err
	}
	if _, err := m.units.Define(ctx, systemd.Unit{
		Name:    Timer(m.mode),
		Options: template.SyncTimer(desc + " schedule"),
	}); err != nil {
		return err
	}

	state, err := LoadState(m.store, m.mode)
	if err != nil {
		return err
	}
	if state == StateDisabled {
		m.logger.Infof("%s already finished, leaving timer disabled", Timer(m.mode))
		m.tearDown(ctx, Timer(m.mode))
		return nil
	}

	if err := m.units.Enable(ctx, Timer(m.mode)); err != nil {
		return err
	}
	return m.units.Start(ctx, Timer(m.mode))
}
