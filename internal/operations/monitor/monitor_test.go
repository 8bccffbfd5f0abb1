package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/store"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/systemd"
	"github.com/CloudNativeWorks/lynx-node/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatus struct {
	available bool
	answers   []bool
	err       error
	queries   int
}

func (f *fakeStatus) ControlAvailable() bool { return f.available }

func (f *fakeStatus) InitialBlockDownload(ctx context.Context) (bool, error) {
	f.queries++
	if f.err != nil {
		return false, f.err
	}
	if len(f.answers) == 0 {
		return true, nil
	}
	ibd := f.answers[0]
	f.answers = f.answers[1:]
	return ibd, nil
}

func newTestMonitor(t *testing.T, mode Mode, status *fakeStatus) (*Monitor, *systemd.FakeManager, *store.Store) {
	t.Helper()
	units := systemd.NewFakeManager()
	_, err := units.Define(context.Background(), systemd.Unit{
		Name:    template.DaemonUnit,
		Options: template.DaemonService(template.DaemonParams{DaemonPath: "/usr/local/bin/lynxd", WorkingDir: "/var/lib/lynx", ConfPath: "/var/lib/lynx/lynx.conf", User: "root"}),
	})
	require.NoError(t, err)

	st := store.New(t.TempDir())
	m := New(Options{
		Mode:           mode,
		Store:          st,
		Units:          units,
		Status:         status,
		ConsoleCommand: "/usr/local/bin/beacon",
		ServiceUser:    "root",
	})
	return m, units, st
}

func TestRun_RestartUntilSyncedThenInert(t *testing.T) {
	status := &fakeStatus{available: true, answers: []bool{true, true, true, false}}
	m, units, st := newTestMonitor(t, ModeRestart, status)
	ctx := context.Background()
	require.NoError(t, m.Install(ctx, "/usr/local/bin/lynx-node sync-monitor"))
	assert.True(t, units.IsEnabled(template.SyncMonitorTimer))

	for i := 0; i < 3; i++ {
		res, err := m.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, StateActive, res.State)
	}
	assert.Equal(t, 3, units.Count("restart", template.DaemonUnit))

	res, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateDisabled, res.State)
	assert.False(t, units.IsEnabled(template.SyncMonitorTimer))

	state, err := LoadState(st, ModeRestart)
	require.NoError(t, err)
	assert.Equal(t, StateDisabled, state)

	// further runs neither query nor restart
	res, err = m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateDisabled, res.State)
	assert.Equal(t, 4, status.queries)
	assert.Equal(t, 3, units.Count("restart", template.DaemonUnit))
	assert.Equal(t, 2, units.Count("disable", template.SyncMonitorTimer))
}

func TestRun_ControlMissingIsInert(t *testing.T) {
	status := &fakeStatus{available: false}
	m, units, _ := newTestMonitor(t, ModeRestart, status)

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateActive, res.State)
	assert.Empty(t, res.Actions)
	assert.Zero(t, status.queries)
	assert.Zero(t, units.Count("restart", template.DaemonUnit))
}

func TestRun_QueryFailureTreatedAsSyncing(t *testing.T) {
	status := &fakeStatus{available: true, err: errors.New("connection refused")}
	m, units, _ := newTestMonitor(t, ModeRestart, status)

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncUnknown, res.Sync)
	assert.Equal(t, 1, units.Count("restart", template.DaemonUnit))
}

func TestRun_TeardownErrorsAreSwallowed(t *testing.T) {
	status := &fakeStatus{available: true, answers: []bool{false}}
	m, units, _ := newTestMonitor(t, ModeRestart, status)
	units.Errors["stop "+template.SyncMonitorTimer] = errors.New("unit busy")

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDisabled, res.State)
}

func TestRun_WaitModeStartsConsole(t *testing.T) {
	status := &fakeStatus{available: true, answers: []bool{true, false}}
	m, units, _ := newTestMonitor(t, ModeWait, status)
	ctx := context.Background()
	require.NoError(t, m.Install(ctx, "/usr/local/bin/lynx-node sync-wait"))

	_, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, units.Count("start", template.ConsoleUnit))

	res, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateDisabled, res.State)
	assert.True(t, units.IsEnabled(template.ConsoleUnit))
	assert.Equal(t, 1, units.Count("start", template.ConsoleUnit))
	assert.Zero(t, units.Count("restart", template.DaemonUnit))
	assert.False(t, units.IsEnabled(template.SyncWaitTimer))
}

func TestInstall_ModesAreExclusive(t *testing.T) {
	ctx := context.Background()
	m, units, st := newTestMonitor(t, ModeRestart, &fakeStatus{})
	require.NoError(t, m.Install(ctx, "/usr/local/bin/lynx-node sync-monitor"))
	assert.True(t, units.IsEnabled(template.SyncMonitorTimer))

	wait := New(Options{Mode: ModeWait, Store: st, Units: units, Status: &fakeStatus{}})
	require.NoError(t, wait.Install(ctx, "/usr/local/bin/lynx-node sync-wait"))
	assert.False(t, units.IsEnabled(template.SyncMonitorTimer))
	assert.True(t, units.IsEnabled(template.SyncWaitTimer))

	unit, ok := units.UnitFile(template.SyncWaitTimer)
	require.True(t, ok)
	assert.Contains(t, string(unit), "OnUnitActiveSec=12min")
}

func TestInstall_DisabledStaysDisabled(t *testing.T) {
	ctx := context.Background()
	m, units, st := newTestMonitor(t, ModeRestart, &fakeStatus{})
	require.NoError(t, st.Put(stateKey(ModeRestart), string(StateDisabled)))

	require.NoError(t, m.Install(ctx, "/usr/local/bin/lynx-node sync-monitor"))
	assert.False(t, units.IsEnabled(template.SyncMonitorTimer))
	assert.Zero(t, units.Count("enable", template.SyncMonitorTimer))
}

func TestLoadState_Corrupt(t *testing.T) {
	st := store.New(t.TempDir())
	require.NoError(t, st.Put(stateKey(ModeWait), "MAYBE"))
	_, err := LoadState(st, ModeWait)
	assert.Error(t, err)
}
