package systemd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/files"
	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/coreos/go-systemd/v22/util"
)

const (
	EtcSystemdDir = "/etc/systemd/system"
	unitFilePerm  = 0644
)

// DBusAPI is the subset of *dbus.Conn used by DBusManager
type DBusAPI interface {
	Close()
	ListUnitsByNamesContext(ctx context.Context, units []string) ([]dbus.UnitStatus, error)
	StartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	RestartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	EnableUnitFilesContext(ctx context.Context, files []string, runtime bool, force bool) (bool, []dbus.EnableUnitFileChange, error)
	DisableUnitFilesContext(ctx context.Context, files []string, runtime bool) ([]dbus.DisableUnitFileChange, error)
	ReloadContext(ctx context.Context) error
	GetUnitTypePropertyContext(ctx context.Context, unit string, unitType string, propertyName string) (*dbus.Property, error)
}

// DBusAPIFactory opens a connection to the system manager
type DBusAPIFactory func(ctx context.Context) (DBusAPI, error)

func NewDBusAPI(ctx context.Context) (DBusAPI, error) {
	return dbus.NewWithContext(ctx)
}

// ErrUnavailable means the host is not running systemd
var ErrUnavailable = errors.New("systemd is not the running init system")

// Available reports whether systemd is the running init system
func Available() bool {
	return util.IsRunningSystemd()
}

// DBusManager implements Manager over the systemd D-Bus API
type DBusManager struct {
	unitDir string
	newDBus DBusAPIFactory
	logger  *logger.Logger
}

var _ Manager = (*DBusManager)(nil)

func NewDBusManager(unitDir string, factory DBusAPIFactory) *DBusManager {
	if unitDir == "" {
		unitDir = EtcSystemdDir
	}
	if factory == nil {
		factory = NewDBusAPI
	}
	return &DBusManager{
		unitDir: unitDir,
		newDBus: factory,
		logger:  logger.NewLogger("systemd"),
	}
}

func (m *DBusManager) conn(ctx context.Context) (DBusAPI, error) {
	conn, err := m.newDBus(ctx)
	if err != nil {
		m.logger.Errorf("failed to connect to dbus: %v", err)
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return conn, nil
}

func (m *DBusManager) unitPath(name string) string {
	return filepath.Join(m.unitDir, name)
}

func (m *DBusManager) Define(ctx context.Context, u Unit) (bool, error) {
	data, err := u.Render()
	if err != nil {
		return false, err
	}

	path := m.unitPath(u.Name)
	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, data) {
		m.logger.Debugf("unit %s unchanged", u.Name)
		return false, nil
	}

	if err := files.WriteFileAtomic(path, data, unitFilePerm); err != nil {
		return false, fmt.Errorf("failed to write unit %s: %w", u.Name, err)
	}

	conn, err := m.conn(ctx)
	if err != nil {
		return true, err
	}
	defer conn.Close()

	if err := conn.ReloadContext(ctx); err != nil {
		return true, fmt.Errorf("daemon reload after writing %s failed: %w", u.Name, err)
	}
	m.logger.Infof("unit %s written", u.Name)
	return true, nil
}

func (m *DBusManager) IsDefined(ctx context.Context, name string) (bool, error) {
	if _, err := os.Stat(m.unitPath(name)); err == nil {
		return true, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	status, err := m.status(ctx, name)
	if err != nil {
		return false, err
	}
	return status != nil && status.LoadState == "loaded", nil
}

func (m *DBusManager) status(ctx context.Context, name string) (*dbus.UnitStatus, error) {
	conn, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	units, err := conn.ListUnitsByNamesContext(ctx, []string{name})
	if err != nil {
		return nil, fmt.Errorf("failed to query unit %s: %w", name, err)
	}
	for i := range units {
		if units[i].Name == name {
			return &units[i], nil
		}
	}
	return nil, nil
}

func (m *DBusManager) ActiveState(ctx context.Context, name string) (string, error) {
	status, err := m.status(ctx, name)
	if err != nil {
		return "", err
	}
	if status == nil || status.LoadState == "not-found" {
		return StateInactive, nil
	}
	return status.ActiveState, nil
}

func (m *DBusManager) Enable(ctx context.Context, name string) error {
	conn, err := m.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, _, err := conn.EnableUnitFilesContext(ctx, []string{name}, false, true); err != nil {
		return fmt.Errorf("failed to enable %s: %w", name, err)
	}
	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("daemon reload after enabling %s failed: %w", name, err)
	}
	m.logger.Debugf("unit %s enabled", name)
	return nil
}

func (m *DBusManager) Disable(ctx context.Context, name string) error {
	defined, err := m.IsDefined(ctx, name)
	if err != nil {
		return err
	}
	if !defined {
		m.logger.Debugf("unit %s not defined, nothing to disable", name)
		return nil
	}

	conn, err := m.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.DisableUnitFilesContext(ctx, []string{name}, false); err != nil {
		return fmt.Errorf("failed to disable %s: %w", name, err)
	}
	if err := conn.ReloadContext(ctx); err != nil {
		return fmt.Errorf("daemon reload after disabling %s failed: %w", name, err)
	}
	m.logger.Debugf("unit %s disabled", name)
	return nil
}

func (m *DBusManager) Start(ctx context.Context, name string) error {
	state, err := m.ActiveState(ctx, name)
	if err != nil {
		return err
	}
	if state == StateActive {
		m.logger.Debugf("unit %s already running", name)
		return nil
	}
	return m.job(ctx, "start", name, func(conn DBusAPI, ch chan<- string) (int, error) {
		return conn.StartUnitContext(ctx, name, "replace", ch)
	})
}

func (m *DBusManager) Stop(ctx context.Context, name string) error {
	state, err := m.ActiveState(ctx, name)
	if err != nil {
		return err
	}
	if state == StateInactive || state == StateFailed {
		m.logger.Debugf("unit %s not running", name)
		return nil
	}
	return m.job(ctx, "stop", name, func(conn DBusAPI, ch chan<- string) (int, error) {
		return conn.StopUnitContext(ctx, name, "replace", ch)
	})
}

func (m *DBusManager) Restart(ctx context.Context, name string) error {
	return m.job(ctx, "restart", name, func(conn DBusAPI, ch chan<- string) (int, error) {
		return conn.RestartUnitContext(ctx, name, "replace", ch)
	})
}

// job submits a unit job and waits for systemd to report its result
func (m *DBusManager) job(ctx context.Context, op, name string, submit func(DBusAPI, chan<- string) (int, error)) error {
	conn, err := m.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	statusCh := make(chan string, 1)
	if _, err := submit(conn, statusCh); err != nil {
		return fmt.Errorf("dbus %s request for %s failed: %w", op, name, err)
	}

	select {
	case status := <-statusCh:
		if status != "done" {
			return fmt.Errorf("failed to %s %s (job result %q)", op, name, status)
		}
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s of %s: %w", op, name, ctx.Err())
	}

	m.logger.Debugf("unit %s: %s done", name, op)
	return nil
}

func (m *DBusManager) NextElapse(ctx context.Context, name string) (time.Time, error) {
	conn, err := m.conn(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Close()

	prop, err := conn.GetUnitTypePropertyContext(ctx, name, "Timer", "NextElapseUSecRealtime")
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read next elapse of %s: %w", name, err)
	}
	usec, ok := prop.Value.Value().(uint64)
	if !ok || usec == 0 || usec == ^uint64(0) {
		return time.Time{}, nil
	}
	return time.UnixMicro(int64(usec)), nil
}
