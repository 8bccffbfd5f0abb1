package services

import (
	"context"
	"time"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/backup"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/monitor"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/rpc"
	"github.com/CloudNativeWorks/lynx-node/pkg/template"
)

const (
	SyncStateSynced  = "synced"
	SyncStateSyncing = "syncing"
	SyncStateUnknown = "unknown"
)

// NodeStatus is the operator-facing summary printed by `status`
type NodeStatus struct {
	Platform     string            `json:"platform" yaml:"platform"`
	Sync         string            `json:"sync" yaml:"sync"`
	BlockHeight  *int64            `json:"block_height,omitempty" yaml:"block_height,omitempty"`
	Version      *rpc.Version      `json:"version,omitempty" yaml:"version,omitempty"`
	Units        map[string]string `json:"units" yaml:"units"`
	MonitorState map[string]string `json:"monitor_state" yaml:"monitor_state"`
	NextBackup   *time.Time        `json:"next_backup,omitempty" yaml:"next_backup,omitempty"`
	LastBackup   *backup.Record    `json:"last_backup,omitempty" yaml:"last_backup,omitempty"`
	Backups      int               `json:"backups" yaml:"backups"`
}

var statusUnits = []string{
	template.DaemonUnit,
	template.ConsoleUnit,
	template.SyncMonitorTimer,
	template.SyncWaitTimer,
	template.BackupTimer,
}

// Status collects a read-only snapshot. Individual probes that fail are
// reported as unknown rather than failing the whole call.
func (s *Services) Status(ctx context.Context) (*NodeStatus, error) {
	st := &NodeStatus{
		Platform:     s.probe().String(),
		Sync:         SyncStateUnknown,
		Units:        make(map[string]string, len(statusUnits)),
		MonitorState: make(map[string]string, 2),
	}

	if s.rpc.ControlAvailable() {
		if ibd, err := s.rpc.InitialBlockDownload(ctx); err == nil {
			st.Sync = SyncStateSynced
			if ibd {
				st.Sync = SyncStateSyncing
			}
		} else {
			s.logger.Debugf("sync status: %v", err)
		}
		if height, err := s.rpc.BlockCount(ctx); err == nil {
			st.BlockHeight = &height
		}
	}

	if v, err := s.rpc.NodeVersion(ctx, s.cfg.Node.DaemonPath); err == nil {
		st.Version = &v
	}

	for _, name := range statusUnits {
		state, err := s.units.ActiveState(ctx, name)
		if err != nil {
			state = SyncStateUnknown
		}
		st.Units[name] = state
	}

	for _, mode := range []monitor.Mode{monitor.ModeRestart, monitor.ModeWait} {
		state, err := monitor.LoadState(s.store, mode)
		if err != nil {
			st.MonitorState[string(mode)] = SyncStateUnknown
			continue
		}
		st.MonitorState[string(mode)] = string(state)
	}

	if next, err := s.units.NextElapse(ctx, template.BackupTimer); err == nil && !next.IsZero() {
		st.NextBackup = &next
	}

	records, err := s.Backups()
	if err != nil {
		s.logger.Debugf("listing backups: %v", err)
	}
	st.Backups = len(records)
	if len(records) > 0 {
		st.LastBackup = &records[0]
	}
	return st, nil
}
