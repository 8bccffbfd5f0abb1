package services

import (
	"context"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/backup"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/bashrc"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/monitor"
)

func (s *Services) newMonitor(mode monitor.Mode) *monitor.Monitor {
	return monitor.New(monitor.Options{
		Mode:           mode,
		Store:          s.store,
		Units:          s.units,
		Status:         s.rpc,
		ConsoleCommand: s.cfg.Monitor.ConsoleCommand,
		ServiceUser:    s.cfg.Node.ServiceUser,
	})
}

// SyncMonitor runs one pass of the monitor in the given mode
func (s *Services) SyncMonitor(ctx context.Context, mode monitor.Mode) (monitor.Result, error) {
	return s.newMonitor(mode).Run(ctx)
}

func (s *Services) newArchiver() *backup.Archiver {
	return backup.New(backup.Options{
		Dir:       s.cfg.Backup.Dir,
		ChainID:   s.cfg.Node.ChainID,
		Retention: backup.DefaultRetention,
		Wallet:    s.rpc,
		Now:       s.now,
	})
}

// Backup takes one wallet backup and applies retention
func (s *Services) Backup(ctx context.Context) (backup.Result, error) {
	return s.newArchiver().Run(ctx)
}

// Backups lists retained backups, newest first
func (s *Services) Backups() ([]backup.Record, error) {
	return s.newArchiver().List()
}

// UpsertLogin installs the console block in the operator's bashrc and
// removes stale copies from other profiles.
func (s *Services) UpsertLogin() (bool, error) {
	content := bashrc.LoginBlock(s.cfg.Login.ConsoleName, s.cfg.Monitor.ConsoleCommand)
	changed, err := bashrc.Upsert(s.cfg.Login.BashrcPath, bashrc.CurrentMarkers, bashrc.LegacyMarkers, content)
	if err != nil {
		return false, err
	}
	for _, stale := range s.cfg.Login.StalePaths {
		if stale == s.cfg.Login.BashrcPath {
			continue
		}
		if _, err := bashrc.Remove(stale, bashrc.CurrentMarkers, bashrc.LegacyMarkers); err != nil {
			s.logger.Warnf("Failed to clean login block from %s: %v", stale, err)
		}
	}
	return changed, nil
}

// RemoveLogin deletes the console block from every configured profile
func (s *Services) RemoveLogin() (bool, error) {
	paths := append([]string{s.cfg.Login.BashrcPath}, s.cfg.Login.StalePaths...)
	changed := false
	for _, p := range paths {
		c, err := bashrc.Remove(p, bashrc.CurrentMarkers, bashrc.LegacyMarkers)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	return changed, nil
}
