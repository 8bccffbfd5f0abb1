package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/backup"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/installer"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/monitor"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/systemd"
	"github.com/CloudNativeWorks/lynx-node/internal/platform"
	"github.com/CloudNativeWorks/lynx-node/pkg/template"
)

// InstallReport summarises an install run
type InstallReport struct {
	Platform          string   `json:"platform" yaml:"platform"`
	Binaries          []string `json:"binaries,omitempty" yaml:"binaries,omitempty"`
	BinariesInstalled bool     `json:"binaries_installed" yaml:"binaries_installed"`
	Release           string   `json:"release,omitempty" yaml:"release,omitempty"`
	Packages          []string `json:"packages_installed,omitempty" yaml:"packages_installed,omitempty"`
	DaemonDefined     bool     `json:"daemon_defined" yaml:"daemon_defined"`
	MonitorMode       string   `json:"monitor_mode" yaml:"monitor_mode"`
	LoginUpdated      bool     `json:"login_updated" yaml:"login_updated"`
	Warnings          []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func (r *InstallReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Install brings the host to the desired state: packages, binaries, the
// daemon unit, the monitor and backup schedules and the login block.
// Re-running it on an installed host changes nothing.
func (s *Services) Install(ctx context.Context) (*InstallReport, error) {
	profile := s.probe()
	report := &InstallReport{Platform: profile.String(), MonitorMode: s.cfg.Monitor.Mode}
	if s.systemdUp != nil && !s.systemdUp() {
		return report, systemd.ErrUnavailable
	}
	if profile.Known() {
		s.logger.Infof("Detected platform %s", profile)
	} else {
		s.logger.Warnf("Platform only partly recognised (%s), prerequisites and release assets may be missing", profile)
	}

	s.ensurePackages(ctx, profile, report)

	inst, err := s.newInstaller()
	if err != nil {
		return report, err
	}
	artifact, err := inst.EnsureInstalled(ctx, profile)
	switch {
	case errors.Is(err, installer.ErrArtifactNotFound):
		s.logger.Warnf("No release asset for %s, continuing without binaries: %v", profile, err)
		report.warn("no release asset for %s", profile)
	case err != nil:
		return report, fmt.Errorf("binary installation failed: %w", err)
	default:
		report.Binaries = artifact.BinaryPaths
		report.BinariesInstalled = artifact.Installed
		if artifact.Asset != nil {
			report.Release = artifact.Asset.Release
		}
	}

	defined, err := s.ensureDaemon(ctx, inst.Present())
	if err != nil {
		return report, err
	}
	report.DaemonDefined = defined

	mode, err := monitor.ParseMode(s.cfg.Monitor.Mode)
	if err != nil {
		return report, err
	}
	if err := s.newMonitor(mode).Install(ctx, s.execStart(modeCommand(mode))); err != nil {
		return report, fmt.Errorf("failed to install sync monitor: %w", err)
	}

	if err := backup.InstallSchedule(ctx, s.units, s.execStart("backup")); err != nil {
		return report, fmt.Errorf("failed to install backup schedule: %w", err)
	}

	changed, err := s.UpsertLogin()
	if err != nil {
		s.logger.Warnf("Login integration failed: %v", err)
		report.warn("login integration failed: %v", err)
	}
	report.LoginUpdated = changed

	return report, nil
}

func (s *Services) ensurePackages(ctx context.Context, profile platform.Profile, report *InstallReport) {
	installed, err := installer.EnsurePackages(ctx, s.runner, profile.OSFamily, s.cfg.Install.Packages)
	switch {
	case errors.Is(err, installer.ErrUnsupportedFamily):
		s.logger.Warnf("Unknown OS family, skipping package prerequisites")
		report.warn("package prerequisites skipped on unknown OS family")
	case err != nil:
		s.logger.Warnf("Package prerequisites failed: %v", err)
		report.warn("package prerequisites failed: %v", err)
	default:
		report.Packages = installed
	}
}

// ensureDaemon defines and enables lynxd.service once and starts it
// whenever the binaries are in place. Start is a no-op on a running unit.
func (s *Services) ensureDaemon(ctx context.Context, binariesPresent bool) (bool, error) {
	defined, err := s.units.IsDefined(ctx, template.DaemonUnit)
	if err != nil {
		return false, err
	}

	created := false
	if defined {
		s.logger.Debugf("%s already defined", template.DaemonUnit)
	} else {
		if _, err := s.units.Define(ctx, systemd.Unit{
			Name: template.DaemonUnit,
			Options: template.DaemonService(template.DaemonParams{
				DaemonPath: s.cfg.Node.DaemonPath,
				WorkingDir: s.cfg.Node.WorkingDir,
				ConfPath:   s.cfg.Node.ConfPath,
				User:       s.cfg.Node.ServiceUser,
			}),
		}); err != nil {
			return false, fmt.Errorf("failed to define daemon: %w", err)
		}
		created = true
		if err := s.units.Enable(ctx, template.DaemonUnit); err != nil {
			return created, fmt.Errorf("failed to enable daemon: %w", err)
		}
	}

	if !binariesPresent {
		s.logger.Warnf("%s defined but not started, binaries missing", template.DaemonUnit)
		return created, nil
	}
	if err := s.units.Start(ctx, template.DaemonUnit); err != nil {
		return created, fmt.Errorf("failed to start daemon: %w", err)
	}
	return created, nil
}

func modeCommand(mode monitor.Mode) string {
	if mode == monitor.ModeWait {
		return "sync-wait"
	}
	return "sync-monitor"
}
