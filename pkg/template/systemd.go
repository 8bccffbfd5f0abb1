package template

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/unit"
)

const (
	DaemonUnit      = "lynxd.service"
	SyncMonitorUnit = "lynx-sync-monitor.service"
	SyncWaitUnit    = "lynx-sync-wait.service"
	BackupUnit      = "lynx-backup.service"
	ConsoleUnit     = "lynx-console.service"

	SyncMonitorTimer = "lynx-sync-monitor.timer"
	SyncWaitTimer    = "lynx-sync-wait.timer"
	BackupTimer      = "lynx-backup.timer"
)

// DaemonParams describes how lynxd is launched
type DaemonParams struct {
	DaemonPath string
	WorkingDir string
	ConfPath   string
	User       string
}

// DaemonService is the long-running lynxd unit
func DaemonService(p DaemonParams) []*unit.UnitOption {
	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "Lynx cryptocurrency daemon"),
		unit.NewUnitOption("Unit", "Wants", "network-online.target"),
		unit.NewUnitOption("Unit", "After", "network-online.target"),

		unit.NewUnitOption("Service", "Type", "forking"),
		unit.NewUnitOption("Service", "User", p.User),
		unit.NewUnitOption("Service", "WorkingDirectory", p.WorkingDir),
		unit.NewUnitOption("Service", "ExecStart",
			fmt.Sprintf("%s -daemon -datadir=%s -conf=%s", p.DaemonPath, p.WorkingDir, p.ConfPath)),
		unit.NewUnitOption("Service", "TimeoutStopSec", "300"),
		unit.NewUnitOption("Service", "LimitNOFILE", "65536"),
		unit.NewUnitOption("Service", "Restart", "on-failure"),
		unit.NewUnitOption("Service", "RestartSec", "30"),
		unit.NewUnitOption("Service", "SyslogIdentifier", "lynxd"),

		unit.NewUnitOption("Install", "WantedBy", "multi-user.target"),
	}
}

// TaskService runs one lynx-node subcommand to completion
func TaskService(description, execStart string) []*unit.UnitOption {
	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", description),
		unit.NewUnitOption("Unit", "After", "network-online.target "+DaemonUnit),

		unit.NewUnitOption("Service", "Type", "oneshot"),
		unit.NewUnitOption("Service", "ExecStart", execStart),
		unit.NewUnitOption("Service", "SyslogIdentifier", "lynx-node"),
	}
}

// SyncTimer fires the sync monitor shortly after boot and then periodically
func SyncTimer(description string) []*unit.UnitOption {
	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", description),

		unit.NewUnitOption("Timer", "OnBootSec", "2min"),
		unit.NewUnitOption("Timer", "OnUnitActiveSec", "12min"),

		unit.NewUnitOption("Install", "WantedBy", "timers.target"),
	}
}

// BackupTimerOptions schedules a wallet backup every six hours
func BackupTimerOptions() []*unit.UnitOption {
	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "Lynx wallet backup schedule"),

		unit.NewUnitOption("Timer", "OnCalendar", "*-*-* 00/6:00:00"),
		unit.NewUnitOption("Timer", "Persistent", "true"),

		unit.NewUnitOption("Install", "WantedBy", "timers.target"),
	}
}

// ConsoleService launches the node console in a detached tmux session
func ConsoleService(consoleCommand, user string) []*unit.UnitOption {
	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "Lynx node console"),
		unit.NewUnitOption("Unit", "After", DaemonUnit),

		unit.NewUnitOption("Service", "Type", "forking"),
		unit.NewUnitOption("Service", "User", user),
		unit.NewUnitOption("Service", "ExecStart",
			fmt.Sprintf("/usr/bin/tmux new-session -d -s lynx-console %s", consoleCommand)),
		unit.NewUnitOption("Service", "ExecStop", "/usr/bin/tmux kill-session -t lynx-console"),
		unit.NewUnitOption("Service", "RemainAfterExit", "yes"),

		unit.NewUnitOption("Install", "WantedBy", "multi-user.target"),
	}
}
