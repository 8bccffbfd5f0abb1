package backup

import (
	"context"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/systemd"
	"github.com/CloudNativeWorks/lynx-node/pkg/template"
)

// InstallSchedule defines the backup service and arms its six-hourly timer
func InstallSchedule(ctx context.Context, units systemd.Manager, execStart string) error {
	if _, err := units.Define(ctx, systemd.Unit{
		Name:    template.BackupUnit,
		Options: template.TaskService("Lynx wallet backup", execStart),
	}); err != nil {
		return err
	}
	if _, err := units.Define(ctx, systemd.Unit{
		Name:    template.BackupTimer,
		Options: template.BackupTimerOptions(),
	}); err != nil {
		return err
	}
	if err := units.Enable(ctx, template.BackupTimer); err != nil {
		return err
	}
	return units.Start(ctx, template.BackupTimer)
}
