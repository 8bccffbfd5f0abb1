package cmd

import (
	"github.com/CloudNativeWorks/lynx-node/internal/operations/monitor"
	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
	"github.com/spf13/cobra"
)

var syncMonitorCmd = &cobra.Command{
	Use:   "sync-monitor",
	Short: "Run one sync monitor pass, restarting lynxd while it syncs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSyncMonitor(monitor.ModeRestart)
	},
}

var syncWaitCmd = &cobra.Command{
	Use:   "sync-wait",
	Short: "Run one sync wait pass, launching the console once synced",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSyncMonitor(monitor.ModeWait)
	},
}

func runSyncMonitor(mode monitor.Mode) error {
	log := logger.NewLogger("sync-" + string(mode))
	svc, err := newServices()
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	res, err := svc.SyncMonitor(ctx, mode)
	if err != nil {
		return err
	}
	log.WithFields(logger.Fields{
		"previous": res.Previous,
		"state":    res.State,
		"sync":     res.Sync.String(),
		"actions":  res.Actions,
	}).Info("Sync monitor pass finished")
	return nil
}

func init() {
	RootCmd.AddCommand(syncMonitorCmd)
	RootCmd.AddCommand(syncWaitCmd)
}
