package cmd

import (
	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the node wallet",
	Long: `Write a timestamped wallet backup into the backup directory. A backup
identical to the previous one is discarded. Backups older than the retention
period are removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewLogger("backup")
		svc, err := newServices()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		res, err := svc.Backup(ctx)
		if err != nil {
			return err
		}
		if res.Duplicate {
			log.Info("Wallet unchanged, no new backup kept")
		}
		if len(res.Pruned) > 0 {
			log.Infof("Removed %d expired backups", len(res.Pruned))
		}
		return printResult(res)
	},
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List retained wallet backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices()
		if err != nil {
			return err
		}
		records, err := svc.Backups()
		if err != nil {
			return err
		}
		return printResult(records)
	},
}

func init() {
	RootCmd.AddCommand(backupCmd)
	RootCmd.AddCommand(backupsCmd)
}
