package cmd

import (
	"fmt"

	"github.com/CloudNativeWorks/lynx-node/internal/services"
	"github.com/spf13/cobra"
)

var (
	logSource string
	logCount  int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent node logs",
	Long: `Show recent log records. Sources:
  journal  lynxd.service journal entries
  debug    raw lines from the daemon's debug.log
  tips     chain tip updates parsed from debug.log
  agent    lynx-node's own log file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch logSource {
		case services.LogSourceJournal, services.LogSourceDebug, services.LogSourceTips, services.LogSourceAgent:
		default:
			return fmt.Errorf("unknown log source %q", logSource)
		}

		svc, err := newServices()
		if err != nil {
			return err
		}
		res, err := svc.Logs(logSource, logCount)
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

func init() {
	logsCmd.Flags().StringVar(&logSource, "source", services.LogSourceJournal, "log source: journal, debug, tips or agent")
	logsCmd.Flags().IntVarP(&logCount, "count", "n", 50, "number of records to show")
	RootCmd.AddCommand(logsCmd)
}
