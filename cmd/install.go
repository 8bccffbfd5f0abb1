package cmd

import (
	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install or repair the node on this host",
	Long: `Install the node binaries, the lynxd service, the sync monitor and backup
timers and the console login block. Running it again on an installed host
changes nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewLogger("install")
		svc, err := newServices()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		report, err := svc.Install(ctx)
		if err != nil {
			return err
		}
		for _, w := range report.Warnings {
			log.Warnf("%s", w)
		}
		log.Infof("Install finished on %s", report.Platform)
		return printResult(report)
	},
}

func init() {
	RootCmd.AddCommand(installCmd)
}
