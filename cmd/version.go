package cmd

import (
	"fmt"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/rpc"
	"github.com/spf13/cobra"
)

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the lynx-node version and, when installed, the daemon version.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Version: %s\n", Version)

		client, err := rpc.NewClient(rpc.Options{CLIPath: Cfg.Node.CLIPath, ConfPath: Cfg.Node.ConfPath})
		if err != nil {
			return
		}
		ctx, cancel := commandContext()
		defer cancel()
		if v, err := client.NodeVersion(ctx, Cfg.Node.DaemonPath); err == nil {
			fmt.Printf("Daemon: %s\n", v.Line)
		}
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
