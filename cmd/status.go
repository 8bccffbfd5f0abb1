package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show node, unit and backup status",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices()
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		st, err := svc.Status(ctx)
		if err != nil {
			return err
		}
		return printResult(st)
	},
}

func init() {
	RootCmd.AddCommand(statusCmd)
}
