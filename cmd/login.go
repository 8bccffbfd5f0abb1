package cmd

import (
	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
	"github.com/spf13/cobra"
)

var removeLogin bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Install or remove the console block in the operator's bashrc",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.NewLogger("login")
		svc, err := newServices()
		if err != nil {
			return err
		}

		if removeLogin {
			changed, err := svc.RemoveLogin()
			if err != nil {
				return err
			}
			log.Infof("Login block removed: %t", changed)
			return nil
		}

		changed, err := svc.UpsertLogin()
		if err != nil {
			return err
		}
		log.Infof("Login block updated: %t", changed)
		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVar(&removeLogin, "remove", false, "remove the block instead of installing it")
	RootCmd.AddCommand(loginCmd)
}
