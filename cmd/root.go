package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/CloudNativeWorks/lynx-node/internal/config"
	"github.com/CloudNativeWorks/lynx-node/internal/services"
	"github.com/CloudNativeWorks/lynx-node/pkg/tools"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	output  string
	Cfg     *config.Config
	Version string
)

var RootCmd = &cobra.Command{
	Use:   "lynx-node",
	Short: "lynx-node - installs, monitors and backs up a Lynx node",
	Long: `lynx-node provisions a Lynx daemon on Debian or RedHat hosts and runs the
periodic tasks that keep it healthy: the sync monitor and wallet backups.`,
	SilenceUsage: true,
}

func Execute(version string) error {
	Version = version
	return RootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: /etc/lynx-node/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&output, "output", "o", tools.FormatYAML, "output format: yaml or json")
}

func initConfig() {
	var err error

	Cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Printf("Fatal: Configuration could not be loaded: %v\n", err)
		os.Exit(1)
	}

	if err := config.InitLogger(Cfg.Logging, "root"); err != nil {
		fmt.Printf("Fatal: Logger could not be initialized: %v\n", err)
		os.Exit(1)
	}
}

// newServices builds the service layer. Task units installed from it call
// back into this binary with the same config file.
func newServices() (*services.Services, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate lynx-node binary: %w", err)
	}
	configPath := ""
	if cfgFile != "" {
		if configPath, err = filepath.Abs(cfgFile); err != nil {
			return nil, err
		}
	}
	return services.NewServices(Cfg, services.WithExecutable(exe, configPath))
}

// commandContext is cancelled on SIGINT or SIGTERM
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printResult(data any) error {
	return tools.Print(os.Stdout, output, data)
}
