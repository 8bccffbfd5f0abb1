package services

import (
	"fmt"
	"os"
	"time"

	"github.com/CloudNativeWorks/lynx-node/internal/cmdrunner"
	"github.com/CloudNativeWorks/lynx-node/internal/config"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/installer"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/release"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/rpc"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/store"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/systemd"
	"github.com/CloudNativeWorks/lynx-node/internal/platform"
	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
)

// Services wires the node operations to the loaded configuration. Every
// method is one short-lived task.
type Services struct {
	cfg        *config.Config
	logger     *logger.Logger
	runner     cmdrunner.CommandRunner
	units      systemd.Manager
	// systemdUp guards host changes when units go through D-Bus
	systemdUp  func() bool
	finder     installer.AssetFinder
	rpc        *rpc.Client
	store      *store.Store
	probe      func() platform.Profile
	now        func() time.Time
	executable string
	configPath string
}

type Option func(*Services)

func WithUnits(m systemd.Manager) Option {
	return func(s *Services) { s.units = m }
}

func WithRunner(r cmdrunner.CommandRunner) Option {
	return func(s *Services) { s.runner = r }
}

func WithAssetFinder(f installer.AssetFinder) Option {
	return func(s *Services) { s.finder = f }
}

func WithProfile(p platform.Profile) Option {
	return func(s *Services) { s.probe = func() platform.Profile { return p } }
}

func WithClock(now func() time.Time) Option {
	return func(s *Services) { s.now = now }
}

// WithExecutable sets the lynx-node path and config file used in the
// ExecStart lines of the task units.
func WithExecutable(path, configPath string) Option {
	return func(s *Services) {
		s.executable = path
		s.configPath = configPath
	}
}

func NewServices(cfg *config.Config, opts ...Option) (*Services, error) {
	s := &Services{
		cfg:    cfg,
		logger: logger.NewLogger("services"),
		probe:  platform.Probe,
		now:    time.Now,
		store:  store.New(cfg.Monitor.StateDir),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.runner == nil {
		s.runner = cmdrunner.NewCommandsRunner()
	}
	if s.units == nil {
		s.units = systemd.NewDBusManager(systemd.EtcSystemdDir, nil)
		s.systemdUp = systemd.Available
	}
	if s.finder == nil {
		timeout, err := parseDuration(cfg.Install.MetadataTimeout, release.DefaultMetadataTimeout)
		if err != nil {
			return nil, fmt.Errorf("install.metadata_timeout: %w", err)
		}
		s.finder = release.NewClient(cfg.Install.APIBaseURL, cfg.Install.Repository, timeout)
	}
	if s.executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate lynx-node binary: %w", err)
		}
		s.executable = exe
	}

	rpcTimeout, err := parseDuration(cfg.Node.RPCTimeout, rpc.DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("node.rpc_timeout: %w", err)
	}
	s.rpc, err = rpc.NewClient(rpc.Options{
		CLIPath:  cfg.Node.CLIPath,
		ConfPath: cfg.Node.ConfPath,
		DataDir:  cfg.Node.WorkingDir,
		Host:     cfg.Node.RPCHost,
		Port:     cfg.Node.RPCPort,
		User:     cfg.Node.RPCUser,
		Password: cfg.Node.RPCPassword,
		Timeout:  rpcTimeout,
		Runner:   s.runner,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}

func (s *Services) newInstaller() (*installer.Installer, error) {
	timeout, err := parseDuration(s.cfg.Install.DownloadTimeout, installer.DefaultDownloadTimeout)
	if err != nil {
		return nil, fmt.Errorf("install.download_timeout: %w", err)
	}
	return installer.New(installer.Options{
		BinDir:          s.cfg.Install.BinDir,
		Binaries:        s.cfg.Install.Binaries,
		Extension:       s.cfg.Install.Extension,
		ReleaseScan:     s.cfg.Install.ReleaseScan,
		DownloadTimeout: timeout,
		Finder:          s.finder,
	}), nil
}

// execStart builds the command line a task unit runs
func (s *Services) execStart(subcommand string) string {
	if s.configPath != "" {
		return fmt.Sprintf("%s --config %s %s", s.executable, s.configPath, subcommand)
	}
	return fmt.Sprintf("%s %s", s.executable, subcommand)
}
