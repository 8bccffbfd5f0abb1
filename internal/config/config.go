package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
	"github.com/spf13/viper"
)

const (
	DefaultConfigPath = "/etc/lynx-node"
	DefaultWorkingDir = "/var/lib/lynx"
	DefaultChainID    = "lynx"
	DefaultBinDir     = "/usr/local/bin"
	DefaultStateDir   = "/var/lib/lynx-node"
)

// Config holds all application configuration
type Config struct {
	Node    NodeConfig    `mapstructure:"node"`
	Install InstallConfig `mapstructure:"install"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Backup  BackupConfig  `mapstructure:"backup"`
	Login   LoginConfig   `mapstructure:"login"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// NodeConfig describes where the daemon lives and how to reach its RPC surface
type NodeConfig struct {
	WorkingDir  string `mapstructure:"working_dir"`
	ChainID     string `mapstructure:"chain_id"`
	CLIPath     string `mapstructure:"cli_path"`
	DaemonPath  string `mapstructure:"daemon_path"`
	ConfPath    string `mapstructure:"conf_path"`
	RPCHost     string `mapstructure:"rpc_host"`
	RPCPort     string `mapstructure:"rpc_port"`
	RPCUser     string `mapstructure:"rpc_user"`
	RPCPassword string `mapstructure:"rpc_password"`
	RPCTimeout  string `mapstructure:"rpc_timeout"`
	ServiceUser string `mapstructure:"service_user"`
}

// InstallConfig holds release discovery and installation settings
type InstallConfig struct {
	Repository      string   `mapstructure:"repository"`
	APIBaseURL      string   `mapstructure:"api_base_url"`
	BinDir          string   `mapstructure:"bin_dir"`
	Binaries        []string `mapstructure:"binaries"`
	Extension       string   `mapstructure:"extension"`
	ReleaseScan     int      `mapstructure:"release_scan"`
	MetadataTimeout string   `mapstructure:"metadata_timeout"`
	DownloadTimeout string   `mapstructure:"download_timeout"`
	Packages        []string `mapstructure:"packages"`
}

// MonitorConfig selects the sync monitor variant
type MonitorConfig struct {
	// Mode is "restart" (restart the daemon while syncing) or "wait"
	// (only launch the console once synced).
	Mode           string `mapstructure:"mode"`
	StateDir       string `mapstructure:"state_dir"`
	ConsoleCommand string `mapstructure:"console_command"`
}

// BackupConfig holds backup archiver settings
type BackupConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoginConfig controls the shell startup block
type LoginConfig struct {
	BashrcPath  string   `mapstructure:"bashrc_path"`
	StalePaths  []string `mapstructure:"stale_paths"`
	ConsoleName string   `mapstructure:"console_name"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// envBindings maps config keys to the environment variables the node
// scripts have always honoured.
var envBindings = map[string]string{
	"node.working_dir":  "LYNX_WORKING_DIR",
	"node.chain_id":     "LYNX_CHAIN_ID",
	"node.cli_path":     "LYNX_CLI",
	"node.conf_path":    "LYNX_CONF",
	"node.rpc_host":     "LYNX_RPC_HOST",
	"node.rpc_port":     "LYNX_RPC_PORT",
	"node.rpc_user":     "LYNX_RPC_USER",
	"node.rpc_password": "LYNX_RPC_PASSWORD",
	"backup.dir":        "LYNX_BACKUP_DIR",
	"monitor.mode":      "LYNX_MONITOR_MODE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("node.working_dir", DefaultWorkingDir)
	v.SetDefault("node.chain_id", DefaultChainID)
	v.SetDefault("node.cli_path", filepath.Join(DefaultBinDir, "lynx-cli"))
	v.SetDefault("node.daemon_path", filepath.Join(DefaultBinDir, "lynxd"))
	v.SetDefault("node.rpc_host", "127.0.0.1")
	v.SetDefault("node.rpc_timeout", "3s")
	v.SetDefault("node.service_user", "root")

	v.SetDefault("install.repository", "getlynx/Lynx")
	v.SetDefault("install.api_base_url", "https://api.github.com")
	v.SetDefault("install.bin_dir", DefaultBinDir)
	v.SetDefault("install.binaries", []string{"lynxd", "lynx-cli"})
	v.SetDefault("install.extension", ".zip")
	v.SetDefault("install.release_scan", 10)
	v.SetDefault("install.metadata_timeout", "30s")
	v.SetDefault("install.download_timeout", "5m")
	v.SetDefault("install.packages", []string{"ca-certificates", "tmux"})

	v.SetDefault("monitor.mode", "restart")
	v.SetDefault("monitor.state_dir", DefaultStateDir)
	v.SetDefault("monitor.console_command", filepath.Join(DefaultBinDir, "beacon"))

	v.SetDefault("login.bashrc_path", "/root/.bashrc")
	v.SetDefault("login.console_name", "beacon")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file_path", logger.DefaultLogPath)
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("logging.max_backups", 3)
}

// LoadConfig loads configuration from file, environment and defaults
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigPath)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LYNX_NODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	config.applyDerived()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyDerived fills values that depend on other settings
func (c *Config) applyDerived() {
	if c.Node.ConfPath == "" {
		c.Node.ConfPath = filepath.Join(c.Node.WorkingDir, "lynx.conf")
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = BackupDirFor(c.Node.ChainID)
	}
}

// Validate rejects settings the orchestrator cannot act on
func (c *Config) Validate() error {
	if c.Node.ChainID == "" {
		return fmt.Errorf("node.chain_id must not be empty")
	}
	if strings.ContainsAny(c.Node.ChainID, "/ ") {
		return fmt.Errorf("invalid chain id %q", c.Node.ChainID)
	}
	switch c.Monitor.Mode {
	case "restart", "wait":
	default:
		return fmt.Errorf("monitor.mode must be \"restart\" or \"wait\", got %q", c.Monitor.Mode)
	}
	if len(c.Install.Binaries) == 0 {
		return fmt.Errorf("install.binaries must list at least one binary")
	}
	return nil
}

// BackupDirFor returns the per-chain backup directory
func BackupDirFor(chainID string) string {
	return filepath.Join("/var/lib", chainID+"-backup")
}

// InitLogger initializes the logger with the provided configuration
func InitLogger(cfg LoggingConfig, module string) error {
	return logger.Init(logger.Config{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Module:     module,
		FilePath:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// Defaults only contain plain values, decoding cannot fail.
	_ = v.Unmarshal(&config)
	config.applyDerived()
	return &config
}
