// Package config loads the settings shared by lvctl and lvhelperd from a YAML
// file, LVA_* environment variables and command-line flags, in increasing priority.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ni/labview-automation/pkg/lib"
	"github.com/ni/labview-automation/pkg/lib/logging"
)

// EnvPrefix is prepended to every environment override, e.g. LVA_SERVER_PORT.
const EnvPrefix = "LVA"

// Config is the complete configuration.
type Config struct {
	// Host is the machine LabVIEW runs on.
	Host    string        `mapstructure:"host"`
	LabVIEW LabVIEWConfig `mapstructure:"labview"`
	Server  ServerConfig  `mapstructure:"server"`
	Start   StartConfig   `mapstructure:"start"`
	Helper  HelperConfig  `mapstructure:"helper"`
	Daemon  DaemonConfig  `mapstructure:"daemon"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LabVIEWConfig selects the installation.
type LabVIEWConfig struct {
	// Version is matched against installation paths; empty uses the active installation.
	Version string `mapstructure:"version"`
	// Bitness is "x86", "x64" or empty.
	Bitness string `mapstructure:"bitness"`
}

// ServerConfig mirrors lib.ServerConfiguration.
type ServerConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Port              int    `mapstructure:"port"`
	LogPath           string `mapstructure:"log_path"`
	ErrorLogPath      string `mapstructure:"error_log_path"`
	TCPTimeoutSeconds int    `mapstructure:"tcp_timeout_seconds"`
}

// StartConfig controls launching and stopping LabVIEW.
type StartConfig struct {
	Wait         bool          `mapstructure:"wait"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	KillTimeout  time.Duration `mapstructure:"kill_timeout"`
}

// HelperConfig points lvctl at a remote lvhelperd. Empty Address means local helpers.
type HelperConfig struct {
	Address string `mapstructure:"address"`
}

// DaemonConfig is read by lvhelperd only.
type DaemonConfig struct {
	Address        string `mapstructure:"address"`
	MetricsAddress string `mapstructure:"metrics_address"`
	TempDir        string `mapstructure:"temp_dir"`
	ListenerVI     string `mapstructure:"listener_vi"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	server := lib.DefaultServerConfiguration()
	return &Config{
		Host: "localhost",
		Server: ServerConfig{
			Enabled:           server.Enabled,
			Port:              int(server.Port),
			TCPTimeoutSeconds: int(server.TCPTimeoutSeconds),
		},
		Start: StartConfig{
			Wait:         true,
			Timeout:      15 * time.Minute,
			PollInterval: 250 * time.Millisecond,
			KillTimeout:  30 * time.Second,
		},
		Daemon: DaemonConfig{
			Address: "0.0.0.0:8443",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// SetDefaults registers every default with v so that env vars and flags can override them.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("host", d.Host)

	v.SetDefault("labview.version", d.LabVIEW.Version)
	v.SetDefault("labview.bitness", d.LabVIEW.Bitness)

	v.SetDefault("server.enabled", d.Server.Enabled)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.log_path", d.Server.LogPath)
	v.SetDefault("server.error_log_path", d.Server.ErrorLogPath)
	v.SetDefault("server.tcp_timeout_seconds", d.Server.TCPTimeoutSeconds)

	v.SetDefault("start.wait", d.Start.Wait)
	v.SetDefault("start.timeout", d.Start.Timeout)
	v.SetDefault("start.poll_interval", d.Start.PollInterval)
	v.SetDefault("start.kill_timeout", d.Start.KillTimeout)

	v.SetDefault("helper.address", d.Helper.Address)

	v.SetDefault("daemon.address", d.Daemon.Address)
	v.SetDefault("daemon.metrics_address", d.Daemon.MetricsAddress)
	v.SetDefault("daemon.temp_dir", d.Daemon.TempDir)
	v.SetDefault("daemon.listener_vi", d.Daemon.ListenerVI)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
}

// New returns a viper instance with defaults and LVA_* overrides. When path is
// non-empty the file must exist; otherwise the default config file is read if present.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(os.ExpandEnv(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return v, nil
	}

	if _, err := os.Stat(File()); err == nil {
		v.SetConfigFile(File())
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", File(), err)
		}
	}
	return v, nil
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// Dir returns the directory holding the config file.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "labview-automation")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".labview-automation"
	}
	return filepath.Join(home, ".config", "labview-automation")
}

// File returns the default config file path.
func File() string {
	return filepath.Join(Dir(), "config.yaml")
}

// ServerConfiguration converts the validated server section.
func (c *Config) ServerConfiguration() lib.ServerConfiguration {
	return lib.ServerConfiguration{
		Enabled:           c.Server.Enabled,
		Port:              uint16(c.Server.Port),
		LogPath:           c.Server.LogPath,
		ErrorLogPath:      c.Server.ErrorLogPath,
		TCPTimeoutSeconds: uint32(c.Server.TCPTimeoutSeconds),
	}
}

func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.Logging.Level, Format: c.Logging.Format, File: c.Logging.File}
}
