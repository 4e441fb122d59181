package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete photogram configuration
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Input   InputConfig   `mapstructure:"input"`
	Export  ExportConfig  `mapstructure:"export"`
	Logging LoggingConfig `mapstructure:"logging"`
	Console ConsoleConfig `mapstructure:"console"`
}

// EngineConfig selects and configures the reconstruction engine
type EngineConfig struct {
	// Name is the engine implementation: "process" or "replay" (default: "process")
	Name string `mapstructure:"name"`
	// Command is the engine executable used by the process engine
	Command string `mapstructure:"command"`
	// Args are passed to Command before the subcommand
	Args []string `mapstructure:"args"`
	// UsePTY attaches the engine's output to a pseudo-terminal so engines
	// that only flush line-by-line on a terminal stream events promptly
	UsePTY bool `mapstructure:"use_pty"`
	// ProbeTimeoutSeconds bounds the capability probe (default: 10)
	ProbeTimeoutSeconds int `mapstructure:"probe_timeout_seconds"`
	// StartTimeoutSeconds bounds the wait for the engine's ready handshake (default: 30)
	StartTimeoutSeconds int `mapstructure:"start_timeout_seconds"`
	// GracePeriodSeconds is how long a closed session may take to exit before it is killed (default: 5)
	GracePeriodSeconds int `mapstructure:"grace_period_seconds"`
	// Script is the YAML event script played by the replay engine
	Script string `mapstructure:"script"`
}

// InputConfig controls how the input folder is inspected
type InputConfig struct {
	// Pattern is a glob matched against lower-cased file names to count images
	Pattern string `mapstructure:"pattern"`
}

// ExportConfig controls the post-processing export that runs after a
// successful reconstruction
type ExportConfig struct {
	// Enabled controls whether the export runs at all (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Converter is "builtin" (mesh library) or "engine" (delegate to the engine)
	Converter string `mapstructure:"converter"`
	// Format is the extension of the derived export path (default: "ply")
	Format string `mapstructure:"format"`
	// Path overrides the derived export path
	Path string `mapstructure:"path"`
	// WaitTimeoutSeconds is how long to wait for the model file to appear (default: 10)
	WaitTimeoutSeconds int `mapstructure:"wait_timeout_seconds"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is "auto", "debug", "info", "warn" or "error" (default: "auto").
	// auto logs at warn when the console is drawing and logs go to stderr,
	// and at info otherwise.
	Level string `mapstructure:"level"`
	// Dir receives photogram.log; empty logs to stderr
	Dir string `mapstructure:"dir"`
	// Format is "text" or "json" for stderr output (default: "text")
	Format string `mapstructure:"format"`
	// MaxSizeMB is the size at which the log file rotates (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// ConsoleConfig controls the human-readable progress output on stdout
type ConsoleConfig struct {
	// Mode is "auto" (only on a terminal), "always" or "never" (default: "auto")
	Mode string `mapstructure:"mode"`
	// ProgressBar draws a bar instead of percentage lines on a terminal (default: true)
	ProgressBar bool `mapstructure:"progress_bar"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Name:                "process",
			Command:             "photogrammetry-engine",
			Args:                []string{},
			UsePTY:              false,
			ProbeTimeoutSeconds: 10,
			StartTimeoutSeconds: 30,
			GracePeriodSeconds:  5,
			Script:              "",
		},
		Input: InputConfig{
			Pattern: "*.{jpg,jpeg,png,heic,heif,tif,tiff,dng}",
		},
		Export: ExportConfig{
			Enabled:            true,
			Converter:          "builtin",
			Format:             "ply",
			Path:               "", // Empty means derive from the output path
			WaitTimeoutSeconds: 10,
		},
		Logging: LoggingConfig{
			Level:      LogLevelAuto,
			Dir:        "",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Console: ConsoleConfig{
			Mode:        "auto",
			ProgressBar: true,
		},
	}
}

// ProbeTimeout returns the probe timeout as a time.Duration
func (c *EngineConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// StartTimeout returns the handshake timeout as a time.Duration
func (c *EngineConfig) StartTimeout() time.Duration {
	return time.Duration(c.StartTimeoutSeconds) * time.Second
}

// GracePeriod returns the shutdown grace period as a time.Duration
func (c *EngineConfig) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodSeconds) * time.Second
}

// WaitTimeout returns the model wait timeout as a time.Duration (0 means don't wait)
func (c *ExportConfig) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSeconds) * time.Second
}

// ResolvePath returns the export destination for a model written to output.
// An explicit Path wins; otherwise the output's extension is replaced by Format.
func (c *ExportConfig) ResolvePath(output string) string {
	if c.Path != "" {
		return c.Path
	}
	ext := filepath.Ext(output)
	return output[:len(output)-len(ext)] + "." + c.Format
}

// RegisterDefaults registers default values with v
func RegisterDefaults(v *viper.Viper) {
	defaults := Default()

	// Engine defaults
	v.SetDefault("engine.name", defaults.Engine.Name)
	v.SetDefault("engine.command", defaults.Engine.Command)
	v.SetDefault("engine.args", defaults.Engine.Args)
	v.SetDefault("engine.use_pty", defaults.Engine.UsePTY)
	v.SetDefault("engine.probe_timeout_seconds", defaults.Engine.ProbeTimeoutSeconds)
	v.SetDefault("engine.start_timeout_seconds", defaults.Engine.StartTimeoutSeconds)
	v.SetDefault("engine.grace_period_seconds", defaults.Engine.GracePeriodSeconds)
	v.SetDefault("engine.script", defaults.Engine.Script)

	// Input defaults
	v.SetDefault("input.pattern", defaults.Input.Pattern)

	// Export defaults
	v.SetDefault("export.enabled", defaults.Export.Enabled)
	v.SetDefault("export.converter", defaults.Export.Converter)
	v.SetDefault("export.format", defaults.Export.Format)
	v.SetDefault("export.path", defaults.Export.Path)
	v.SetDefault("export.wait_timeout_seconds", defaults.Export.WaitTimeoutSeconds)

	// Logging defaults
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.dir", defaults.Logging.Dir)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Console defaults
	v.SetDefault("console.mode", defaults.Console.Mode)
	v.SetDefault("console.progress_bar", defaults.Console.ProgressBar)
}

// LoadFrom reads the configuration from v and validates it
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "photogram")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".photogram"
	}
	return filepath.Join(home, ".config", "photogram")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
