// Package config loads the persistence core's configuration from built-in
// defaults, a YAML file, and environment variables, in that order of
// increasing precedence, via viper with mapstructure decode hooks for
// byte sizes and durations, XDG config directory resolution, and an
// AZSTORECORE_ environment variable prefix.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/azstorecore/core/internal/bytesize"
)

// Config is the persistence core's full configuration.
//
// Configuration sources, in order of precedence (highest first):
//  1. Environment variables (AZSTORECORE_*)
//  2. Configuration file (YAML)
//  3. Built-in defaults
type Config struct {
	Logging Logging `mapstructure:"logging" yaml:"logging"`

	// Server carries a listen host/port. The core has no HTTP layer of
	// its own (out of scope); the field exists so the CLI's serve
	// command has somewhere to record the address it was asked to bind,
	// for a future listener to read.
	Server Server `mapstructure:"server" yaml:"server"`

	Telemetry Telemetry `mapstructure:"telemetry" yaml:"telemetry"`

	Metrics Metrics `mapstructure:"metrics" yaml:"metrics"`

	// ShutdownTimeout defaults to 30s, but the serve command does not
	// read it: shutdown waits for the autosave ticker
	// and GC scheduler to stop with no time bound.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Destinations lists the persistence destinations the writer pool
	// spreads appends across (spec §4.A). At least one is required.
	Destinations []Destination `mapstructure:"destinations" yaml:"destinations"`

	Catalog Catalog `mapstructure:"catalog" yaml:"catalog"`

	Writer Writer `mapstructure:"writer" yaml:"writer"`

	GC GC `mapstructure:"gc" yaml:"gc"`
}

// Server carries the host/port the CLI's serve command would bind a
// future HTTP listener to. Accepted but unused by the core itself.
type Server struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Destination configures one named persistence root.
type Destination struct {
	ID             string `mapstructure:"id" yaml:"id"`
	RootPath       string `mapstructure:"root_path" yaml:"root_path"`
	MaxConcurrency int    `mapstructure:"max_concurrency" yaml:"max_concurrency"`
}

// Catalog configures the Extent Metadata Catalog's BadgerDB handle,
// which the Service Properties Store also shares.
type Catalog struct {
	Path string `mapstructure:"path" yaml:"path"`

	// AutosaveInterval flushes the catalog to disk on a timer
	// independent of process shutdown. Default 5s.
	AutosaveInterval time.Duration `mapstructure:"autosave_interval" yaml:"autosave_interval"`
}

// Writer configures the Extent Writer Pool.
type Writer struct {
	// RotationThreshold closes an open extent once it exceeds this
	// size. Accepts human-readable sizes ("64Mi", "1Gi") as well as
	// plain byte counts.
	RotationThreshold bytesize.ByteSize `mapstructure:"rotation_threshold" yaml:"rotation_threshold"`

	// IdleTimeout evicts an open extent that has not been appended to
	// for this long. Zero uses the default (5m); a negative value
	// disables idle eviction.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// GC configures the Extent Garbage Collector and its scheduler.
type GC struct {
	// Interval is how often the collector sweeps. Default 10m.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`

	// UnmodifiedWindow protects recently-written extents from
	// collection even when unreferenced. Default 1h.
	UnmodifiedWindow time.Duration `mapstructure:"unmodified_window" yaml:"unmodified_window"`

	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// Logging controls log output behavior.
type Logging struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// Telemetry controls optional OpenTelemetry span export. The serve
// command passes it to internal/telemetry, which traces append, read,
// and GC sweep spans.
type Telemetry struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// Metrics controls the Prometheus metrics registry (pkg/metrics).
type Metrics struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

// Load reads configuration from file, environment, and defaults.
// configPath empty uses the default XDG location; if no file is found
// there, built-in defaults are returned unchanged.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning an error with setup
// instructions if no config file exists at the resolved path.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"initialize one first:\n"+
				"  azstorecore init\n\n"+
				"or specify a config file explicitly:\n"+
				"  azstorecore <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"create it first:\n"+
			"  azstorecore init --config %s", configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: load: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in YAML, creating parent directories as
// needed. The file is written 0600 since it may record destination
// paths outside the working directory.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("AZSTORECORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook lets config files express sizes like "64Mi" or
// "1Gi" instead of a raw byte count.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook lets config files express durations like "30s" or
// "1h" instead of raw nanosecond counts.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir resolves $XDG_CONFIG_HOME/azstorecore, falling back to
// ~/.config/azstorecore, and finally "." if no home directory can be
// determined.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "azstorecore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "azstorecore")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir exposes the resolved config directory for the init
// subcommand.
func GetConfigDir() string {
	return getConfigDir()
}
