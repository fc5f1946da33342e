package config

import (
	"strings"
	"time"

	"github.com/azstorecore/core/internal/bytesize"
)

const (
	defaultRotationThreshold = 64 * bytesize.MiB
	defaultIdleTimeout       = 5 * time.Minute
	defaultAutosaveInterval  = 5 * time.Second
	defaultGCInterval        = 10 * time.Minute
	defaultGCUnmodifiedWindow = time.Hour
	defaultShutdownTimeout   = 30 * time.Second
)

// ApplyDefaults fills in any unspecified fields with built-in defaults.
// Zero values are replaced; explicit values (including explicit zero
// for a bool) are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyCatalogDefaults(&cfg.Catalog)
	applyWriterDefaults(&cfg.Writer)
	applyGCDefaults(&cfg.GC)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	// No default for Destinations: at least one must be configured
	// explicitly, and Validate rejects an empty list.
}

func applyLoggingDefaults(cfg *Logging) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *Server) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 10000
	}
}

func applyTelemetryDefaults(cfg *Telemetry) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyMetricsDefaults(cfg *Metrics) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyCatalogDefaults(cfg *Catalog) {
	if cfg.AutosaveInterval == 0 {
		cfg.AutosaveInterval = defaultAutosaveInterval
	}
}

func applyWriterDefaults(cfg *Writer) {
	if cfg.RotationThreshold == 0 {
		cfg.RotationThreshold = defaultRotationThreshold
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
}

func applyGCDefaults(cfg *GC) {
	if cfg.Interval == 0 {
		cfg.Interval = defaultGCInterval
	}
	if cfg.UnmodifiedWindow == 0 {
		cfg.UnmodifiedWindow = defaultGCUnmodifiedWindow
	}
}

// GetDefaultConfig returns a fully-defaulted configuration with a
// single local destination, suitable for `azstorecore init` to write
// out and for Load to fall back to when no config file exists.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Destinations: []Destination{
			{ID: "default", RootPath: "./data/extents", MaxConcurrency: 4},
		},
		Catalog: Catalog{Path: "./data/catalog"},
	}
	ApplyDefaults(cfg)
	return cfg
}
