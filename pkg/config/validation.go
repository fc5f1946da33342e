package config

import "fmt"

// Validate checks a fully-defaulted Config for values that would leave
// the store unable to start. It does not duplicate ApplyDefaults'
// work; call ApplyDefaults first.
func Validate(cfg *Config) error {
	switch cfg.Logging.Level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("logging.level must be one of DEBUG, INFO, WARN, ERROR, got %q", cfg.Logging.Level)
	}

	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry.enabled is true")
	}
	if cfg.Telemetry.SampleRate < 0 || cfg.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %v", cfg.Telemetry.SampleRate)
	}

	if cfg.Metrics.Enabled && (cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be a valid port when metrics.enabled is true, got %d", cfg.Metrics.Port)
	}

	if len(cfg.Destinations) == 0 {
		return fmt.Errorf("at least one destination is required (destinations)")
	}
	seen := make(map[string]bool, len(cfg.Destinations))
	for _, d := range cfg.Destinations {
		if d.ID == "" {
			return fmt.Errorf("destination with empty id (root_path %q)", d.RootPath)
		}
		if d.RootPath == "" {
			return fmt.Errorf("destination %q: root_path is required", d.ID)
		}
		if seen[d.ID] {
			return fmt.Errorf("duplicate destination id %q", d.ID)
		}
		seen[d.ID] = true
	}

	if cfg.Writer.RotationThreshold <= 0 {
		return fmt.Errorf("writer.rotation_threshold must be positive")
	}
	if cfg.GC.Interval <= 0 {
		return fmt.Errorf("gc.interval must be positive")
	}
	if cfg.GC.UnmodifiedWindow <= 0 {
		return fmt.Errorf("gc.unmodified_window must be positive")
	}

	return nil
}
