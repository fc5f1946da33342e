package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/azstorecore/core/internal/bytesize"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	require.Equal(t, "INFO", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
	require.Equal(t, "stdout", cfg.Logging.Output)
	require.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, bytesize.ByteSize(64*bytesize.MiB), cfg.Writer.RotationThreshold)
	require.Equal(t, 5*time.Minute, cfg.Writer.IdleTimeout)
	require.Equal(t, 5*time.Second, cfg.Catalog.AutosaveInterval)
	require.Equal(t, 10*time.Minute, cfg.GC.Interval)
	require.Equal(t, time.Hour, cfg.GC.UnmodifiedWindow)
	require.Len(t, cfg.Destinations, 1)
	require.NoError(t, Validate(cfg))
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:      Logging{Level: "debug"},
		Writer:       Writer{RotationThreshold: 1024},
		GC:           GC{DryRun: true},
		Destinations: []Destination{{ID: "d0", RootPath: "/tmp/x"}},
	}
	ApplyDefaults(cfg)

	require.Equal(t, "DEBUG", cfg.Logging.Level, "level is normalized to uppercase, not replaced")
	require.Equal(t, bytesize.ByteSize(1024), cfg.Writer.RotationThreshold)
	require.True(t, cfg.GC.DryRun)
	require.Equal(t, 10*time.Minute, cfg.GC.Interval, "unset field still gets the default")
}

func TestValidateRejectsEmptyDestinations(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Destinations = nil
	require.Error(t, Validate(cfg))
}

func TestValidateRejectsDuplicateDestinationIDs(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Destinations = []Destination{
		{ID: "a", RootPath: "/tmp/a"},
		{ID: "a", RootPath: "/tmp/b"},
	}
	require.Error(t, Validate(cfg))
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "VERBOSE"
	require.Error(t, Validate(cfg))
}

func TestLoadFallsBackToDefaultsWhenNoFileExists(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoadReadsYAMLFileAndAppliesDecodeHooks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
destinations:
  - id: primary
    root_path: ` + filepath.Join(dir, "extents") + `
    max_concurrency: 3
catalog:
  path: ` + filepath.Join(dir, "catalog") + `
writer:
  rotation_threshold: 128Mi
  idle_timeout: 2m
gc:
  interval: 30m
  unmodified_window: 90m
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, bytesize.ByteSize(128*bytesize.MiB), cfg.Writer.RotationThreshold)
	require.Equal(t, 2*time.Minute, cfg.Writer.IdleTimeout)
	require.Equal(t, 30*time.Minute, cfg.GC.Interval)
	require.Equal(t, 90*time.Minute, cfg.GC.UnmodifiedWindow)
	require.Equal(t, "primary", cfg.Destinations[0].ID)
}

func TestSaveConfigThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Destinations[0].RootPath = filepath.Join(dir, "extents")
	cfg.Catalog.Path = filepath.Join(dir, "catalog")

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Destinations[0].RootPath, loaded.Destinations[0].RootPath)
	require.Equal(t, cfg.Writer.RotationThreshold, loaded.Writer.RotationThreshold)
}
