package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitThenStatusReportsMissingDestination(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	cfgFile = configPath
	defer func() { cfgFile = "" }()

	require.NoError(t, runInit(initCmd, nil))

	// Second run without --force must refuse to overwrite.
	require.Error(t, runInit(initCmd, nil))

	err := runStatus(statusCmd, nil)
	require.Error(t, err, "default destination path does not exist yet")
}

func TestInitForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	cfgFile = configPath
	defer func() { cfgFile = "" }()

	require.NoError(t, runInit(initCmd, nil))

	initForce = true
	defer func() { initForce = false }()
	require.NoError(t, runInit(initCmd, nil))
}

func TestGetRootCmdHasExpectedSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range GetRootCmd().Commands() {
		names[c.Name()] = true
	}

	require.True(t, names["serve"])
	require.True(t, names["init"])
	require.True(t, names["status"])
	require.True(t, names["version"])
}
