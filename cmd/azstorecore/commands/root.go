// Package commands implements the azstorecore CLI: serve, init, status,
// and version, built around a cobra root command with a persistent
// --config flag and Execute/GetRootCmd test seams.
package commands

import "github.com/spf13/cobra"

var (
	// Version information, injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "azstorecore",
	Short: "Persistence core for a local Azure Storage emulator",
	Long: `azstorecore runs the extent store and metadata catalog that back a
local Azure Storage emulator: append-only extent files on disk, a BadgerDB
catalog tracking them, a garbage collector reconciling the two, and a
per-account service properties store.

Use "azstorecore [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command, for tests.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/azstorecore/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
}

// GetConfigFile returns the --config flag value.
func GetConfigFile() string {
	return cfgFile
}
