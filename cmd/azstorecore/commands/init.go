package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/azstorecore/core/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample azstorecore configuration file at
$XDG_CONFIG_HOME/azstorecore/config.yaml, or at --config if given.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to set your destination paths")
	fmt.Println("  2. Start the server with: azstorecore serve")
	fmt.Printf("  3. Or specify a custom config: azstorecore serve --config %s\n", path)

	return nil
}
