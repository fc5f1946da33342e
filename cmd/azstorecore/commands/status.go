package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/azstorecore/core/pkg/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the configured destinations and catalog path are reachable",
	Long: `Load the configuration and report whether each configured destination
directory and the catalog path are present.

This core has no running-process health endpoint of its own (no HTTP
surface); "status" is a static configuration check, not a liveness probe
against a running "serve" process.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	fmt.Println("azstorecore configuration status")
	fmt.Println("================================")
	fmt.Println()

	ok := true
	for _, d := range cfg.Destinations {
		if info, err := os.Stat(d.RootPath); err != nil || !info.IsDir() {
			fmt.Printf("  [missing] destination %q: %s\n", d.ID, d.RootPath)
			ok = false
		} else {
			fmt.Printf("  [ok]      destination %q: %s\n", d.ID, d.RootPath)
		}
	}

	if info, err := os.Stat(cfg.Catalog.Path); err != nil || !info.IsDir() {
		fmt.Printf("  [missing] catalog path: %s (created on first run)\n", cfg.Catalog.Path)
	} else {
		fmt.Printf("  [ok]      catalog path: %s\n", cfg.Catalog.Path)
	}

	fmt.Println()
	if ok {
		fmt.Println("All configured destinations are present.")
		return nil
	}

	return fmt.Errorf("one or more destinations are missing; create them or run with a different config")
}
