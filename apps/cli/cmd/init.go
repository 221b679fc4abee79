package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/shopspec/packages/core/config"
	"github.com/abdul-hamid-achik/shopspec/packages/suites"
	"github.com/spf13/cobra"
)

var (
	forceInit  bool
	initDirArg string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new shopspec project",
	Long: `Initialize a new shopspec project in the current directory.

This creates:
  - shopspec.yaml          - Configuration file with environments
  - suites/categories.yaml - The Toolshop categories suite

Examples:
  shopspec init
  shopspec init --force
  shopspec init --dir contract`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().StringVar(&initDirArg, "dir", "suites", "Directory for the suite files")
}

// projectConfig is the config written by init.
func projectConfig() *config.Config {
	c := config.DefaultConfig()
	c.DefaultEnvironment = "local"
	c.Headers = map[string]string{
		"User-Agent": "shopspec/" + version,
	}
	c.Environments = map[string]map[string]any{
		"local": {
			"baseUrl": "http://localhost:3000",
		},
		"toolshop": {
			"baseUrl":      "https://api.practicesoftwaretesting.com",
			"deleteStatus": "204|200",
		},
	}
	c.History = filepath.Join(".shopspec", "history.db")
	return c
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, "shopspec.yaml")
	if _, err := os.Stat(configFile); err == nil && !forceInit {
		return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", configFile))
	}

	if err := projectConfig().SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	written, err := suites.Write(filepath.Join(cwd, initDirArg), forceInit)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", path)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nshopspec project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'shopspec mock' in one terminal and 'shopspec run %s' in another.\n", initDirArg)

	return nil
}
