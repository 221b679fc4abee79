package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory|builtin:name>...",
	Short: "List the steps of each suite",
	Long: `List the steps defined in each suite.

Examples:
  shopspec list suites/categories.yaml
  shopspec list builtin:categories`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no suite files found"))
	}

	for _, file := range files {
		suite, err := loadSuite(file)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s (%s):\n", suite.Name, file)
		for _, step := range suite.Steps {
			line := fmt.Sprintf("  - %s", step.DisplayName())
			if step.Request != nil {
				line += fmt.Sprintf("  [%s %s]", step.Request.Method, step.Request.Path)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			if len(step.Tags) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "    tags: %s\n", strings.Join(step.Tags, ", "))
			}
			if step.Skip != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "    skip: %s\n", step.Skip)
			}
		}
	}

	return nil
}
