package cmd

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory|builtin:name>...",
	Short: "Validate suites without sending requests",
	Long: `Parse and validate suites without sending any request.

Examples:
  shopspec validate suites/categories.yaml
  shopspec validate ./suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no suite files found"))
	}

	hasErrors := false
	for _, file := range files {
		suite, err := loadSuite(file)
		if err == nil {
			err = parser.Validate(suite)
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d steps)\n", file, len(suite.Steps))
		}
	}

	if hasErrors {
		return withExitCode(ExitParseError, errors.New("validation failed"))
	}

	return nil
}
