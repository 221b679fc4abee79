package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var logLevelFlag string

var rootCmd = &cobra.Command{
	Use:   "shopspec",
	Short: "Declarative contract tests for the Toolshop API",
	Long: `shopspec runs declarative HTTP contract suites against the Toolshop API.

A suite is an ordered list of steps. Each step sends one request, checks
the status and the shape of the JSON body, and captures values for the
steps after it. Failures are reported per step and never stop the suite.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseLogLevel(logLevelFlag)
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		return nil
	},
}

// Execute runs the root command and exits with the command's exit code.
func Execute(v, bt string) {
	version = v
	buildTime = bt
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	return ExitUsageError
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "info":
		return slog.LevelInfo, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (use debug, info, warn or error)", s)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", getEnvString("SHOPSPEC_LOG_LEVEL", "warn"), "Log level: debug, info, warn, error (env: SHOPSPEC_LOG_LEVEL)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(historyCmd)
}
