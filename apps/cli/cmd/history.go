package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/abdul-hamid-achik/shopspec/packages/core/config"
	"github.com/abdul-hamid-achik/shopspec/packages/history"
	"github.com/spf13/cobra"
)

var (
	historyDBFlag    string
	historyLimitFlag int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect runs recorded with --history",
	Long: `Inspect the SQLite run log written by 'shopspec run --history'.

Examples:
  shopspec history runs
  shopspec history show 3f2a9c1e
  shopspec history trend "Toolshop categories" "Delete category"`,
}

var historyRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Runs(cmd.Context(), historyLimitFlag)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tPASSED\tFAILED\tSKIPPED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
				r.ID[:8], r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Duration, r.Passed, r.Failed, r.Skipped)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the steps of one run (a unique id prefix is enough)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		steps, err := store.Steps(cmd.Context(), args[0])
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SUITE\tSTEP\tOUTCOME\tSTATUS\tDURATION\tERROR")
		for _, s := range steps {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", s.Suite, s.Name, s.Outcome, s.Status, s.Duration, s.Error)
		}
		return w.Flush()
	},
}

var historyTrendCmd = &cobra.Command{
	Use:   "trend <suite> <step>",
	Short: "Show the latest outcomes of one step across runs",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		steps, err := store.Trend(cmd.Context(), args[0], args[1], historyLimitFlag)
		if err != nil {
			return err
		}
		if len(steps) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No runs recorded for %s / %s\n", args[0], args[1])
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tOUTCOME\tSTATUS\tDURATION")
		for _, s := range steps {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.RunID[:8], s.Outcome, s.Status, s.Duration)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDBFlag, "db", getEnvString("SHOPSPEC_HISTORY", ""), "History database (default: the config's history path) (env: SHOPSPEC_HISTORY)")
	historyCmd.PersistentFlags().IntVarP(&historyLimitFlag, "limit", "l", 20, "Maximum rows to show")

	historyCmd.AddCommand(historyRunsCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyTrendCmd)
}

func openHistory() (*history.Store, error) {
	path := historyDBFlag
	if path == "" {
		c, err := config.LoadConfig(configFlag)
		if err != nil {
			return nil, withExitCode(ExitConfigError, err)
		}
		path = c.History
	}
	if path == "" {
		return nil, withExitCode(ExitUsageError, fmt.Errorf("no history database (use --db or set history in the config)"))
	}

	store, err := history.Open(path)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return store, nil
}
