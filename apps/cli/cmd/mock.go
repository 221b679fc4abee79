package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/mock"
	"github.com/spf13/cobra"
)

var (
	mockPortFlag         int
	mockDelayFlag        string
	mockVerboseFlag      bool
	mockDeleteStatusFlag int
	mockResourcesFlag    string
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Start an in-memory Toolshop server",
	Long: `Start an HTTP server that behaves like the Toolshop API for the
selected resources, so suites can run without the real deployment.

Each resource gets list, create, get, update, patch, delete and search
routes. Categories also get /tree and /tree/{id}. Prometheus metrics are
served at /metrics.

Examples:
  shopspec mock
  shopspec mock --port 3000 --delay 100ms
  shopspec mock --resources categories,brands --delete-status 200`,
	Args: cobra.NoArgs,
	RunE: mockCommand,
}

func init() {
	mockCmd.Flags().IntVarP(&mockPortFlag, "port", "p", 3000, "Port to run the mock server on")
	mockCmd.Flags().StringVarP(&mockDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	mockCmd.Flags().BoolVar(&mockVerboseFlag, "verbose", false, "Log every request")
	mockCmd.Flags().IntVar(&mockDeleteStatusFlag, "delete-status", 204, "Status of a successful delete (204 or 200)")
	mockCmd.Flags().StringVar(&mockResourcesFlag, "resources", "categories", "Resources to serve (comma-separated): categories, brands")
}

func mockCommand(cmd *cobra.Command, args []string) error {
	var delay time.Duration
	if mockDelayFlag != "0" {
		var err error
		delay, err = time.ParseDuration(mockDelayFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid delay value %q: %w", mockDelayFlag, err))
		}
	}
	if mockDeleteStatusFlag != 200 && mockDeleteStatusFlag != 204 {
		return withExitCode(ExitUsageError, fmt.Errorf("invalid delete status %d (use 200 or 204)", mockDeleteStatusFlag))
	}

	logger := slog.Default()
	if mockVerboseFlag {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	opts := []mock.Option{
		mock.WithPort(mockPortFlag),
		mock.WithDelay(delay),
		mock.WithVerbose(mockVerboseFlag),
		mock.WithDeleteStatus(mockDeleteStatusFlag),
		mock.WithLogger(logger),
	}
	for _, name := range splitList(mockResourcesFlag) {
		switch strings.ToLower(name) {
		case "categories":
			opts = append(opts, mock.WithResource(mock.Categories()))
		case "brands":
			opts = append(opts, mock.WithResource(mock.Brands()))
		default:
			return withExitCode(ExitUsageError, fmt.Errorf("unknown resource %q", name))
		}
	}

	server := mock.NewServer(opts...)
	for _, r := range server.Resources() {
		fmt.Fprintf(cmd.OutOrStdout(), "Serving /%s\n", r.Name)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Mock server listening on http://localhost:%d\n", mockPortFlag)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.StartWithContext(ctx)
}
