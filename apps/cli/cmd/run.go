package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/core/config"
	"github.com/abdul-hamid-achik/shopspec/packages/core/env"
	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/core/runner"
	"github.com/abdul-hamid-achik/shopspec/packages/coverage"
	"github.com/abdul-hamid-achik/shopspec/packages/export/metrics"
	"github.com/abdul-hamid-achik/shopspec/packages/history"
	"github.com/abdul-hamid-achik/shopspec/packages/mock"
	"github.com/abdul-hamid-achik/shopspec/packages/notify"
	"github.com/abdul-hamid-achik/shopspec/packages/output"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory|builtin:name>...",
	Short: "Run contract suites",
	Long: `Run the contract suites defined in YAML files.

Examples:
  shopspec run suites/
  shopspec run suites/categories.yaml --env staging
  shopspec run builtin:categories --base-url http://localhost:3000
  shopspec run suites/ --tags smoke --output junit --output-file report.xml
  shopspec run suites/ --var deleteStatus=204 --history .shopspec/history.db`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond

	// systemVarPrefix marks OS environment variables exposed to suites.
	systemVarPrefix = "SHOPSPEC_VAR_"
)

var (
	envFlag         string
	envFileFlag     string
	configFlag      string
	baseURLFlag     string
	varFlags        []string
	nameFlag        string
	tagsFlag        string
	verboseFlag     int
	quietFlag       bool
	bailFlag        bool
	timeoutFlag     string
	noColorFlag     bool
	dryRunFlag      bool
	outputFlag      string
	outputFileFlag  string
	watchFlag       bool
	proxyFlag       string
	insecureFlag    bool
	rateFlag        float64
	historyFlag     string
	metricsFileFlag string
	pushgatewayFlag string
	pushJobFlag     string
	coverageFlag    bool
	coverageFile    string
	openAPIFlag     string
	notifyFlag      string
	notifyOnFlag    string
	slackWebhook    string
	slackChannel    string
	teamsWebhook    string
)

func init() {
	// Core flags
	runCmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("SHOPSPEC_ENV", ""), "Environment to use (env: SHOPSPEC_ENV)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("SHOPSPEC_ENV_FILE", ""), "Path to .env file for variable interpolation (env: SHOPSPEC_ENV_FILE)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("SHOPSPEC_CONFIG", ""), "Path to config file (env: SHOPSPEC_CONFIG)")
	runCmd.Flags().StringVar(&baseURLFlag, "base-url", getEnvString("SHOPSPEC_BASE_URL", ""), "Override every suite's base URL (env: SHOPSPEC_BASE_URL)")
	runCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Set a variable (key=value), repeatable")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only steps matching name pattern (* wildcards)")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("SHOPSPEC_TAGS", ""), "Run only steps with specified tags (comma-separated) (env: SHOPSPEC_TAGS)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output with requests, captures and body diffs")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("SHOPSPEC_QUIET", false), "Suppress console output except errors (env: SHOPSPEC_QUIET)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("SHOPSPEC_NO_COLOR", false), "Disable colored output (env: SHOPSPEC_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("SHOPSPEC_OUTPUT", ""), "Output format: console, json, junit, tap (env: SHOPSPEC_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("SHOPSPEC_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: SHOPSPEC_OUTPUT_FILE)")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("SHOPSPEC_BAIL", false), "Stop after the first suite with a failure (env: SHOPSPEC_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("SHOPSPEC_TIMEOUT", ""), "Request timeout overriding suite timeouts (e.g., 30s, 1m) (env: SHOPSPEC_TIMEOUT)")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Parse and show what would run without sending requests")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch suite files for changes and re-run")

	// Network flags
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("SHOPSPEC_PROXY", ""), "Proxy URL for HTTP requests (env: SHOPSPEC_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("SHOPSPEC_INSECURE", false), "Disable SSL certificate validation (env: SHOPSPEC_INSECURE)")
	runCmd.Flags().Float64Var(&rateFlag, "rate", getEnvFloat("SHOPSPEC_RATE", 0), "Maximum requests per second, 0 for unpaced (env: SHOPSPEC_RATE)")

	// Result sinks
	runCmd.Flags().StringVar(&historyFlag, "history", getEnvString("SHOPSPEC_HISTORY", ""), "Record the run in a SQLite history database (env: SHOPSPEC_HISTORY)")
	runCmd.Flags().StringVar(&metricsFileFlag, "metrics-file", getEnvString("SHOPSPEC_METRICS_FILE", ""), "Write Prometheus metrics in textfile format (env: SHOPSPEC_METRICS_FILE)")
	runCmd.Flags().StringVar(&pushgatewayFlag, "pushgateway", getEnvString("SHOPSPEC_PUSHGATEWAY", ""), "Push metrics to a Prometheus Pushgateway URL (env: SHOPSPEC_PUSHGATEWAY)")
	runCmd.Flags().StringVar(&pushJobFlag, "push-job", getEnvString("SHOPSPEC_PUSH_JOB", "shopspec"), "Pushgateway job name (env: SHOPSPEC_PUSH_JOB)")

	// Endpoint coverage
	runCmd.Flags().BoolVar(&coverageFlag, "coverage", false, "Print which API endpoints the run exercised")
	runCmd.Flags().StringVar(&coverageFile, "coverage-file", "", "Write the endpoint coverage report as JSON")
	runCmd.Flags().StringVar(&openAPIFlag, "openapi", getEnvString("SHOPSPEC_OPENAPI", ""), "OpenAPI document listing the endpoints (default: the mock's routes) (env: SHOPSPEC_OPENAPI)")

	// Notifications
	runCmd.Flags().StringVar(&notifyFlag, "notify", getEnvString("SHOPSPEC_NOTIFY", ""), "Send a run summary to: slack, teams (comma-separated) (env: SHOPSPEC_NOTIFY)")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("SHOPSPEC_NOTIFY_ON", string(notify.NotifyFailure)), "When to notify: always, failure, success, recovery (env: SHOPSPEC_NOTIFY_ON)")
	runCmd.Flags().StringVar(&slackWebhook, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack incoming webhook URL (env: SLACK_WEBHOOK)")
	runCmd.Flags().StringVar(&slackChannel, "slack-channel", getEnvString("SLACK_CHANNEL", ""), "Slack channel override (env: SLACK_CHANNEL)")
	runCmd.Flags().StringVar(&teamsWebhook, "teams-webhook", getEnvString("TEAMS_WEBHOOK", ""), "Microsoft Teams webhook URL (env: TEAMS_WEBHOOK)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// runSettings is everything a run needs, resolved from the config file,
// the environment and the flags.
type runSettings struct {
	runner     *runner.Config
	format     string
	verbose    bool
	noColor    bool
	history    string
	metrics    string
	push       string
	pushJob    string
	envName    string
	configPath string
}

func runCommand(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings()
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	files, err := collectFiles(args)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("no suite files found"))
	}

	if dryRunFlag {
		return dryRun(cmd.OutOrStdout(), files)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := executeRun(ctx, cmd, files, settings)
	if !watchFlag {
		if code != ExitSuccess {
			return withExitCode(code, nil)
		}
		return nil
	}

	return watch(ctx, cmd, args, files, settings)
}

// resolveSettings merges the config file with flags. Variables are layered
// config < environment block < .env file < SHOPSPEC_VAR_* < --var.
func resolveSettings() (*runSettings, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, err
	}

	envName := envFlag
	if envName == "" {
		envName = fileConfig.DefaultEnvironment
		if _, ok := fileConfig.Environments[envName]; !ok {
			envName = ""
		}
	}
	environment, err := env.LoadEnvironment(envName, fileConfig.Environments)
	if err != nil {
		return nil, err
	}

	dotenv, err := loadDotEnv(fileConfig)
	if err != nil {
		return nil, err
	}

	cliVars, err := env.ParseAssignments(varFlags)
	if err != nil {
		return nil, err
	}

	// An explicit timeout overrides the suites' own; the config default only
	// bounds requests nothing else does.
	var timeout time.Duration
	if fileConfig.HasTimeout() {
		timeout = fileConfig.TimeoutDuration()
	}
	if timeoutFlag != "" {
		timeout, err = time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
	}

	baseURL := fileConfig.BaseURL
	if baseURLFlag != "" {
		baseURL = baseURLFlag
	}
	proxy := fileConfig.Proxy
	if proxyFlag != "" {
		proxy = proxyFlag
	}
	rate := fileConfig.RateLimit
	if rateFlag > 0 {
		rate = rateFlag
	}

	format := outputFlag
	if format == "" && len(fileConfig.Reporters) > 0 {
		format = fileConfig.Reporters[0]
	}

	s := &runSettings{
		runner: &runner.Config{
			BaseURL:        baseURL,
			Timeout:        timeout,
			DefaultTimeout: fileConfig.TimeoutDuration(),
			FollowRedirect: fileConfig.GetFollowRedirects(),
			Insecure:       insecureFlag || !fileConfig.GetValidateSSL(),
			Proxy:          proxy,
			RateLimit:      rate,
			DefaultHeaders: fileConfig.Headers,
			Variables: env.MergeVariables(
				fileConfig.Variables,
				environment.Variables,
				dotenv,
				env.LoadSystemEnv(systemVarPrefix),
				cliVars,
			),
			NameFilter: nameFlag,
			TagsFilter: splitList(tagsFlag),
		},
		format:     strings.ToLower(format),
		verbose:    verboseFlag > 0 || fileConfig.GetVerbose(),
		noColor:    noColorFlag || fileConfig.GetNoColor(),
		history:    firstNonEmpty(historyFlag, fileConfig.History),
		metrics:    firstNonEmpty(metricsFileFlag, fileConfig.MetricsFile),
		push:       firstNonEmpty(pushgatewayFlag, fileConfig.Pushgateway),
		pushJob:    pushJobFlag,
		envName:    envName,
		configPath: configFlag,
	}
	return s, nil
}

// loadDotEnv reads --env-file, or the config's envFile when it exists.
func loadDotEnv(fileConfig *config.Config) (map[string]any, error) {
	path := envFileFlag
	if path == "" {
		path = fileConfig.EnvFile
		if _, err := os.Stat(path); path == "" || err != nil {
			return nil, nil
		}
	}

	vars, err := env.LoadDotEnv(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// executeRun runs every file once with fresh reporters and returns the
// exit code for the run.
func executeRun(ctx context.Context, cmd *cobra.Command, files []string, s *runSettings) int {
	var out io.Writer = cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: cannot create output file: %v\n", err)
			return ExitUsageError
		}
		defer f.Close()
		out = f
	}

	var console *output.ConsoleReporter
	var primary runner.Reporter
	switch s.format {
	case "json":
		primary = output.NewJSONReporter(output.JSONWithWriter(out))
	case "junit":
		primary = output.NewJUnitReporter(output.JUnitWithWriter(out))
	case "tap":
		primary = output.NewTAPReporter(output.TAPWithWriter(out))
	case "", "console":
		if quietFlag {
			out = io.Discard
		}
		console = output.NewConsoleReporter(
			output.WithWriter(out),
			output.WithVerbose(s.verbose),
			output.WithNoColor(s.noColor),
		)
		console.FormatHeader(version)
		primary = console
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: unknown output format %q (use console, json, junit or tap)\n", s.format)
		return ExitUsageError
	}

	opts := []runner.Option{
		runner.WithReporter(primary),
		runner.WithLogger(slog.Default()),
	}

	if s.metrics != "" || s.push != "" {
		var exporterOpts []metrics.Option
		if s.metrics != "" {
			exporterOpts = append(exporterOpts, metrics.WithTextfile(s.metrics))
		}
		if s.push != "" {
			exporterOpts = append(exporterOpts, metrics.WithPushgateway(s.push, s.pushJob))
		}
		opts = append(opts, runner.WithReporter(metrics.NewExporter(exporterOpts...)))
	}

	var recorder *history.Recorder
	if s.history != "" {
		store, err := history.Open(s.history)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return ExitConfigError
		}
		defer store.Close()
		recorder = history.NewRecorder(store)
		opts = append(opts, runner.WithReporter(recorder))

		if notifyFlag != "" && lastRunFailed == nil {
			lastRunFailed = previousRunFailed(ctx, store)
		}
	}

	if notifyFlag != "" {
		manager, err := notificationManager(s.envName)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return ExitUsageError
		}
		opts = append(opts, runner.WithReporter(manager))
	}

	if coverageFlag || coverageFile != "" {
		analyzer, err := endpointCatalogue()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			return ExitConfigError
		}
		var covOpts []coverage.CollectorOption
		if coverageFlag {
			w := cmd.OutOrStdout()
			if console == nil && outputFileFlag == "" {
				w = cmd.ErrOrStderr()
			}
			covOpts = append(covOpts, coverage.WithWriter(w))
		}
		if coverageFile != "" {
			covOpts = append(covOpts, coverage.WithJSONFile(coverageFile))
		}
		opts = append(opts, runner.WithReporter(coverage.NewCollector(analyzer, covOpts...)))
	}

	r := runner.NewRunner(s.runner, opts...)
	slog.Debug("starting run", "files", len(files), "env", s.envName, "baseUrl", s.runner.BaseURL)

	code := ExitSuccess
	var results []*runner.SuiteResult
	start := time.Now()

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}

		suite, err := loadSuite(file)
		if err == nil {
			var result *runner.SuiteResult
			result, err = r.RunSuite(ctx, suite)
			if err == nil {
				results = append(results, result)
				if result.HasFailures() && bailFlag {
					break
				}
				continue
			}
		}

		reportError(cmd, console, file, err)
		code = ExitParseError
		if bailFlag {
			break
		}
	}

	if err := r.Reporters().End(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: error writing output: %v\n", err)
		if code == ExitSuccess {
			code = ExitConfigError
		}
	}
	if console != nil && len(results) > 1 {
		console.FormatSummary(results, time.Since(start))
	}
	if recorder != nil && recorder.Last() != nil {
		slog.Info("run recorded", "id", recorder.Last().ID)
	}
	if notifyFlag != "" {
		failed := slices.ContainsFunc(results, (*runner.SuiteResult).HasFailures)
		lastRunFailed = &failed
	}

	if code != ExitSuccess {
		return code
	}
	return resultCode(results)
}

func reportError(cmd *cobra.Command, console *output.ConsoleReporter, file string, err error) {
	err = fmt.Errorf("%s: %w", file, err)
	if console != nil {
		console.FormatError(err)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
}

// resultCode maps results to an exit code. A run whose failures are all
// transport errors or timeouts is a network failure.
func resultCode(results []*runner.SuiteResult) int {
	failed, network := 0, 0
	for _, res := range results {
		for _, step := range res.Results {
			if !step.Failed() {
				continue
			}
			failed++
			if o := step.Outcome(); step.Response == nil && (o == runner.OutcomeError || o == runner.OutcomeTimeout) {
				network++
			}
		}
	}
	switch {
	case failed == 0:
		return ExitSuccess
	case network == failed:
		return ExitNetworkError
	default:
		return ExitTestFailure
	}
}

// dryRun parses and validates each suite and prints the requests it would send.
func dryRun(w io.Writer, files []string) error {
	invalid := false
	for _, file := range files {
		suite, err := loadSuite(file)
		if err == nil {
			err = parser.Validate(suite)
		}
		if err != nil {
			fmt.Fprintf(w, "Invalid: %s\n  %v\n", file, err)
			invalid = true
			continue
		}
		fmt.Fprintf(w, "Would run: %s (%s)\n", suite.Name, file)
		for _, step := range suite.Steps {
			fmt.Fprintf(w, "  %d. %s %s  %s\n", step.Index+1, step.Request.Method, step.Request.Path, step.DisplayName())
		}
	}
	if invalid {
		return withExitCode(ExitParseError, errors.New("validation failed"))
	}
	return nil
}

// watch re-runs the suites when a suite file or the config changes.
func watch(ctx context.Context, cmd *cobra.Command, args, files []string, s *runSettings) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watchedDirs := make(map[string]bool)
	addDir := func(dir string) {
		if watchedDirs[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			slog.Warn("cannot watch directory", "dir", dir, "error", err)
			return
		}
		watchedDirs[dir] = true
	}

	for _, file := range files {
		if !strings.HasPrefix(file, builtinPrefix) {
			addDir(filepath.Dir(file))
		}
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			_ = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err == nil && info.IsDir() {
					addDir(path)
				}
				return nil
			})
		}
	}
	if s.configPath != "" {
		addDir(filepath.Dir(s.configPath))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	rerun := make(chan string, 1)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isSuiteFile(event.Name) && !isConfigFile(event.Name) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case rerun <- name:
				default:
				}
			})

		case name := <-rerun:
			fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running suites...\n\n", name)

			if isConfigFile(name) {
				if fresh, err := resolveSettings(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				} else {
					s = fresh
				}
			}
			if fresh, err := collectFiles(args); err == nil {
				files = fresh
			}
			executeRun(ctx, cmd, files, s)

			fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// lastRunFailed is the verdict of the previous run, seeded from the history
// database and updated after each run in watch mode.
var lastRunFailed *bool

func previousRunFailed(ctx context.Context, store *history.Store) *bool {
	runs, err := store.Runs(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil
	}
	failed := runs[0].Failed > 0
	return &failed
}

// notificationManager builds the notifiers named by --notify.
func notificationManager(envName string) (*notify.Manager, error) {
	on := notify.NotifyOn(strings.ToLower(notifyOnFlag))
	switch on {
	case notify.NotifyAlways, notify.NotifyFailure, notify.NotifySuccess, notify.NotifyRecovery:
	default:
		return nil, fmt.Errorf("unknown --notify-on value %q (use always, failure, success or recovery)", notifyOnFlag)
	}

	manager := notify.NewManager(on)
	manager.SetEnvironment(envName)
	if lastRunFailed != nil {
		manager.SetPreviousFailed(*lastRunFailed)
	}

	for _, name := range splitList(strings.ToLower(notifyFlag)) {
		switch name {
		case "slack":
			if slackWebhook == "" {
				return nil, errors.New("--notify slack needs --slack-webhook or SLACK_WEBHOOK")
			}
			var opts []notify.SlackOption
			if slackChannel != "" {
				opts = append(opts, notify.WithSlackChannel(slackChannel))
			}
			manager.AddNotifier(notify.NewSlackNotifier(slackWebhook, opts...))
		case "teams":
			if teamsWebhook == "" {
				return nil, errors.New("--notify teams needs --teams-webhook or TEAMS_WEBHOOK")
			}
			manager.AddNotifier(notify.NewTeamsNotifier(teamsWebhook))
		default:
			return nil, fmt.Errorf("unknown notifier %q (use slack or teams)", name)
		}
	}
	return manager, nil
}

// endpointCatalogue lists the endpoints coverage is measured against: the
// --openapi document, or every route the mock serves.
func endpointCatalogue() (*coverage.Analyzer, error) {
	analyzer := coverage.NewAnalyzer()
	if openAPIFlag != "" {
		return analyzer, analyzer.LoadOpenAPI(openAPIFlag)
	}

	server := mock.NewServer(mock.WithResource(mock.Categories()), mock.WithResource(mock.Brands()))
	for _, route := range server.Routes() {
		resource, _, _ := strings.Cut(strings.TrimPrefix(route.Pattern, "/"), "/")
		analyzer.Add(coverage.Endpoint{
			Method: route.Method,
			Path:   route.Pattern,
			Tags:   []string{resource},
		})
	}
	return analyzer, nil
}

func isConfigFile(path string) bool {
	return slices.Contains(config.ConfigFilenames, filepath.Base(path))
}
