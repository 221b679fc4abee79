package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/core/runner"
	"github.com/fatih/color"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

// ConsoleReporter prints each step as it finishes and a summary per suite.
type ConsoleReporter struct {
	writer  io.Writer
	verbose bool
	noColor bool

	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
	bold   func(a ...any) string
}

type ConsoleOption func(*ConsoleReporter)

func NewConsoleReporter(opts ...ConsoleOption) *ConsoleReporter {
	f := &ConsoleReporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	f.green = color.New(color.FgGreen).SprintFunc()
	f.red = color.New(color.FgRed).SprintFunc()
	f.yellow = color.New(color.FgYellow).SprintFunc()
	f.cyan = color.New(color.FgCyan).SprintFunc()
	f.bold = color.New(color.Bold).SprintFunc()
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleReporter) {
		f.writer = w
	}
}

// WithVerbose prints status codes, captures and body diffs.
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleReporter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleReporter) {
		f.noColor = nc
	}
}

func (f *ConsoleReporter) SuiteStarted(suite *parser.Suite) {
	title := suite.Name
	if suite.Path != "" {
		title += " (" + suite.Path + ")"
	}
	fmt.Fprintf(f.writer, "\n%s\n\n", f.bold("Running: "+title))
}

func (f *ConsoleReporter) StepFinished(r *runner.StepResult) {
	if r.Skipped {
		fmt.Fprintf(f.writer, "  %s %s", f.yellow("-"), r.Name)
		if r.SkipReason != "" && r.SkipReason != "filtered out" {
			fmt.Fprintf(f.writer, " (%s)", r.SkipReason)
		}
		fmt.Fprintf(f.writer, "\n")
		return
	}

	if r.Passed {
		fmt.Fprintf(f.writer, "  %s %s %s\n", f.green("✓"), r.Name, f.cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))
	} else {
		fmt.Fprintf(f.writer, "  %s %s %s %s\n", f.red("✗"), r.Name,
			f.cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())),
			f.red("["+string(r.Outcome())+"]"))
		for _, err := range r.Errors() {
			fmt.Fprintf(f.writer, "    %s %s\n", f.red("→"), err)
		}
	}

	if f.verbose && r.Request != nil {
		fmt.Fprintf(f.writer, "    %s %s\n", r.Request.Method, r.Request.BuildURL())
	}
	if f.verbose && r.Response != nil {
		fmt.Fprintf(f.writer, "    Status: %d\n", r.Response.StatusCode)
		if r.Match != nil && r.Match.StatusDrift {
			fmt.Fprintf(f.writer, "    %s accepted %d, primary is %d\n", f.yellow("drift:"), r.Match.Status, r.Match.Expected[0])
		}
	}

	if f.verbose && !r.Passed && r.Response != nil && r.Step != nil && r.Step.Expect != nil {
		if diff := ShapeDiff(r.Step.Expect.Shape, r.Response.Body); diff != "" {
			fmt.Fprintf(f.writer, "    Body diff:\n")
			for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
				fmt.Fprintf(f.writer, "      %s\n", f.colorDiffLine(line))
			}
		}
	}

	if f.verbose && len(r.Captures) > 0 {
		names := make([]string, 0, len(r.Captures))
		for name := range r.Captures {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(f.writer, "    Captures:\n")
		for _, name := range names {
			fmt.Fprintf(f.writer, "      %s = %s\n", name, formatValue(r.Captures[name], 100))
		}
	}
}

func (f *ConsoleReporter) colorDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return f.bold(line)
	case strings.HasPrefix(line, "+"):
		return f.green(line)
	case strings.HasPrefix(line, "-"):
		return f.red(line)
	default:
		return line
	}
}

func (f *ConsoleReporter) SuiteFinished(result *runner.SuiteResult) {
	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Steps: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", f.green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", f.red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", f.yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	total := result.Passed + result.Failed + result.Skipped
	fmt.Fprintf(f.writer, "%d total\n", total)
	fmt.Fprintf(f.writer, "Time:  %dms\n", result.Duration.Milliseconds())
	if l := result.Latency; l.Count > 0 {
		fmt.Fprintf(f.writer, "Latency: p50 %s, p95 %s, max %s\n", round(l.P50), round(l.P95), round(l.Max))
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleReporter) FormatError(err error) {
	fmt.Fprintf(f.writer, "%s %v\n", f.red("Error:"), err)
}

func (f *ConsoleReporter) FormatHeader(version string) {
	fmt.Fprintf(f.writer, "%s %s\n", f.bold("shopspec"), version)
}

// FormatSummary prints the totals over several suites.
func (f *ConsoleReporter) FormatSummary(results []*runner.SuiteResult, totalDuration time.Duration) {
	var passed, failed, skipped, failedSuites int
	for _, r := range results {
		passed += r.Passed
		failed += r.Failed
		skipped += r.Skipped
		if r.HasFailures() {
			failedSuites++
		}
	}
	fmt.Fprintf(f.writer, "%s %d suites (%d failed), %d passed, %d failed, %d skipped in %dms\n",
		f.bold("Total:"), len(results), failedSuites, passed, failed, skipped, totalDuration.Milliseconds())
}

func round(d time.Duration) time.Duration {
	if d > time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(10 * time.Microsecond)
}
