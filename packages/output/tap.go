package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/core/runner"
)

// TAPReporter writes results in TAP (Test Anything Protocol) format
type TAPReporter struct {
	writer    io.Writer
	testCount int
	results   []tapResult
}

type tapResult struct {
	number     int
	name       string
	passed     bool
	skipped    bool
	skipReason string
	outcome    runner.Outcome
	errors     []string
}

type TAPOption func(*TAPReporter)

func NewTAPReporter(opts ...TAPOption) *TAPReporter {
	f := &TAPReporter{
		writer:  os.Stdout,
		results: make([]tapResult, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func TAPWithWriter(w io.Writer) TAPOption {
	return func(f *TAPReporter) {
		f.writer = w
	}
}

func (f *TAPReporter) SuiteStarted(*parser.Suite) {}

func (f *TAPReporter) StepFinished(r *runner.StepResult) {
	f.testCount++
	tr := tapResult{
		number:     f.testCount,
		name:       r.Name,
		passed:     r.Passed,
		skipped:    r.Skipped,
		skipReason: r.SkipReason,
		outcome:    r.Outcome(),
	}
	for _, err := range r.Errors() {
		tr.errors = append(tr.errors, err.Error())
	}
	f.results = append(f.results, tr)
}

func (f *TAPReporter) SuiteFinished(*runner.SuiteResult) {}

// Flush writes the accumulated TAP output
func (f *TAPReporter) Flush(totalDuration time.Duration) error {
	fmt.Fprintf(f.writer, "TAP version 13\n")
	fmt.Fprintf(f.writer, "1..%d\n", f.testCount)

	for _, r := range f.results {
		switch {
		case r.skipped:
			reason := r.skipReason
			if reason == "" || reason == "filtered out" {
				reason = "SKIP"
			}
			fmt.Fprintf(f.writer, "ok %d - %s # SKIP %s\n", r.number, r.name, reason)
		case r.passed:
			fmt.Fprintf(f.writer, "ok %d - %s\n", r.number, r.name)
		default:
			fmt.Fprintf(f.writer, "not ok %d - %s\n", r.number, r.name)
			fmt.Fprintf(f.writer, "  ---\n")
			fmt.Fprintf(f.writer, "  outcome: %s\n", r.outcome)
			if isAssertionFailure(r.outcome) {
				fmt.Fprintf(f.writer, "  severity: fail\n")
			} else {
				fmt.Fprintf(f.writer, "  severity: error\n")
			}
			if len(r.errors) > 0 {
				fmt.Fprintf(f.writer, "  failures:\n")
				for _, e := range r.errors {
					fmt.Fprintf(f.writer, "    - %s\n", escapeYAML(e))
				}
			}
			fmt.Fprintf(f.writer, "  ...\n")
		}
	}

	_, err := fmt.Fprintf(f.writer, "# time %dms\n", totalDuration.Milliseconds())
	return err
}

func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":\n\"'[]{}#&*!|>%@`") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		return "\"" + s + "\""
	}
	return s
}
