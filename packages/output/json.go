package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary  JSONSummary `json:"summary"`
	Suites   []JSONSuite `json:"suites"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
}

// JSONSummary counts steps over the whole run.
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type JSONSuite struct {
	Name     string       `json:"name"`
	File     string       `json:"file,omitempty"`
	Passed   int          `json:"passed"`
	Failed   int          `json:"failed"`
	Skipped  int          `json:"skipped"`
	Duration float64      `json:"duration"`
	Latency  *JSONLatency `json:"latency,omitempty"`
	Steps    []JSONStep   `json:"steps"`
}

// JSONLatency holds response latency percentiles in milliseconds.
type JSONLatency struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

type JSONStep struct {
	Index       int            `json:"index"`
	Name        string         `json:"name"`
	Outcome     string         `json:"outcome"`
	Passed      bool           `json:"passed"`
	Skipped     bool           `json:"skipped,omitempty"`
	SkipReason  string         `json:"skipReason,omitempty"`
	Duration    float64        `json:"duration"`
	Errors      []string       `json:"errors,omitempty"`
	StatusDrift bool           `json:"statusDrift,omitempty"`
	Request     *JSONRequest   `json:"request,omitempty"`
	Response    *JSONResponse  `json:"response,omitempty"`
	Captures    map[string]any `json:"captures,omitempty"`
}

// JSONRequest represents request details
type JSONRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Duration   float64           `json:"duration"`
}

// JSONReporter buffers suites and writes one JSON document on Flush.
type JSONReporter struct {
	writer io.Writer
	suites []JSONSuite
}

type JSONOption func(*JSONReporter)

func NewJSONReporter(opts ...JSONOption) *JSONReporter {
	f := &JSONReporter{
		writer: os.Stdout,
		suites: make([]JSONSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONReporter) {
		f.writer = w
	}
}

func (f *JSONReporter) SuiteStarted(*parser.Suite) {}

func (f *JSONReporter) StepFinished(*runner.StepResult) {}

func (f *JSONReporter) SuiteFinished(result *runner.SuiteResult) {
	suite := JSONSuite{
		Name:     result.Name,
		File:     result.File,
		Passed:   result.Passed,
		Failed:   result.Failed,
		Skipped:  result.Skipped,
		Duration: millis(result.Duration),
		Steps:    make([]JSONStep, 0, len(result.Results)),
	}
	if l := result.Latency; l.Count > 0 {
		suite.Latency = &JSONLatency{
			Count: l.Count,
			Min:   millis(l.Min),
			Mean:  millis(l.Mean),
			P50:   millis(l.P50),
			P95:   millis(l.P95),
			P99:   millis(l.P99),
			Max:   millis(l.Max),
		}
	}

	for _, r := range result.Results {
		step := JSONStep{
			Index:    r.Index,
			Name:     r.Name,
			Outcome:  string(r.Outcome()),
			Passed:   r.Passed,
			Skipped:  r.Skipped,
			Duration: millis(r.Duration),
		}

		if r.SkipReason != "" && r.SkipReason != "filtered out" {
			step.SkipReason = r.SkipReason
		}

		for _, err := range r.Errors() {
			step.Errors = append(step.Errors, err.Error())
		}

		if r.Match != nil {
			step.StatusDrift = r.Match.StatusDrift
		}

		if r.Request != nil {
			step.Request = &JSONRequest{
				Method:  r.Request.Method,
				URL:     r.Request.BuildURL(),
				Headers: r.Request.Headers,
			}
		}

		if r.Response != nil {
			step.Response = &JSONResponse{
				StatusCode: r.Response.StatusCode,
				Status:     r.Response.Status,
				Headers:    r.Response.Headers,
				Duration:   millis(r.Response.Duration),
			}
		}

		if len(r.Captures) > 0 {
			step.Captures = r.Captures
		}

		suite.Steps = append(suite.Steps, step)
	}

	f.suites = append(f.suites, suite)
}

// Flush writes the accumulated JSON output
func (f *JSONReporter) Flush(totalDuration time.Duration) error {
	var summary JSONSummary
	for _, s := range f.suites {
		summary.Passed += s.Passed
		summary.Failed += s.Failed
		summary.Skipped += s.Skipped
	}
	summary.Total = summary.Passed + summary.Failed + summary.Skipped

	output := JSONOutput{
		Summary:  summary,
		Suites:   f.suites,
		Duration: millis(totalDuration),
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
