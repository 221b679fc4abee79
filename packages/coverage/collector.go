package coverage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/core/runner"
)

// Collector is a runner.Reporter that records every request sent and
// writes the coverage report on Flush.
type Collector struct {
	analyzer *Analyzer
	writer   io.Writer
	jsonPath string
	requests []Request
	report   *Report
}

type CollectorOption func(*Collector)

// WithWriter prints the console report to w.
func WithWriter(w io.Writer) CollectorOption {
	return func(c *Collector) {
		c.writer = w
	}
}

// WithJSONFile writes the JSON report to path.
func WithJSONFile(path string) CollectorOption {
	return func(c *Collector) {
		c.jsonPath = path
	}
}

func NewCollector(a *Analyzer, opts ...CollectorOption) *Collector {
	c := &Collector{analyzer: a}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collector) SuiteStarted(*parser.Suite) {}

func (c *Collector) StepFinished(r *runner.StepResult) {
	// Steps that never sent a request carry no response.
	if r.Request == nil || r.Response == nil {
		return
	}
	u, err := url.Parse(r.Request.BuildURL())
	if err != nil {
		return
	}
	c.requests = append(c.requests, Request{Method: r.Request.Method, Path: u.Path})
}

func (c *Collector) SuiteFinished(*runner.SuiteResult) {}

func (c *Collector) Flush(time.Duration) error {
	c.report = c.analyzer.Analyze(c.requests)

	if c.writer != nil {
		if _, err := io.WriteString(c.writer, c.report.FormatConsole()); err != nil {
			return err
		}
	}
	if c.jsonPath != "" {
		data, err := c.report.FormatJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(c.jsonPath, []byte(data+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write coverage report: %w", err)
		}
	}
	return nil
}

// Report returns the report built by the latest Flush.
func (c *Collector) Report() *Report {
	return c.report
}

// Requests returns the requests recorded so far.
func (c *Collector) Requests() []Request {
	return c.requests
}
