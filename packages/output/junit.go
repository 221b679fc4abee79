package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/core/runner"
)

// JUnitTestSuites is the root element
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	Timestamp  string           `xml:"timestamp,attr,omitempty"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite is one scenario suite.
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase is one step.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure is a step whose response did not match.
type JUnitFailure struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// JUnitError is a step that could not be checked at all.
type JUnitError struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitReporter buffers suites and writes JUnit XML on Flush.
type JUnitReporter struct {
	writer     io.Writer
	testSuites []JUnitTestSuite
}

type JUnitOption func(*JUnitReporter)

func NewJUnitReporter(opts ...JUnitOption) *JUnitReporter {
	f := &JUnitReporter{
		writer:     os.Stdout,
		testSuites: make([]JUnitTestSuite, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JUnitWithWriter(w io.Writer) JUnitOption {
	return func(f *JUnitReporter) {
		f.writer = w
	}
}

func (f *JUnitReporter) SuiteStarted(*parser.Suite) {}

func (f *JUnitReporter) StepFinished(*runner.StepResult) {}

func (f *JUnitReporter) SuiteFinished(result *runner.SuiteResult) {
	className := result.File
	if className == "" {
		className = result.Name
	}

	suite := JUnitTestSuite{
		Name:      result.Name,
		Tests:     len(result.Results),
		Skipped:   result.Skipped,
		Time:      result.Duration.Seconds(),
		Timestamp: time.Now().Format(time.RFC3339),
	}

	for _, r := range result.Results {
		tc := JUnitTestCase{
			Name:      r.Name,
			ClassName: className,
			Time:      r.Duration.Seconds(),
		}

		switch {
		case r.Skipped:
			tc.Skipped = &JUnitSkipped{Message: r.SkipReason}
		case r.Passed:
		case isAssertionFailure(r.Outcome()):
			suite.Failures++
			tc.Failure = &JUnitFailure{
				Message: firstError(r),
				Type:    string(r.Outcome()),
				Content: joinStepErrors(r),
			}
		default:
			suite.Errors++
			tc.Error = &JUnitError{
				Message: firstError(r),
				Type:    string(r.Outcome()),
				Content: joinStepErrors(r),
			}
		}

		suite.TestCases = append(suite.TestCases, tc)
	}

	f.testSuites = append(f.testSuites, suite)
}

// Flush writes the accumulated JUnit XML output
func (f *JUnitReporter) Flush(totalDuration time.Duration) error {
	var totalTests, totalFailures, totalErrors, totalSkipped int
	for _, suite := range f.testSuites {
		totalTests += suite.Tests
		totalFailures += suite.Failures
		totalErrors += suite.Errors
		totalSkipped += suite.Skipped
	}

	suites := JUnitTestSuites{
		Name:       "shopspec",
		Tests:      totalTests,
		Failures:   totalFailures,
		Errors:     totalErrors,
		Skipped:    totalSkipped,
		Time:       totalDuration.Seconds(),
		Timestamp:  time.Now().Format(time.RFC3339),
		TestSuites: f.testSuites,
	}

	fmt.Fprintf(f.writer, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	encoder := xml.NewEncoder(f.writer)
	encoder.Indent("", "  ")
	if err := encoder.Encode(suites); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.writer)
	return err
}

// isAssertionFailure separates responses that did not match from steps
// that never got a comparable response.
func isAssertionFailure(o runner.Outcome) bool {
	switch o {
	case runner.OutcomeStatusMismatch, runner.OutcomeShapeMismatch, runner.OutcomeCapture:
		return true
	default:
		return false
	}
}

func firstError(r *runner.StepResult) string {
	errs := r.Errors()
	if len(errs) == 0 {
		return ""
	}
	return errs[0].Error()
}

func joinStepErrors(r *runner.StepResult) string {
	var b strings.Builder
	for _, err := range r.Errors() {
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}
