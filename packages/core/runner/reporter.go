package runner

import (
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/hashicorp/go-multierror"
)

// Reporter receives results while suites run.
type Reporter interface {
	SuiteStarted(suite *parser.Suite)
	StepFinished(result *StepResult)
	SuiteFinished(result *SuiteResult)
}

// Flushable is implemented by reporters that buffer output until the end
// of the run.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Reporters fans results out to every registered reporter.
type Reporters struct {
	reporters []Reporter
	total     time.Duration
}

func NewReporters(reporters ...Reporter) *Reporters {
	rs := &Reporters{}
	for _, r := range reporters {
		rs.Add(r)
	}
	return rs
}

// Add registers a reporter. Nil reporters are ignored.
func (rs *Reporters) Add(r Reporter) {
	if r == nil {
		return
	}
	rs.reporters = append(rs.reporters, r)
}

func (rs *Reporters) Len() int {
	return len(rs.reporters)
}

func (rs *Reporters) SuiteStarted(suite *parser.Suite) {
	for _, r := range rs.reporters {
		r.SuiteStarted(suite)
	}
}

func (rs *Reporters) StepFinished(result *StepResult) {
	for _, r := range rs.reporters {
		r.StepFinished(result)
	}
}

func (rs *Reporters) SuiteFinished(result *SuiteResult) {
	rs.total += result.Duration
	for _, r := range rs.reporters {
		r.SuiteFinished(result)
	}
}

// End flushes every Flushable reporter, passing the summed suite duration.
func (rs *Reporters) End() error {
	var errs *multierror.Error
	for _, r := range rs.reporters {
		if f, ok := r.(Flushable); ok {
			if err := f.Flush(rs.total); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	return errs.ErrorOrNil()
}
