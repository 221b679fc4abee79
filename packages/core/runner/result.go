package runner

import (
	"errors"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/assertions"
	"github.com/abdul-hamid-achik/shopspec/packages/capture"
	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/core/store"
	"github.com/abdul-hamid-achik/shopspec/packages/http"
	"github.com/hashicorp/go-multierror"
)

type SuiteResult struct {
	Suite    *parser.Suite
	Name     string
	File     string
	Results  []*StepResult
	Duration time.Duration
	Passed   int
	Failed   int
	Skipped  int
	Latency  LatencyStats
}

// HasFailures reports whether any step failed.
func (r *SuiteResult) HasFailures() bool {
	return r.Failed > 0
}

type StepResult struct {
	Index      int
	Name       string
	Step       *parser.Step
	Passed     bool
	Skipped    bool
	SkipReason string
	Duration   time.Duration
	Request    *http.Request
	Response   *http.Response
	Match      *assertions.MatchResult
	Captures   map[string]any
	Error      error
}

// Failed reports whether the step ran and did not pass.
func (r *StepResult) Failed() bool {
	return !r.Skipped && !r.Passed
}

// Errors flattens Error into its individual failures.
func (r *StepResult) Errors() []error {
	if r.Error == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(r.Error, &merr) {
		return merr.Errors
	}
	return []error{r.Error}
}

// Outcome classifies a step result.
type Outcome string

const (
	OutcomePassed              Outcome = "passed"
	OutcomeSkipped             Outcome = "skipped"
	OutcomeStatusMismatch      Outcome = "status_mismatch"
	OutcomeShapeMismatch       Outcome = "shape_mismatch"
	OutcomeUnresolvedReference Outcome = "unresolved_reference"
	OutcomeTimeout             Outcome = "timeout"
	OutcomeCapture             Outcome = "capture"
	OutcomeConfig              Outcome = "config"
	OutcomeError               Outcome = "error"
)

// Outcome returns the result's class. With several failures the first
// matching class in the order status, unresolved, timeout, shape, capture
// wins.
func (r *StepResult) Outcome() Outcome {
	switch {
	case r.Skipped:
		return OutcomeSkipped
	case r.Passed:
		return OutcomePassed
	}
	return Classify(r.Error)
}

// Classify maps a step error to its Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomePassed
	}
	var (
		statusErr     *assertions.StatusMismatchError
		unresolvedErr *store.UnresolvedReferenceError
		shapeErr      *assertions.ShapeMismatchError
		captureErr    *capture.MissingError
	)
	switch {
	case errors.As(err, &statusErr):
		return OutcomeStatusMismatch
	case errors.As(err, &unresolvedErr):
		return OutcomeUnresolvedReference
	case http.IsTimeout(err):
		return OutcomeTimeout
	case errors.As(err, &shapeErr):
		return OutcomeShapeMismatch
	case errors.As(err, &captureErr):
		return OutcomeCapture
	case parser.IsConfigError(err):
		return OutcomeConfig
	default:
		return OutcomeError
	}
}

func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	var merr *multierror.Error
	return multierror.Append(merr, errs...).ErrorOrNil()
}
