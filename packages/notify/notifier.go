// Package notify posts run summaries to chat webhooks when contract
// steps fail, drift or recover.
package notify

import (
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/core/runner"
	"github.com/hashicorp/go-multierror"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when steps fail
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when every step passes
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first
	// passing run after a failing one
	NotifyRecovery NotifyOn = "recovery"
)

// maxListedFailures caps the failures spelled out in one message.
const maxListedFailures = 10

// RunSummary is what a notifier renders.
type RunSummary struct {
	Suites      int           `json:"suites"`
	TotalSteps  int           `json:"total_steps"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Drifted     int           `json:"drifted"`
	Duration    time.Duration `json:"duration"`
	Environment string        `json:"environment,omitempty"`
	Failures    []FailedStep  `json:"failures,omitempty"`
	IsRecovery  bool          `json:"is_recovery,omitempty"`
}

// FailedStep is one failing step in a summary.
type FailedStep struct {
	Suite   string         `json:"suite"`
	Step    string         `json:"step"`
	Outcome runner.Outcome `json:"outcome"`
	Errors  []string       `json:"errors,omitempty"`
}

// Notifier is the interface for notification services
type Notifier interface {
	Notify(summary *RunSummary) error
	Name() string
}

// Manager is a runner.Reporter that builds a RunSummary and hands it to
// every notifier on Flush, subject to the NotifyOn policy.
type Manager struct {
	notifiers   []Notifier
	notifyOn    NotifyOn
	environment string
	lastFailed  bool
	summary     *RunSummary
	sent        bool
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	m := &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
	}
	m.reset()
	return m
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// SetEnvironment names the environment in messages.
func (m *Manager) SetEnvironment(name string) {
	m.environment = name
	m.summary.Environment = name
}

// SetPreviousFailed records whether the previous run failed, e.g. from the
// run history, so a passing run can be reported as a recovery.
func (m *Manager) SetPreviousFailed(failed bool) {
	m.lastFailed = failed
}

func (m *Manager) reset() {
	m.summary = &RunSummary{Environment: m.environment}
}

func (m *Manager) SuiteStarted(*parser.Suite) {}

func (m *Manager) StepFinished(r *runner.StepResult) {
	if r.Match != nil && r.Match.StatusDrift {
		m.summary.Drifted++
	}
	if !r.Failed() {
		return
	}
	failure := FailedStep{
		Step:    r.Name,
		Outcome: r.Outcome(),
	}
	for _, err := range r.Errors() {
		failure.Errors = append(failure.Errors, err.Error())
	}
	m.summary.Failures = append(m.summary.Failures, failure)
}

func (m *Manager) SuiteFinished(result *runner.SuiteResult) {
	m.summary.Suites++
	m.summary.Passed += result.Passed
	m.summary.Failed += result.Failed
	m.summary.Skipped += result.Skipped
	m.summary.TotalSteps += len(result.Results)
	for i := range m.summary.Failures {
		if m.summary.Failures[i].Suite == "" {
			m.summary.Failures[i].Suite = result.Name
		}
	}
}

// Flush sends the summary of the run and starts a new one.
func (m *Manager) Flush(totalDuration time.Duration) error {
	summary := m.summary
	summary.Duration = totalDuration
	m.reset()
	return m.Notify(summary)
}

// Notify sends summary when the policy allows it. Every notifier is tried;
// their errors are combined.
func (m *Manager) Notify(summary *RunSummary) error {
	failed := summary.Failed > 0
	recovered := m.lastFailed && !failed
	m.lastFailed = failed
	m.sent = false

	switch m.notifyOn {
	case NotifyAlways:
	case NotifyFailure:
		if !failed {
			return nil
		}
	case NotifySuccess:
		if failed {
			return nil
		}
	case NotifyRecovery:
		if !failed && !recovered {
			return nil
		}
		summary.IsRecovery = recovered
	default:
		return nil
	}

	var errs *multierror.Error
	for _, n := range m.notifiers {
		if err := n.Notify(summary); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	m.sent = true
	return errs.ErrorOrNil()
}

// Sent reports whether the latest Notify reached the notifiers.
func (m *Manager) Sent() bool {
	return m.sent
}

// headline is the one-line verdict shared by every notifier.
func headline(summary *RunSummary) string {
	switch {
	case summary.Failed > 0:
		return plural(summary.Failed, "contract step failed", "contract steps failed")
	case summary.IsRecovery:
		return "Contract recovered, every step passes again"
	case summary.Drifted > 0:
		return "Every contract step passed, " + plural(summary.Drifted, "step drifted", "steps drifted")
	default:
		return "Every contract step passed"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
