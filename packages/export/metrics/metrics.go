// Package metrics exports suite results as Prometheus metrics, either to a
// node-exporter textfile or to a Pushgateway.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/core/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "shopspec"

// Exporter records every finished step and suite and writes the registry
// out on Flush.
type Exporter struct {
	registry *prometheus.Registry

	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	statusCodes  *prometheus.CounterVec
	suites       *prometheus.CounterVec
	lastRun      prometheus.Gauge
	runDuration  prometheus.Gauge

	textfile string
	pushURL  string
	job      string
	current  string
}

type Option func(*Exporter)

// WithTextfile writes metrics to path on Flush, in the format read by the
// node exporter textfile collector.
func WithTextfile(path string) Option {
	return func(e *Exporter) {
		e.textfile = path
	}
}

// WithPushgateway pushes metrics to url under job on Flush.
func WithPushgateway(url, job string) Option {
	return func(e *Exporter) {
		e.pushURL = url
		e.job = job
	}
}

func NewExporter(opts ...Option) *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		job:      namespace,
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Steps run, by suite and outcome.",
		}, []string{"suite", "outcome"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Round-trip time of steps that got a response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"suite", "method"}),
		statusCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Responses received, by suite and status code.",
		}, []string{"suite", "code"}),
		suites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suites_total",
			Help:      "Suites run, by result.",
		}, []string{"result"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.registry.MustRegister(e.steps, e.stepDuration, e.statusCodes, e.suites, e.lastRun, e.runDuration)
	return e
}

// Gatherer exposes the registry, e.g. for promhttp.
func (e *Exporter) Gatherer() prometheus.Gatherer {
	return e.registry
}

func (e *Exporter) SuiteStarted(suite *parser.Suite) {
	e.current = suite.Name
}

func (e *Exporter) StepFinished(r *runner.StepResult) {
	suite := e.current
	e.steps.WithLabelValues(suite, string(r.Outcome())).Inc()

	if r.Response == nil {
		return
	}
	method := ""
	if r.Request != nil {
		method = r.Request.Method
	}
	e.stepDuration.WithLabelValues(suite, method).Observe(r.Response.Duration.Seconds())
	e.statusCodes.WithLabelValues(suite, strconv.Itoa(r.Response.StatusCode)).Inc()
}

func (e *Exporter) SuiteFinished(result *runner.SuiteResult) {
	outcome := "passed"
	if result.HasFailures() {
		outcome = "failed"
	}
	e.suites.WithLabelValues(outcome).Inc()
}

// Flush stamps the run and writes the configured destinations.
func (e *Exporter) Flush(totalDuration time.Duration) error {
	e.lastRun.SetToCurrentTime()
	e.runDuration.Set(totalDuration.Seconds())

	if e.textfile != "" {
		if err := prometheus.WriteToTextfile(e.textfile, e.registry); err != nil {
			return fmt.Errorf("failed to write metrics textfile: %w", err)
		}
	}
	if e.pushURL != "" {
		if err := push.New(e.pushURL, e.job).Gatherer(e.registry).Push(); err != nil {
			return fmt.Errorf("failed to push metrics: %w", err)
		}
	}
	return nil
}
