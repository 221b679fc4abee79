package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/assertions"
	"github.com/abdul-hamid-achik/shopspec/packages/builtin"
	"github.com/abdul-hamid-achik/shopspec/packages/capture"
	"github.com/abdul-hamid-achik/shopspec/packages/core/env"
	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/core/store"
	"github.com/abdul-hamid-achik/shopspec/packages/http"
)

type Runner struct {
	client    *http.Client
	funcs     *builtin.Registry
	reporters *Reporters
	logger    *slog.Logger
	config    *Config
}

type Config struct {
	// BaseURL overrides the suite's baseUrl when set.
	BaseURL string
	// Timeout overrides the suite's timeout when set. A step's own timeout
	// still wins.
	Timeout time.Duration
	// DefaultTimeout applies to requests that no step, suite or Timeout
	// bounds.
	DefaultTimeout time.Duration
	FollowRedirect bool
	Insecure       bool
	Proxy          string
	// RateLimit caps requests per second; zero means unpaced.
	RateLimit      float64
	DefaultHeaders map[string]string
	// Variables override suite variables (environment, config file, --var).
	Variables  map[string]any
	NameFilter string
	TagsFilter []string
}

type Option func(*Runner)

// WithReporter registers a reporter that sees every step as it finishes.
func WithReporter(r Reporter) Option {
	return func(rn *Runner) {
		rn.reporters.Add(r)
	}
}

// WithClient replaces the HTTP client built from Config.
func WithClient(c *http.Client) Option {
	return func(rn *Runner) {
		rn.client = c
	}
}

// WithRegistry replaces the builtin function registry, e.g. to seed fake data.
func WithRegistry(reg *builtin.Registry) Option {
	return func(rn *Runner) {
		rn.funcs = reg
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(rn *Runner) {
		rn.logger = l
	}
}

func NewRunner(cfg *Config, opts ...Option) *Runner {
	if cfg == nil {
		cfg = &Config{FollowRedirect: true}
	}

	r := &Runner{
		config:    cfg,
		reporters: NewReporters(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.client == nil {
		clientOpts := []http.ClientOption{
			http.WithFollowRedirects(cfg.FollowRedirect),
			http.WithValidateSSL(!cfg.Insecure),
			http.WithRateLimit(cfg.RateLimit),
		}
		if cfg.DefaultTimeout > 0 {
			clientOpts = append(clientOpts, http.WithTimeout(cfg.DefaultTimeout))
		}
		if cfg.Proxy != "" {
			clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
		}
		if len(cfg.DefaultHeaders) > 0 {
			clientOpts = append(clientOpts, http.WithDefaultHeaders(cfg.DefaultHeaders))
		}
		r.client = http.NewClient(clientOpts...)
	}
	if r.funcs == nil {
		r.funcs = builtin.NewRegistry()
	}

	return r
}

// Reporters returns the runner's reporter fan-out.
func (r *Runner) Reporters() *Reporters {
	return r.reporters
}

// RunFile parses a suite file and runs it.
func (r *Runner) RunFile(ctx context.Context, path string) (*SuiteResult, error) {
	suite, err := parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return r.RunSuite(ctx, suite)
}

// RunSuite validates suite and runs every step in order. The returned error
// is reserved for suites that cannot start (*parser.ConfigError); step
// failures are reported in the result.
func (r *Runner) RunSuite(ctx context.Context, suite *parser.Suite) (*SuiteResult, error) {
	if err := parser.Validate(suite); err != nil {
		return nil, err
	}

	state := store.New()
	defer state.Clear()

	resolver := env.NewResolver(state, env.WithRegistry(r.funcs))
	resolver.SetVariables(suite.Variables)
	resolver.SetVariables(r.config.Variables)

	baseURL := r.config.BaseURL
	if baseURL == "" && suite.BaseURL != "" {
		resolved, err := resolver.Resolve(suite.BaseURL)
		if err != nil {
			return nil, &parser.ConfigError{File: suite.Path, Err: fmt.Errorf("baseUrl: %w", err)}
		}
		baseURL = resolved
	}

	logger := r.logger.With("suite", suite.Name)
	result := &SuiteResult{
		Suite: suite,
		Name:  suite.Name,
		File:  suite.Path,
	}

	start := time.Now()
	r.reporters.SuiteStarted(suite)

	for _, step := range suite.Steps {
		var stepResult *StepResult
		switch {
		case !r.shouldRun(step):
			stepResult = skipped(step, "filtered out")
		case step.Skip != "":
			stepResult = skipped(step, step.Skip)
		default:
			stepResult = r.runStep(ctx, suite, step, baseURL, resolver, logger)
		}

		result.Results = append(result.Results, stepResult)
		switch {
		case stepResult.Skipped:
			result.Skipped++
		case stepResult.Passed:
			result.Passed++
		default:
			result.Failed++
		}
		r.reporters.StepFinished(stepResult)
	}

	result.Duration = time.Since(start)
	result.Latency = computeLatency(result.Results)
	r.reporters.SuiteFinished(result)

	logger.Debug("suite finished",
		"passed", result.Passed,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)
	return result, nil
}

func skipped(step *parser.Step, reason string) *StepResult {
	return &StepResult{
		Index:      step.Index,
		Name:       step.DisplayName(),
		Step:       step,
		Skipped:    true,
		SkipReason: reason,
	}
}

func (r *Runner) runStep(ctx context.Context, suite *parser.Suite, step *parser.Step, baseURL string, resolver *env.Resolver, logger *slog.Logger) *StepResult {
	result := &StepResult{
		Index:    step.Index,
		Name:     step.DisplayName(),
		Step:     step,
		Captures: make(map[string]any),
	}
	logger = logger.With("step", result.Name)

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		logger.Debug("step finished", "passed", result.Passed, "duration", result.Duration)
	}()

	for _, a := range step.Set {
		value, err := resolver.ResolveValue(a.Value)
		if err != nil {
			result.Error = fmt.Errorf("set %s: %w", a.Name, err)
			return result
		}
		resolver.State().Set(a.Name, value)
	}

	req, err := BuildRequest(step.Request, baseURL, suite.Headers, resolver)
	if err != nil {
		result.Error = err
		return result
	}
	if req.Timeout == 0 {
		req.Timeout = r.timeout(suite)
	}
	result.Request = req

	statuses, err := resolveStatus(step.Expect.Status, resolver)
	if err != nil {
		result.Error = err
		return result
	}

	logger.Debug("sending request", "method", req.Method, "url", req.BuildURL())
	resp, err := r.client.Do(ctx, req)
	if err != nil {
		result.Error = err
		return result
	}
	result.Response = resp

	baseDir := ""
	if suite.Path != "" {
		baseDir = filepath.Dir(suite.Path)
	}
	match := assertions.Match(resp, assertions.Expected{
		Statuses:   statuses,
		Shape:      step.Expect.Shape,
		SchemaFile: step.Expect.Schema,
		BaseDir:    baseDir,
	}, resolver)
	result.Match = match

	if match.StatusDrift {
		logger.Warn("status drift: accepted a non-primary status code",
			"expected", statuses[0],
			"actual", resp.StatusCode,
		)
	}

	errs := append([]error{}, match.Errors...)

	values, captureErrs := capture.ExtractAll(resp, step.Captures)
	errs = append(errs, captureErrs...)
	for name, value := range values {
		result.Captures[name] = value
	}
	resolver.State().SetAll(values)

	if step.Extract != nil {
		extracted, err := step.Extract(resp)
		if err != nil {
			errs = append(errs, fmt.Errorf("extract: %w", err))
		}
		for name, value := range extracted {
			result.Captures[name] = value
		}
		resolver.State().SetAll(extracted)
	}

	result.Error = joinErrors(errs)
	result.Passed = result.Error == nil
	return result
}

// timeout bounds a step that sets none: the run's Timeout, then the
// suite's. Zero leaves the client default in place.
func (r *Runner) timeout(suite *parser.Suite) time.Duration {
	if r.config.Timeout > 0 {
		return r.config.Timeout
	}
	return suite.Timeout
}

func (r *Runner) shouldRun(step *parser.Step) bool {
	if r.config.NameFilter != "" {
		if step.Name == "" || !matchesPattern(step.Name, r.config.NameFilter) {
			return false
		}
	}

	if len(r.config.TagsFilter) > 0 {
		if !hasAnyTag(step.Tags, r.config.TagsFilter) {
			return false
		}
	}

	return true
}

// matchesPattern supports a leading and/or trailing * wildcard.
func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	if pattern[0] == '*' && pattern[len(pattern)-1] == '*' && len(pattern) > 1 {
		return strings.Contains(name, pattern[1:len(pattern)-1])
	}
	if pattern[0] == '*' {
		return strings.HasSuffix(name, pattern[1:])
	}
	if pattern[len(pattern)-1] == '*' {
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	}
	return name == pattern
}

func hasAnyTag(tags []string, filters []string) bool {
	for _, filter := range filters {
		for _, tag := range tags {
			if tag == filter {
				return true
			}
		}
	}
	return false
}
