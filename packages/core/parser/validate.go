package parser

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var validMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"PATCH":   true,
	"DELETE":  true,
	"HEAD":    true,
	"OPTIONS": true,
}

// ConfigError reports a malformed suite. Nothing is executed when a suite
// fails to parse or validate.
type ConfigError struct {
	File string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("configuration error in %s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Validate checks every step and returns a *ConfigError listing all
// problems, or nil.
func Validate(suite *Suite) error {
	if suite == nil {
		return &ConfigError{Err: errors.New("suite is nil")}
	}

	var errs *multierror.Error
	if len(suite.Steps) == 0 {
		errs = multierror.Append(errs, errors.New("suite has no steps"))
	}

	for i, step := range suite.Steps {
		if step == nil {
			errs = multierror.Append(errs, fmt.Errorf("step %d: is nil", i+1))
			continue
		}
		for _, problem := range validateStep(step) {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", stepLabel(step), problem))
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return &ConfigError{File: suite.Path, Err: err}
	}
	return nil
}

func validateStep(step *Step) []error {
	var problems []error

	if step.err != nil {
		problems = append(problems, step.err)
	}

	if step.Request == nil {
		problems = append(problems, errors.New("missing request"))
	} else {
		switch {
		case step.Request.Method == "":
			problems = append(problems, errors.New("missing request method"))
		case !validMethods[step.Request.Method]:
			problems = append(problems, fmt.Errorf("unknown request method %q", step.Request.Method))
		}
		if step.Request.Path == "" {
			problems = append(problems, errors.New("missing request path"))
		}
		if step.Request.Timeout < 0 {
			problems = append(problems, errors.New("negative request timeout"))
		}
	}

	if step.Expect == nil || step.Expect.Status.IsZero() {
		problems = append(problems, errors.New("missing expected status"))
	} else {
		for _, code := range step.Expect.Status.Codes {
			if code < 100 || code > 599 {
				problems = append(problems, fmt.Errorf("status %d is outside 100-599", code))
			}
		}
	}

	seen := make(map[string]bool)
	for _, c := range step.Captures {
		switch {
		case c.Name == "":
			problems = append(problems, errors.New("capture without a name"))
		case seen[c.Name]:
			problems = append(problems, fmt.Errorf("duplicate capture %q", c.Name))
		}
		seen[c.Name] = true
		if c.Source == CaptureHeader && c.Path == "" {
			problems = append(problems, fmt.Errorf("capture %q has no header name", c.Name))
		}
	}

	for _, a := range step.Set {
		if a.Name == "" {
			problems = append(problems, errors.New("set entry without a name"))
		}
	}

	return problems
}
