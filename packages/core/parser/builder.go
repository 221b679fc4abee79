package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/assertions"
)

// NewSuite starts a suite assembled in Go.
func NewSuite(name, baseURL string) *Suite {
	return &Suite{
		Name:      name,
		BaseURL:   baseURL,
		Variables: make(map[string]any),
	}
}

// AddSteps appends steps and numbers them in declaration order.
func (s *Suite) AddSteps(steps ...*Step) *Suite {
	for _, step := range steps {
		step.Index = len(s.Steps)
		s.Steps = append(s.Steps, step)
	}
	return s
}

// NewStep creates a step sending method to path.
func NewStep(name, method, path string) *Step {
	return &Step{
		Name: name,
		Request: &RequestSpec{
			Method: strings.ToUpper(method),
			Path:   path,
		},
		Expect: &Expectation{},
	}
}

func (s *Step) WithTags(tags ...string) *Step {
	s.Tags = append(s.Tags, tags...)
	return s
}

// SetValue stores value under name before the request is built.
func (s *Step) SetValue(name string, value any) *Step {
	s.Set = append(s.Set, &Assignment{Name: name, Value: value})
	return s
}

func (s *Step) WithBody(body any) *Step {
	s.Request.Body = body
	return s
}

func (s *Step) WithHeader(key, value string) *Step {
	s.Request.Headers = append(s.Request.Headers, &KeyValue{Key: key, Value: value})
	return s
}

func (s *Step) WithQuery(key, value string) *Step {
	s.Request.Query = append(s.Request.Query, &KeyValue{Key: key, Value: value})
	return s
}

func (s *Step) WithTimeout(d time.Duration) *Step {
	s.Request.Timeout = d
	return s
}

// ExpectStatus accepts any of codes; the first is the primary one.
func (s *Step) ExpectStatus(codes ...int) *Step {
	s.Expect.Status = StatusSpec{Codes: codes}
	return s
}

// ExpectStatusRef reads the accepted status from a variable at run time.
func (s *Step) ExpectStatusRef(ref string) *Step {
	s.Expect.Status = StatusSpec{Ref: ref}
	return s
}

// ExpectShape sets the body template from a plain value (see
// assertions.FromValue). Conversion problems surface in Validate.
func (s *Step) ExpectShape(shape any) *Step {
	t, err := assertions.FromValue(shape)
	if err != nil {
		s.err = fmt.Errorf("expect body: %w", err)
		return s
	}
	s.Expect.Shape = t
	return s
}

// Capture records a capture expression (see ParseCapture).
func (s *Step) Capture(name, expr string) *Step {
	c, err := ParseCapture(name, expr)
	if err != nil {
		s.err = err
		return s
	}
	s.Captures = append(s.Captures, c)
	return s
}

// ExtractWith sets a Go extraction function run after the captures.
func (s *Step) ExtractWith(fn ExtractFunc) *Step {
	s.Extract = fn
	return s
}
