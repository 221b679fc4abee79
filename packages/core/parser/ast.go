package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/assertions"
	"github.com/abdul-hamid-achik/shopspec/packages/http"
)

type Suite struct {
	Name        string
	Description string
	Path        string
	BaseURL     string
	Timeout     time.Duration
	Variables   map[string]any
	Headers     []*KeyValue
	Steps       []*Step
}

type Step struct {
	Index       int
	Name        string
	Description string
	Tags        []string
	Skip        string
	Set         []*Assignment
	Request     *RequestSpec
	Expect      *Expectation
	Captures    []*Capture
	Extract     ExtractFunc
	Line        int

	// err holds a problem recorded by the builder API, reported by Validate.
	err error
}

// ExtractFunc maps a response to values written into the state store.
type ExtractFunc func(*http.Response) (map[string]any, error)

// Assignment stores a value before the step's request is built. String
// values may reference earlier assignments and call builtin functions.
type Assignment struct {
	Name  string
	Value any
}

type RequestSpec struct {
	Method  string
	Path    string
	Query   []*KeyValue
	Headers []*KeyValue
	Body    any
	Timeout time.Duration
}

type KeyValue struct {
	Key   string
	Value string
}

type Expectation struct {
	Status StatusSpec
	Shape  assertions.Template
	Schema string
}

// StatusSpec lists the accepted status codes, or names a variable holding
// them. The first code is the primary one; observing another accepted code
// is reported as drift.
type StatusSpec struct {
	Codes []int
	Ref   string
}

func (s StatusSpec) IsZero() bool {
	return len(s.Codes) == 0 && s.Ref == ""
}

func (s StatusSpec) String() string {
	if s.Ref != "" {
		return s.Ref
	}
	codes := make([]string, len(s.Codes))
	for i, c := range s.Codes {
		codes[i] = fmt.Sprintf("%d", c)
	}
	return strings.Join(codes, "|")
}

type Capture struct {
	Name   string
	Source CaptureSource
	Path   string
}

type CaptureSource int

const (
	CaptureBody CaptureSource = iota
	CaptureHeader
	CaptureStatus
)

func (s CaptureSource) String() string {
	switch s {
	case CaptureBody:
		return "body"
	case CaptureHeader:
		return "header"
	case CaptureStatus:
		return "status"
	default:
		return "unknown"
	}
}

// ParseCapture reads a capture expression:
//
//	body            whole body
//	body.data.id    gjson path into the body
//	$.data[0].id    JSONPath into the body
//	header Location response header
//	status          status code
//
// Anything else is treated as a gjson path into the body.
func ParseCapture(name, expr string) (*Capture, error) {
	expr = strings.TrimSpace(expr)
	c := &Capture{Name: name}

	switch {
	case expr == "":
		return nil, fmt.Errorf("capture %q has no path", name)
	case expr == "status":
		c.Source = CaptureStatus
	case strings.HasPrefix(expr, "header ") || strings.HasPrefix(expr, "header."):
		c.Source = CaptureHeader
		c.Path = strings.TrimSpace(expr[len("header "):])
		if c.Path == "" {
			return nil, fmt.Errorf("capture %q has no header name", name)
		}
	case expr == "body":
		c.Source = CaptureBody
	case strings.HasPrefix(expr, "body.") || strings.HasPrefix(expr, "body["):
		c.Source = CaptureBody
		c.Path = strings.TrimPrefix(expr[len("body"):], ".")
	default:
		c.Source = CaptureBody
		c.Path = expr
	}
	return c, nil
}

// DisplayName returns the step name, or its position when unnamed.
func (s *Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step %d", s.Index+1)
}

func (s *Step) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
