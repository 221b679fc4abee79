package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/assertions"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

type rawSuite struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	BaseURL     string         `yaml:"baseUrl"`
	Timeout     yaml.Node      `yaml:"timeout"`
	Variables   map[string]any `yaml:"variables"`
	Headers     yaml.Node      `yaml:"headers"`
	Steps       []rawStep      `yaml:"steps"`
}

type rawStep struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Tags        []string    `yaml:"tags"`
	Skip        string      `yaml:"skip"`
	Set         yaml.Node   `yaml:"set"`
	Request     *rawRequest `yaml:"request"`
	Expect      *rawExpect  `yaml:"expect"`
	Capture     yaml.Node   `yaml:"capture"`
}

type rawRequest struct {
	Method  string    `yaml:"method"`
	Path    string    `yaml:"path"`
	Query   yaml.Node `yaml:"query"`
	Headers yaml.Node `yaml:"headers"`
	Body    any       `yaml:"body"`
	Timeout yaml.Node `yaml:"timeout"`
}

type rawExpect struct {
	Status yaml.Node `yaml:"status"`
	Body   any       `yaml:"body"`
	Schema string    `yaml:"schema"`
}

// ParseFile reads and parses a suite file.
func ParseFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes a YAML suite. Unknown keys and malformed values are
// reported together as a *ConfigError.
func Parse(data []byte, path string) (*Suite, error) {
	var raw rawSuite
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{File: path, Err: err}
	}

	var lines struct {
		Steps []yaml.Node `yaml:"steps"`
	}
	_ = yaml.Unmarshal(data, &lines)

	var errs *multierror.Error
	suite := &Suite{
		Name:        raw.Name,
		Description: raw.Description,
		Path:        path,
		BaseURL:     raw.BaseURL,
		Variables:   raw.Variables,
	}
	if suite.Variables == nil {
		suite.Variables = make(map[string]any)
	}

	var err error
	if suite.Timeout, err = decodeTimeout(&raw.Timeout); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("timeout: %w", err))
	}
	if suite.Headers, err = decodeKeyValues(&raw.Headers); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("headers: %w", err))
	}

	for i := range raw.Steps {
		step, err := convertStep(i, &raw.Steps[i])
		if i < len(lines.Steps) {
			step.Line = lines.Steps[i].Line
		}
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", stepLabel(step), err))
		}
		suite.Steps = append(suite.Steps, step)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, &ConfigError{File: path, Err: err}
	}
	return suite, nil
}

func convertStep(index int, raw *rawStep) (*Step, error) {
	var errs *multierror.Error
	step := &Step{
		Index:       index,
		Name:        raw.Name,
		Description: raw.Description,
		Tags:        raw.Tags,
		Skip:        raw.Skip,
	}

	var err error
	if step.Set, err = decodeAssignments(&raw.Set); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("set: %w", err))
	}

	if raw.Request != nil {
		req := &RequestSpec{
			Method: strings.ToUpper(strings.TrimSpace(raw.Request.Method)),
			Path:   raw.Request.Path,
			Body:   raw.Request.Body,
		}
		if req.Query, err = decodeKeyValues(&raw.Request.Query); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("query: %w", err))
		}
		if req.Headers, err = decodeKeyValues(&raw.Request.Headers); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("headers: %w", err))
		}
		if req.Timeout, err = decodeTimeout(&raw.Request.Timeout); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("timeout: %w", err))
		}
		step.Request = req
	}

	if raw.Expect != nil {
		exp := &Expectation{Schema: raw.Expect.Schema}
		if exp.Status, err = decodeStatus(&raw.Expect.Status); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("expect status: %w", err))
		}
		if raw.Expect.Body != nil {
			if exp.Shape, err = assertions.FromValue(raw.Expect.Body); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("expect body: %w", err))
			}
		}
		step.Expect = exp
	}

	if step.Captures, err = decodeCaptures(&raw.Capture); err != nil {
		errs = multierror.Append(errs, err)
	}

	return step, errs.ErrorOrNil()
}

func decodeTimeout(node *yaml.Node) (time.Duration, error) {
	if node.Kind == 0 {
		return 0, nil
	}
	if node.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("line %d: expected a duration", node.Line)
	}
	if node.Tag == "!!int" {
		ms, err := strconv.Atoi(node.Value)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(node.Value)
	if err != nil {
		return 0, fmt.Errorf("line %d: %w", node.Line, err)
	}
	return d, nil
}

func decodeStatus(node *yaml.Node) (StatusSpec, error) {
	var spec StatusSpec
	switch node.Kind {
	case 0:
		return spec, nil
	case yaml.ScalarNode:
		if strings.Contains(node.Value, "{{") {
			spec.Ref = node.Value
			return spec, nil
		}
		code, err := strconv.Atoi(node.Value)
		if err != nil {
			return spec, fmt.Errorf("line %d: %q is not a status code", node.Line, node.Value)
		}
		spec.Codes = []int{code}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			code, err := strconv.Atoi(item.Value)
			if err != nil || item.Kind != yaml.ScalarNode {
				return spec, fmt.Errorf("line %d: %q is not a status code", item.Line, item.Value)
			}
			spec.Codes = append(spec.Codes, code)
		}
	default:
		return spec, fmt.Errorf("line %d: expected a status code or a list of codes", node.Line)
	}
	return spec, nil
}

func decodeKeyValues(node *yaml.Node) ([]*KeyValue, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	var kvs []*KeyValue
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: value of %q must be a scalar", value.Line, key.Value)
		}
		kvs = append(kvs, &KeyValue{Key: key.Value, Value: value.Value})
	}
	return kvs, nil
}

func decodeAssignments(node *yaml.Node) ([]*Assignment, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	var out []*Assignment
	for i := 0; i+1 < len(node.Content); i += 2 {
		var v any
		if err := node.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("%s: %w", node.Content[i].Value, err)
		}
		out = append(out, &Assignment{Name: node.Content[i].Value, Value: v})
	}
	return out, nil
}

func decodeCaptures(node *yaml.Node) ([]*Capture, error) {
	kvs, err := decodeKeyValues(node)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	var captures []*Capture
	for _, kv := range kvs {
		c, err := ParseCapture(kv.Key, kv.Value)
		if err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}
	return captures, nil
}

func stepLabel(s *Step) string {
	label := fmt.Sprintf("step %d", s.Index+1)
	if s.Name != "" {
		label += fmt.Sprintf(" %q", s.Name)
	}
	if s.Line > 0 {
		label += fmt.Sprintf(" (line %d)", s.Line)
	}
	return label
}
