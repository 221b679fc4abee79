package assertions

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/shopspec/packages/http"
	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Resolver substitutes {{key}} references inside literal template values.
type Resolver interface {
	ResolveValue(v any) (any, error)
}

// Expected is what a response is matched against.
type Expected struct {
	// Statuses lists the accepted status codes. The first one is primary.
	Statuses []int
	Shape    Template
	// SchemaFile is a JSON Schema file, relative to BaseDir unless absolute.
	SchemaFile string
	BaseDir    string
}

// MatchResult holds the outcome of matching one response.
type MatchResult struct {
	Status   int
	Expected []int
	// StatusDrift is set when an accepted status other than the primary one
	// was observed.
	StatusDrift bool
	Errors      []error
}

func (r *MatchResult) Passed() bool {
	return len(r.Errors) == 0
}

// Err aggregates every failure, or returns nil when the response matched.
func (r *MatchResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	var errs *multierror.Error
	errs = multierror.Append(errs, r.Errors...)
	return errs.ErrorOrNil()
}

// Match checks the status code first. A status mismatch is final; otherwise
// the body is compared with the shape template and the optional schema.
func Match(resp *http.Response, exp Expected, resolve Resolver) *MatchResult {
	result := &MatchResult{Status: resp.StatusCode, Expected: exp.Statuses}

	if len(exp.Statuses) > 0 {
		if !slices.Contains(exp.Statuses, resp.StatusCode) {
			result.Errors = append(result.Errors, &StatusMismatchError{
				Expected: exp.Statuses,
				Actual:   resp.StatusCode,
			})
			return result
		}
		result.StatusDrift = resp.StatusCode != exp.Statuses[0]
	}

	if exp.Shape == nil && exp.SchemaFile == "" {
		return result
	}

	if !gjson.ValidBytes(resp.Body) {
		result.Errors = append(result.Errors, &ShapeMismatchError{
			Path:   "$",
			Reason: fmt.Sprintf("response body is not JSON: %s", truncate(resp.BodyString(), 80)),
		})
		return result
	}
	body := gjson.ParseBytes(resp.Body).Value()

	if exp.Shape != nil {
		m := &matcher{resolve: resolve}
		m.match("$", exp.Shape, body)
		result.Errors = append(result.Errors, m.errs...)
	}

	if exp.SchemaFile != "" {
		result.Errors = append(result.Errors, validateSchema(exp.SchemaFile, exp.BaseDir, resp.Body)...)
	}

	return result
}

// MatchValue compares a decoded JSON value against a template and returns
// one error per failing path.
func MatchValue(t Template, actual any, resolve Resolver) []error {
	m := &matcher{resolve: resolve}
	m.match("$", t, actual)
	return m.errs
}

type matcher struct {
	resolve Resolver
	errs    []error
}

func (m *matcher) fail(path string, expected, actual any, reason string) {
	m.errs = append(m.errs, &ShapeMismatchError{
		Path:     path,
		Expected: expected,
		Actual:   actual,
		Reason:   reason,
	})
}

func (m *matcher) match(path string, t Template, actual any) {
	switch tt := t.(type) {
	case Literal:
		m.matchLiteral(path, tt.Value, actual)

	case TypePlaceholder:
		if tt.Kind == KindAny {
			return
		}
		if kind := jsonKind(actual); kind != tt.Kind {
			m.fail(path, tt.Kind, actual, fmt.Sprintf("expected %s, got %s", tt.Kind, kind))
		}

	case Contains:
		s, ok := actual.(string)
		if !ok {
			m.fail(path, tt.Substring, actual, fmt.Sprintf("expected string containing %q, got %s", tt.Substring, jsonKind(actual)))
			return
		}
		if !strings.Contains(s, tt.Substring) {
			m.fail(path, tt.Substring, actual, fmt.Sprintf("expected %q to contain %q", s, tt.Substring))
		}

	case *Pattern:
		m.matchPattern(path, tt, actual)

	case Object:
		obj, ok := actual.(map[string]any)
		if !ok {
			m.fail(path, KindObject, actual, fmt.Sprintf("expected object, got %s", jsonKind(actual)))
			return
		}
		keys := make([]string, 0, len(tt.Fields))
		for k := range tt.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fieldPath := path + "." + k
			v, present := obj[k]
			if !present {
				m.fail(fieldPath, Render(tt.Fields[k]), nil, "missing field")
				continue
			}
			m.match(fieldPath, tt.Fields[k], v)
		}

	case List:
		arr, ok := actual.([]any)
		if !ok {
			m.fail(path, KindArray, actual, fmt.Sprintf("expected array, got %s", jsonKind(actual)))
			return
		}
		if len(arr) < len(tt.Items) {
			m.fail(path, len(tt.Items), len(arr), fmt.Sprintf("expected at least %d elements, got %d", len(tt.Items), len(arr)))
			return
		}
		for i, item := range tt.Items {
			m.match(fmt.Sprintf("%s[%d]", path, i), item, arr[i])
		}

	case ListWildcard:
		arr, ok := actual.([]any)
		if !ok {
			m.fail(path, KindArray, actual, fmt.Sprintf("expected array, got %s", jsonKind(actual)))
			return
		}
		for i, v := range arr {
			m.match(fmt.Sprintf("%s[%d]", path, i), tt.Item, v)
		}

	case nil:
		return

	default:
		m.fail(path, nil, actual, fmt.Sprintf("unsupported template %T", t))
	}
}

func (m *matcher) matchLiteral(path string, expected, actual any) {
	if s, ok := expected.(string); ok && m.resolve != nil && strings.Contains(s, "{{") {
		resolved, err := m.resolve.ResolveValue(s)
		if err != nil {
			m.errs = append(m.errs, fmt.Errorf("%s: %w", path, err))
			return
		}
		expected = resolved
	}
	if !equal(expected, actual) {
		m.fail(path, expected, actual, "")
	}
}

func (m *matcher) matchPattern(path string, p *Pattern, actual any) {
	re := p.re
	if re == nil {
		var err error
		if re, err = regexp.Compile(p.Expr); err != nil {
			m.fail(path, p.Expr, actual, fmt.Sprintf("invalid pattern: %v", err))
			return
		}
	}
	var s string
	switch v := actual.(type) {
	case string:
		s = v
	case float64, bool:
		s = fmt.Sprintf("%v", v)
	default:
		m.fail(path, p.Expr, actual, fmt.Sprintf("expected value matching %q, got %s", p.Expr, jsonKind(actual)))
		return
	}
	if !re.MatchString(s) {
		m.fail(path, p.Expr, actual, fmt.Sprintf("expected %q to match %q", s, p.Expr))
	}
}

// equal compares numbers numerically and everything else strictly.
func equal(expected, actual any) bool {
	ef, eok := toFloat64(expected)
	af, aok := toFloat64(actual)
	if eok && aok {
		return ef == af
	}
	if eok != aok {
		return false
	}
	return reflect.DeepEqual(expected, actual)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func validateSchema(schemaFile, baseDir string, body []byte) []error {
	schemaPath := schemaFile
	if !filepath.IsAbs(schemaPath) && baseDir != "" {
		schemaPath = filepath.Join(baseDir, schemaPath)
	}
	if err := validatePathWithinBase(schemaPath, baseDir); err != nil {
		return []error{err}
	}

	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		return []error{fmt.Errorf("failed to read schema file: %w", err)}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaData),
		gojsonschema.NewBytesLoader(body),
	)
	if err != nil {
		return []error{fmt.Errorf("schema validation error: %w", err)}
	}

	var errs []error
	for _, desc := range result.Errors() {
		path := "$"
		if field := desc.Field(); field != "" && field != "(root)" {
			path += "." + field
		}
		errs = append(errs, &ShapeMismatchError{
			Path:   path,
			Actual: desc.Value(),
			Reason: desc.Description(),
		})
	}
	return errs
}

// validatePathWithinBase rejects schema paths that escape the suite directory.
func validatePathWithinBase(path, baseDir string) error {
	if baseDir == "" {
		return nil
	}

	cleanBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}
	cleanPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	if !strings.HasPrefix(cleanPath, cleanBase+string(filepath.Separator)) && cleanPath != cleanBase {
		return fmt.Errorf("path traversal detected: %s is outside allowed directory %s", path, baseDir)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
