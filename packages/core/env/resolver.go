package env

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/shopspec/packages/builtin"
	"github.com/abdul-hamid-achik/shopspec/packages/core/store"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z0-9_]+)*$`)

// Resolver substitutes {{ }} references. Lookups try the suite's state
// store first, then variables (suite, environment, config, CLI).
type Resolver struct {
	state     *store.Store
	variables map[string]any
	funcs     *builtin.Registry
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRegistry replaces the built-in function registry.
func WithRegistry(reg *builtin.Registry) ResolverOption {
	return func(r *Resolver) {
		r.funcs = reg
	}
}

// NewResolver returns a Resolver over state. A nil state gets a fresh store.
func NewResolver(state *store.Store, opts ...ResolverOption) *Resolver {
	if state == nil {
		state = store.New()
	}
	r := &Resolver{
		state:     state,
		variables: make(map[string]any),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.funcs == nil {
		r.funcs = builtin.NewRegistry()
	}
	return r
}

func (r *Resolver) State() *store.Store {
	return r.state
}

func (r *Resolver) SetVariables(vars map[string]any) {
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name string, value any) {
	r.variables[name] = value
}

// Lookup returns the value for key. Dotted keys that are not stored
// verbatim walk into nested variable maps, so {{statuses.delete}} reads
// variables["statuses"]["delete"].
func (r *Resolver) Lookup(key string) (any, error) {
	if v, err := r.state.Get(key); err == nil {
		return v, nil
	}
	if v, ok := r.variables[key]; ok {
		return v, nil
	}
	if strings.Contains(key, ".") {
		if v, ok := walk(r.variables, strings.Split(key, ".")); ok {
			return v, nil
		}
	}
	return nil, &store.UnresolvedReferenceError{Key: key}
}

func walk(m map[string]any, parts []string) (any, bool) {
	v, ok := m[parts[0]]
	if !ok {
		return nil, false
	}
	if len(parts) == 1 {
		return v, true
	}
	switch next := v.(type) {
	case map[string]any:
		return walk(next, parts[1:])
	case map[string]string:
		if len(parts) == 2 {
			s, ok := next[parts[1]]
			return s, ok
		}
	}
	return nil, false
}

// Resolve replaces every reference in input with its string form.
func (r *Resolver) Resolve(input string) (string, error) {
	var firstErr error
	out := variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		if firstErr != nil {
			return match
		}
		v, err := r.evaluate(match[2 : len(match)-2])
		if err != nil {
			firstErr = err
			return match
		}
		return stringify(v)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// ResolveValue resolves references inside a decoded JSON value. A string
// made of a single reference keeps the referenced value's type, so a
// captured numeric id stays a number in the request body.
func (r *Resolver) ResolveValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		if expr, ok := singleReference(val); ok {
			return r.evaluate(expr)
		}
		return r.Resolve(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := r.ResolveValue(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			resolved, err := r.ResolveValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func singleReference(s string) (string, bool) {
	loc := variablePattern.FindStringSubmatchIndex(s)
	if loc == nil || loc[0] != 0 || loc[1] != len(s) {
		return "", false
	}
	return s[loc[2]:loc[3]], true
}

func (r *Resolver) evaluate(expr string) (any, error) {
	expr = strings.TrimSpace(expr)

	if strings.HasPrefix(expr, "$") {
		name := expr[1:]
		if val, ok := os.LookupEnv(name); ok {
			return val, nil
		}
		return nil, &store.UnresolvedReferenceError{Key: expr}
	}

	if name, args, ok := builtin.ParseCall(expr); ok {
		for i, arg := range args {
			v, err := r.argument(arg)
			if err != nil {
				return nil, fmt.Errorf("calling %s: %w", expr, err)
			}
			args[i] = v
		}
		v, err := r.funcs.Invoke(name, args)
		if err != nil {
			return nil, fmt.Errorf("calling %s: %w", expr, err)
		}
		return v, nil
	}

	return r.Lookup(expr)
}

// argument resolves one function argument. Quoted arguments are literal
// text and bare identifiers must name a known value. Other arguments, such
// as numbers, pass through unchanged.
func (r *Resolver) argument(arg string) (string, error) {
	if builtin.IsQuoted(arg) {
		return builtin.Unquote(arg), nil
	}
	if !identifierPattern.MatchString(arg) {
		return arg, nil
	}
	v, err := r.Lookup(arg)
	if err != nil {
		return "", err
	}
	return stringify(v), nil
}

// stringify formats v for substitution into text. Whole-number floats
// decoded from JSON print without an exponent.
func stringify(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
