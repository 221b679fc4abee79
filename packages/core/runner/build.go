package runner

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/shopspec/packages/core/env"
	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/http"
)

// BuildRequest turns a request spec into a concrete request. Every {{ }}
// reference in the path, query, headers and body is resolved; a key that
// has not been stored yet fails with *store.UnresolvedReferenceError.
// Suite headers are applied first so step headers override them.
func BuildRequest(spec *parser.RequestSpec, baseURL string, suiteHeaders []*parser.KeyValue, resolver *env.Resolver) (*http.Request, error) {
	path, err := resolver.Resolve(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}

	req := http.NewRequest(spec.Method, http.JoinURL(baseURL, path))
	req.Timeout = spec.Timeout

	for _, kv := range append(append([]*parser.KeyValue{}, suiteHeaders...), spec.Headers...) {
		value, err := resolver.Resolve(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", kv.Key, err)
		}
		req.SetHeader(kv.Key, value)
	}

	for _, kv := range spec.Query {
		value, err := resolver.Resolve(kv.Value)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", kv.Key, err)
		}
		req.SetQueryParam(kv.Key, value)
	}

	switch body := spec.Body.(type) {
	case nil:
	case string:
		resolved, err := resolver.Resolve(body)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		req.SetBody(resolved)
	default:
		resolved, err := resolver.ResolveValue(body)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		if err := req.SetJSONBody(resolved); err != nil {
			return nil, err
		}
	}

	return req, nil
}

// resolveStatus returns the accepted status codes of spec. A reference may
// resolve to a number, a list of numbers, or a string such as "204" or
// "204|200".
func resolveStatus(spec parser.StatusSpec, resolver *env.Resolver) ([]int, error) {
	if spec.Ref == "" {
		return spec.Codes, nil
	}

	v, err := resolver.ResolveValue(spec.Ref)
	if err != nil {
		return nil, fmt.Errorf("expected status: %w", err)
	}

	codes, err := toStatusCodes(v)
	if err == nil {
		err = checkStatusCodes(codes)
	}
	if err != nil {
		return nil, &parser.ConfigError{Err: fmt.Errorf("expected status %s: %w", spec.Ref, err)}
	}
	return codes, nil
}

func checkStatusCodes(codes []int) error {
	if len(codes) == 0 {
		return fmt.Errorf("empty status")
	}
	for _, code := range codes {
		if code < 100 || code > 599 {
			return fmt.Errorf("status %d is outside 100-599", code)
		}
	}
	return nil
}

func toStatusCodes(v any) ([]int, error) {
	switch val := v.(type) {
	case int:
		return []int{val}, nil
	case int64:
		return []int{int(val)}, nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("%v is not a whole status code", val)
		}
		return []int{int(val)}, nil
	case string:
		var codes []int
		for _, part := range strings.FieldsFunc(val, func(r rune) bool { return r == '|' || r == ',' || r == ' ' }) {
			code, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("%q is not a status code", part)
			}
			codes = append(codes, code)
		}
		if len(codes) == 0 {
			return nil, fmt.Errorf("empty status")
		}
		return codes, nil
	case []any:
		var codes []int
		for _, item := range val {
			c, err := toStatusCodes(item)
			if err != nil {
				return nil, err
			}
			codes = append(codes, c...)
		}
		return codes, nil
	default:
		return nil, fmt.Errorf("unsupported status value %v", v)
	}
}
