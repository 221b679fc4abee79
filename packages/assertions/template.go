package assertions

import (
	"fmt"
	"regexp"
	"strings"
)

// Template is a node of a shape template.
type Template interface {
	template()
}

// Literal matches a value exactly. String literals may contain {{key}}
// references that are resolved before comparison.
type Literal struct {
	Value any
}

// TypePlaceholder matches any value of Kind: string, number, boolean,
// array, object, null or any.
type TypePlaceholder struct {
	Kind string
}

// Contains matches a string containing Substring.
type Contains struct {
	Substring string
}

// Pattern matches a string against a regular expression.
type Pattern struct {
	Expr string
	re   *regexp.Regexp
}

// Object matches the listed fields of a JSON object.
type Object struct {
	Fields map[string]Template
}

// List matches an array element by element. The actual array may be longer.
type List struct {
	Items []Template
}

// ListWildcard matches an array whose every element matches Item.
type ListWildcard struct {
	Item Template
}

func (Literal) template()         {}
func (TypePlaceholder) template() {}
func (Contains) template()        {}
func (*Pattern) template()        {}
func (Object) template()          {}
func (List) template()            {}
func (ListWildcard) template()    {}

// Kinds accepted by TypePlaceholder.
const (
	KindString  = "string"
	KindNumber  = "number"
	KindBoolean = "boolean"
	KindArray   = "array"
	KindObject  = "object"
	KindNull    = "null"
	KindAny     = "any"
)

var validKinds = map[string]bool{
	KindString:  true,
	KindNumber:  true,
	KindBoolean: true,
	KindArray:   true,
	KindObject:  true,
	KindNull:    true,
	KindAny:     true,
}

var placeholderPattern = regexp.MustCompile(`^\{\{\s*\$([a-zA-Z]+)(?:\s+((?s).*?))?\s*\}\}$`)

// NewPattern compiles expr into a Pattern template.
func NewPattern(expr string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return &Pattern{Expr: expr, re: re}, nil
}

// FromValue converts a decoded YAML or JSON value into a template. Maps
// become objects, a one-element list becomes a list wildcard and other
// lists match per index. Strings of the form {{$kind}}, {{$contains text}}
// and {{$regexp expr}} become placeholders.
func FromValue(v any) (Template, error) {
	switch val := v.(type) {
	case Template:
		return val, nil
	case string:
		return fromString(val)
	case map[string]any:
		fields := make(map[string]Template, len(val))
		for k, item := range val {
			t, err := FromValue(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = t
		}
		return Object{Fields: fields}, nil
	case []any:
		items := make([]Template, len(val))
		for i, item := range val {
			t, err := FromValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = t
		}
		if len(items) == 1 {
			return ListWildcard{Item: items[0]}, nil
		}
		return List{Items: items}, nil
	default:
		return Literal{Value: v}, nil
	}
}

func fromString(s string) (Template, error) {
	m := placeholderPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Literal{Value: s}, nil
	}
	name, arg := m[1], m[2]
	switch name {
	case "contains":
		return Contains{Substring: arg}, nil
	case "regexp":
		p, err := NewPattern(arg)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	if validKinds[name] && arg == "" {
		return TypePlaceholder{Kind: name}, nil
	}
	// {{$NAME}} environment lookups stay literal and resolve at match time.
	return Literal{Value: s}, nil
}

// Render converts a template back into a plain value, with placeholders in
// their {{$...}} form. Used for display and diffs.
func Render(t Template) any {
	switch tt := t.(type) {
	case nil:
		return nil
	case Literal:
		return tt.Value
	case TypePlaceholder:
		return "{{$" + tt.Kind + "}}"
	case Contains:
		return "{{$contains " + tt.Substring + "}}"
	case *Pattern:
		return "{{$regexp " + tt.Expr + "}}"
	case Object:
		out := make(map[string]any, len(tt.Fields))
		for k, f := range tt.Fields {
			out[k] = Render(f)
		}
		return out
	case List:
		out := make([]any, len(tt.Items))
		for i, item := range tt.Items {
			out[i] = Render(item)
		}
		return out
	case ListWildcard:
		return []any{Render(tt.Item)}
	default:
		return fmt.Sprintf("%v", t)
	}
}

// jsonKind names the JSON type of a decoded value.
func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBoolean
	case float64, float32, int, int64, int32, uint, uint64:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return fmt.Sprintf("%T", v)
	}
}
