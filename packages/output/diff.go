package output

import (
	"encoding/json"

	"github.com/abdul-hamid-achik/shopspec/packages/assertions"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/tidwall/gjson"
)

// ShapeDiff renders a unified diff between an expected body template and
// the actual body, restricted to the fields the template names. It returns
// "" when the body is not JSON or the two sides print identically.
func ShapeDiff(t assertions.Template, body []byte) string {
	if t == nil || !gjson.ValidBytes(body) {
		return ""
	}
	actual := gjson.ParseBytes(body).Value()

	expected, err := json.MarshalIndent(expand(t, actual), "", "  ")
	if err != nil {
		return ""
	}
	got, err := json.MarshalIndent(project(t, actual), "", "  ")
	if err != nil {
		return ""
	}
	if string(expected) == string(got) {
		return ""
	}

	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(expected) + "\n"),
		B:        difflib.SplitLines(string(got) + "\n"),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	return diff
}

// expand renders t, repeating a wildcard list item once per actual element.
func expand(t assertions.Template, actual any) any {
	switch tt := t.(type) {
	case assertions.Object:
		m, _ := actual.(map[string]any)
		out := make(map[string]any, len(tt.Fields))
		for k, f := range tt.Fields {
			out[k] = expand(f, m[k])
		}
		return out
	case assertions.ListWildcard:
		items, ok := actual.([]any)
		if !ok {
			return assertions.Render(t)
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = expand(tt.Item, item)
		}
		return out
	case assertions.List:
		items, _ := actual.([]any)
		out := make([]any, len(tt.Items))
		for i, item := range tt.Items {
			var a any
			if i < len(items) {
				a = items[i]
			}
			out[i] = expand(item, a)
		}
		return out
	default:
		return assertions.Render(t)
	}
}

// project drops the parts of actual that t does not mention. Leaves that
// satisfy their template print as the template so only failures differ.
func project(t assertions.Template, actual any) any {
	switch tt := t.(type) {
	case assertions.Object:
		m, ok := actual.(map[string]any)
		if !ok {
			return actual
		}
		out := make(map[string]any, len(tt.Fields))
		for k, f := range tt.Fields {
			if v, ok := m[k]; ok {
				out[k] = project(f, v)
			}
		}
		return out
	case assertions.ListWildcard:
		items, ok := actual.([]any)
		if !ok {
			return actual
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = project(tt.Item, item)
		}
		return out
	case assertions.List:
		items, ok := actual.([]any)
		if !ok {
			return actual
		}
		out := make([]any, len(items))
		for i, item := range items {
			if i < len(tt.Items) {
				out[i] = project(tt.Items[i], item)
			} else {
				out[i] = item
			}
		}
		return out
	default:
		if len(assertions.MatchValue(t, actual, nil)) == 0 {
			return assertions.Render(t)
		}
		return actual
	}
}
