package assertions

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
		Duration:   100 * time.Millisecond,
	}
}

func mustTemplate(t *testing.T, v any) Template {
	t.Helper()
	tmpl, err := FromValue(v)
	require.NoError(t, err)
	return tmpl
}

type mapResolver map[string]any

func (r mapResolver) ResolveValue(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	if len(s) > 4 && s[:2] == "{{" && s[len(s)-2:] == "}}" {
		key := s[2 : len(s)-2]
		if val, ok := r[key]; ok {
			return val, nil
		}
		return nil, errors.New("unresolved " + key)
	}
	return s, nil
}

func shapeErrors(t *testing.T, errs []error) []*ShapeMismatchError {
	t.Helper()
	out := make([]*ShapeMismatchError, 0, len(errs))
	for _, err := range errs {
		var sm *ShapeMismatchError
		require.ErrorAs(t, err, &sm)
		out = append(out, sm)
	}
	return out
}

func TestFromValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Template
	}{
		{name: "literal string", input: "Tools", want: Literal{Value: "Tools"}},
		{name: "literal number", input: 3, want: Literal{Value: 3}},
		{name: "string placeholder", input: "{{$string}}", want: TypePlaceholder{Kind: KindString}},
		{name: "number placeholder", input: "{{ $number }}", want: TypePlaceholder{Kind: KindNumber}},
		{name: "any placeholder", input: "{{$any}}", want: TypePlaceholder{Kind: KindAny}},
		{name: "contains", input: "{{$contains already exists}}", want: Contains{Substring: "already exists"}},
		{name: "env lookup stays literal", input: "{{$HOME}}", want: Literal{Value: "{{$HOME}}"}},
		{name: "reference stays literal", input: "{{categoryName}}", want: Literal{Value: "{{categoryName}}"}},
		{
			name:  "single element list is a wildcard",
			input: []any{map[string]any{"id": "{{$number}}"}},
			want:  ListWildcard{Item: Object{Fields: map[string]Template{"id": TypePlaceholder{Kind: KindNumber}}}},
		},
		{
			name:  "multi element list matches per index",
			input: []any{1, "{{$string}}"},
			want:  List{Items: []Template{Literal{Value: 1}, TypePlaceholder{Kind: KindString}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromValue(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromValue_Pattern(t *testing.T) {
	tmpl, err := FromValue("{{$regexp ^[a-z-]+$}}")
	require.NoError(t, err)
	p, ok := tmpl.(*Pattern)
	require.True(t, ok)
	assert.Equal(t, "^[a-z-]+$", p.Expr)

	_, err = FromValue(map[string]any{"slug": "{{$regexp [}}"})
	assert.ErrorContains(t, err, "slug: invalid pattern")
}

func TestMatch_Status(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		result := Match(createResponse(201, `{"id": 1}`), Expected{Statuses: []int{201}}, nil)
		assert.True(t, result.Passed())
		assert.False(t, result.StatusDrift)
		assert.NoError(t, result.Err())
	})

	t.Run("mismatch reports both codes", func(t *testing.T) {
		result := Match(createResponse(400, `{"id": 1}`), Expected{
			Statuses: []int{201},
			Shape:    mustTemplate(t, map[string]any{"id": "{{$number}}"}),
		}, nil)

		require.Len(t, result.Errors, 1)
		var sm *StatusMismatchError
		require.ErrorAs(t, result.Err(), &sm)
		assert.Equal(t, []int{201}, sm.Expected)
		assert.Equal(t, 400, sm.Actual)
		assert.Contains(t, sm.Error(), "expected 201, got 400")
	})

	t.Run("secondary code is drift", func(t *testing.T) {
		result := Match(createResponse(200, ``), Expected{Statuses: []int{204, 200}}, nil)
		assert.True(t, result.Passed())
		assert.True(t, result.StatusDrift)
	})

	t.Run("multiple codes in message", func(t *testing.T) {
		err := &StatusMismatchError{Expected: []int{404, 405}, Actual: 200}
		assert.Equal(t, "status mismatch: expected one of 404, 405, got 200", err.Error())
	})
}

func TestMatch_Literal(t *testing.T) {
	resp := createResponse(200, `{"id": 7, "name": "Tools", "slug": "tools", "parent_id": null}`)

	result := Match(resp, Expected{
		Statuses: []int{200},
		Shape:    mustTemplate(t, map[string]any{"id": 7, "name": "Tools", "parent_id": nil}),
	}, nil)
	assert.True(t, result.Passed(), "%v", result.Err())

	result = Match(resp, Expected{
		Statuses: []int{200},
		Shape:    mustTemplate(t, map[string]any{"name": "Tool"}),
	}, nil)
	errs := shapeErrors(t, result.Errors)
	require.Len(t, errs, 1)
	assert.Equal(t, "$.name", errs[0].Path)
	assert.Equal(t, `shape mismatch at $.name: expected "Tool", got "Tools"`, errs[0].Error())
}

func TestMatch_LiteralDoesNotCoerceStrings(t *testing.T) {
	errs := MatchValue(mustTemplate(t, map[string]any{"id": 7}), map[string]any{"id": "7"}, nil)
	require.Len(t, errs, 1)
}

func TestMatch_TypePlaceholder(t *testing.T) {
	tests := []struct {
		kind   string
		actual any
		pass   bool
	}{
		{KindString, "Tools", true},
		{KindString, 3.0, false},
		{KindNumber, 3.0, true},
		{KindNumber, "3", false},
		{KindBoolean, false, true},
		{KindBoolean, "false", false},
		{KindNull, nil, true},
		{KindArray, []any{}, true},
		{KindObject, map[string]any{}, true},
		{KindObject, []any{}, false},
		{KindAny, nil, true},
	}

	for _, tt := range tests {
		errs := MatchValue(TypePlaceholder{Kind: tt.kind}, tt.actual, nil)
		assert.Equal(t, tt.pass, len(errs) == 0, "%s vs %#v", tt.kind, tt.actual)
	}
}

func TestMatch_ExtraFieldsIgnored(t *testing.T) {
	actual := map[string]any{"id": 1.0, "name": "Tools", "created_at": "2024-01-01", "sub_categories": []any{}}
	errs := MatchValue(mustTemplate(t, map[string]any{"name": "{{$string}}"}), actual, nil)
	assert.Empty(t, errs)
}

func TestMatch_MissingField(t *testing.T) {
	errs := shapeErrors(t, MatchValue(mustTemplate(t, map[string]any{"id": "{{$number}}"}), map[string]any{}, nil))
	require.Len(t, errs, 1)
	assert.Equal(t, "$.id", errs[0].Path)
	assert.Equal(t, "missing field", errs[0].Reason)
}

func TestMatch_Nested(t *testing.T) {
	tmpl := mustTemplate(t, map[string]any{
		"parent": map[string]any{"id": "{{$number}}", "name": "Hand Tools"},
	})
	actual := map[string]any{"parent": map[string]any{"id": "x", "name": "Power Tools"}}

	errs := shapeErrors(t, MatchValue(tmpl, actual, nil))
	require.Len(t, errs, 2)
	assert.Equal(t, "$.parent.id", errs[0].Path)
	assert.Equal(t, "$.parent.name", errs[1].Path)
}

func TestMatch_ListWildcard(t *testing.T) {
	tmpl := mustTemplate(t, []any{map[string]any{"id": "{{$number}}", "slug": "{{$string}}"}})

	ok := []any{
		map[string]any{"id": 1.0, "slug": "hand-tools"},
		map[string]any{"id": 2.0, "slug": "power-tools"},
	}
	assert.Empty(t, MatchValue(tmpl, ok, nil))
	assert.Empty(t, MatchValue(tmpl, []any{}, nil))

	bad := []any{
		map[string]any{"id": 1.0, "slug": "hand-tools"},
		map[string]any{"id": "2", "slug": "power-tools"},
	}
	errs := shapeErrors(t, MatchValue(tmpl, bad, nil))
	require.Len(t, errs, 1)
	assert.Equal(t, "$[1].id", errs[0].Path)

	errs = shapeErrors(t, MatchValue(tmpl, map[string]any{}, nil))
	require.Len(t, errs, 1)
	assert.Equal(t, "expected array, got object", errs[0].Reason)
}

func TestMatch_ListPerIndex(t *testing.T) {
	tmpl := mustTemplate(t, []any{"Tools", "{{$string}}"})

	assert.Empty(t, MatchValue(tmpl, []any{"Tools", "Drills", "extra"}, nil))

	errs := shapeErrors(t, MatchValue(tmpl, []any{"Tools"}, nil))
	require.Len(t, errs, 1)
	assert.Equal(t, "expected at least 2 elements, got 1", errs[0].Reason)

	errs = shapeErrors(t, MatchValue(tmpl, []any{"Drills", 3.0}, nil))
	require.Len(t, errs, 2)
	assert.Equal(t, "$[0]", errs[0].Path)
	assert.Equal(t, "$[1]", errs[1].Path)
}

func TestMatch_ContainsAndPattern(t *testing.T) {
	resp := createResponse(400, `{"message": "A category with this slug already exists."}`)

	result := Match(resp, Expected{
		Statuses: []int{400},
		Shape:    mustTemplate(t, map[string]any{"message": "{{$contains already exists}}"}),
	}, nil)
	assert.True(t, result.Passed(), "%v", result.Err())

	result = Match(resp, Expected{
		Statuses: []int{400},
		Shape:    mustTemplate(t, map[string]any{"message": "{{$regexp ^A category}}"}),
	}, nil)
	assert.True(t, result.Passed(), "%v", result.Err())

	errs := MatchValue(mustTemplate(t, "{{$regexp ^[a-z-]+$}}"), "Hand Tools", nil)
	assert.Len(t, errs, 1)
}

func TestMatch_ResolvesReferences(t *testing.T) {
	resolver := mapResolver{"categoryId": 12.0, "categoryName": "Drills"}
	tmpl := mustTemplate(t, map[string]any{"id": "{{categoryId}}", "name": "{{categoryName}}"})

	errs := MatchValue(tmpl, map[string]any{"id": 12.0, "name": "Drills"}, resolver)
	assert.Empty(t, errs)

	errs = MatchValue(mustTemplate(t, map[string]any{"id": "{{missing}}"}), map[string]any{"id": 1.0}, resolver)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "$.id: unresolved missing")
}

func TestMatch_NonJSONBody(t *testing.T) {
	resp := createResponse(200, `<html>oops</html>`)
	result := Match(resp, Expected{Statuses: []int{200}, Shape: TypePlaceholder{Kind: KindAny}}, nil)

	errs := shapeErrors(t, result.Errors)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Reason, "not JSON")
}

func TestMatch_Err_AggregatesAll(t *testing.T) {
	resp := createResponse(200, `{"id": "1", "name": 2}`)
	result := Match(resp, Expected{
		Statuses: []int{200},
		Shape:    mustTemplate(t, map[string]any{"id": "{{$number}}", "name": "{{$string}}"}),
	}, nil)

	err := result.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.Contains(t, err.Error(), "$.id")
	assert.Contains(t, err.Error(), "$.name")
}

func TestMatch_Schema(t *testing.T) {
	dir := t.TempDir()
	schema := `{
		"type": "object",
		"required": ["id", "name"],
		"properties": {"id": {"type": "integer"}, "name": {"type": "string"}}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "category.json"), []byte(schema), 0o644))

	ok := Match(createResponse(200, `{"id": 1, "name": "Tools"}`), Expected{
		Statuses:   []int{200},
		SchemaFile: "category.json",
		BaseDir:    dir,
	}, nil)
	assert.True(t, ok.Passed(), "%v", ok.Err())

	bad := Match(createResponse(200, `{"id": "one"}`), Expected{
		Statuses:   []int{200},
		SchemaFile: "category.json",
		BaseDir:    dir,
	}, nil)
	assert.False(t, bad.Passed())
	assert.Len(t, bad.Errors, 2)

	escaped := Match(createResponse(200, `{}`), Expected{
		Statuses:   []int{200},
		SchemaFile: "../../etc/passwd",
		BaseDir:    dir,
	}, nil)
	require.Len(t, escaped.Errors, 1)
	assert.Contains(t, escaped.Errors[0].Error(), "path traversal")
}

func TestRender(t *testing.T) {
	tmpl := mustTemplate(t, map[string]any{
		"id":   "{{$number}}",
		"name": "Tools",
		"subs": []any{map[string]any{"slug": "{{$contains tools}}"}},
	})

	assert.Equal(t, map[string]any{
		"id":   "{{$number}}",
		"name": "Tools",
		"subs": []any{map[string]any{"slug": "{{$contains tools}}"}},
	}, Render(tmpl))
}
