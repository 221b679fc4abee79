package parser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/assertions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const categoriesSuite = `
name: Categories
baseUrl: "{{baseUrl}}"
timeout: 30s
variables:
  deleteStatus: 204
headers:
  Accept: application/json
steps:
  - name: Create category
    tags: [smoke, write]
    set:
      categoryName: "{{fake('department')}}"
      categorySlug: "{{slug(categoryName)}}"
    request:
      method: post
      path: /categories
      body:
        name: "{{categoryName}}"
        slug: "{{categorySlug}}"
    expect:
      status: 201
      body:
        id: "{{$number}}"
    capture:
      categoryId: body.id
      location: header Location

  - name: Search categories
    request:
      method: GET
      path: /categories/search
      query:
        query: "{{categoryName}}"
      timeout: 500
    expect:
      status: 200
      body:
        - id: "{{$number}}"

  - name: Delete category
    request:
      method: DELETE
      path: /categories/{{categoryId}}
    expect:
      status: "{{deleteStatus}}"

  - name: Get deleted category
    request:
      method: GET
      path: /categories/{{categoryId}}
    expect:
      status: [404, 405]
`

func TestParse_Suite(t *testing.T) {
	suite, err := Parse([]byte(categoriesSuite), "categories.yaml")
	require.NoError(t, err)

	assert.Equal(t, "Categories", suite.Name)
	assert.Equal(t, "categories.yaml", suite.Path)
	assert.Equal(t, "{{baseUrl}}", suite.BaseURL)
	assert.Equal(t, 30*time.Second, suite.Timeout)
	assert.Equal(t, 204, suite.Variables["deleteStatus"])
	assert.Equal(t, []*KeyValue{{Key: "Accept", Value: "application/json"}}, suite.Headers)
	require.Len(t, suite.Steps, 4)

	create := suite.Steps[0]
	assert.Equal(t, 0, create.Index)
	assert.Equal(t, []string{"smoke", "write"}, create.Tags)
	assert.True(t, create.HasTag("write"))
	assert.Greater(t, create.Line, 0)
	require.Len(t, create.Set, 2)
	assert.Equal(t, "categoryName", create.Set[0].Name)
	assert.Equal(t, "categorySlug", create.Set[1].Name)
	assert.Equal(t, "POST", create.Request.Method)
	assert.Equal(t, map[string]any{"name": "{{categoryName}}", "slug": "{{categorySlug}}"}, create.Request.Body)
	assert.Equal(t, StatusSpec{Codes: []int{201}}, create.Expect.Status)
	assert.Equal(t, assertions.Object{Fields: map[string]assertions.Template{
		"id": assertions.TypePlaceholder{Kind: assertions.KindNumber},
	}}, create.Expect.Shape)
	assert.Equal(t, []*Capture{
		{Name: "categoryId", Source: CaptureBody, Path: "id"},
		{Name: "location", Source: CaptureHeader, Path: "Location"},
	}, create.Captures)

	search := suite.Steps[1]
	assert.Equal(t, []*KeyValue{{Key: "query", Value: "{{categoryName}}"}}, search.Request.Query)
	assert.Equal(t, 500*time.Millisecond, search.Request.Timeout)
	assert.IsType(t, assertions.ListWildcard{}, search.Expect.Shape)

	assert.Equal(t, StatusSpec{Ref: "{{deleteStatus}}"}, suite.Steps[2].Expect.Status)
	assert.Equal(t, StatusSpec{Codes: []int{404, 405}}, suite.Steps[3].Expect.Status)

	assert.NoError(t, Validate(suite))
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte(`
name: typo
steps:
  - name: Create
    requets:
      method: GET
`), "typo.yaml")

	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "requets")
}

func TestParse_BadValues(t *testing.T) {
	_, err := Parse([]byte(`
name: bad
steps:
  - name: Bad status
    request: { method: GET, path: /categories }
    expect:
      status: ok
  - name: Bad timeout
    request: { method: GET, path: /categories, timeout: soon }
    expect: { status: 200 }
  - name: Bad pattern
    request: { method: GET, path: /categories }
    expect:
      status: 200
      body: { slug: "{{$regexp [}}" }
`), "bad.yaml")

	require.Error(t, err)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "bad.yaml", ce.File)
	msg := err.Error()
	assert.Contains(t, msg, `step 1 "Bad status"`)
	assert.Contains(t, msg, `"ok" is not a status code`)
	assert.Contains(t, msg, `step 2 "Bad timeout"`)
	assert.Contains(t, msg, `step 3 "Bad pattern"`)
	assert.Contains(t, msg, "invalid pattern")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(categoriesSuite), 0o644))

	suite, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, suite.Path)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read suite")
}

func TestParseCapture(t *testing.T) {
	tests := []struct {
		expr    string
		source  CaptureSource
		path    string
		wantErr bool
	}{
		{expr: "body.id", source: CaptureBody, path: "id"},
		{expr: "body.data.0.id", source: CaptureBody, path: "data.0.id"},
		{expr: "body[0].id", source: CaptureBody, path: "[0].id"},
		{expr: "body", source: CaptureBody, path: ""},
		{expr: "$.data[0].id", source: CaptureBody, path: "$.data[0].id"},
		{expr: "id", source: CaptureBody, path: "id"},
		{expr: "header Location", source: CaptureHeader, path: "Location"},
		{expr: "header.X-Request-Id", source: CaptureHeader, path: "X-Request-Id"},
		{expr: "status", source: CaptureStatus},
		{expr: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := ParseCapture("v", tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.source, c.Source)
			assert.Equal(t, tt.path, c.Path)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		step    *Step
		wantErr string
	}{
		{
			name: "valid",
			step: NewStep("Get", "GET", "/categories").ExpectStatus(200),
		},
		{
			name:    "missing request",
			step:    &Step{Name: "Broken", Expect: &Expectation{Status: StatusSpec{Codes: []int{200}}}},
			wantErr: "missing request",
		},
		{
			name:    "unknown method",
			step:    NewStep("Fetch", "FETCH", "/categories").ExpectStatus(200),
			wantErr: `unknown request method "FETCH"`,
		},
		{
			name:    "empty path",
			step:    NewStep("Get", "GET", "").ExpectStatus(200),
			wantErr: "missing request path",
		},
		{
			name:    "missing status",
			step:    NewStep("Get", "GET", "/categories"),
			wantErr: "missing expected status",
		},
		{
			name:    "status out of range",
			step:    NewStep("Get", "GET", "/categories").ExpectStatus(200, 999),
			wantErr: "status 999 is outside 100-599",
		},
		{
			name:    "duplicate capture",
			step:    NewStep("Get", "GET", "/categories").ExpectStatus(200).Capture("id", "body.id").Capture("id", "body.0.id"),
			wantErr: `duplicate capture "id"`,
		},
		{
			name:    "bad shape from builder",
			step:    NewStep("Get", "GET", "/categories").ExpectStatus(200).ExpectShape(map[string]any{"slug": "{{$regexp (}}"}),
			wantErr: "expect body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suite := NewSuite("validate", "http://localhost").AddSteps(tt.step)
			err := Validate(suite)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsConfigError(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsEveryStep(t *testing.T) {
	suite := NewSuite("many", "").AddSteps(
		NewStep("a", "GET", "").ExpectStatus(200),
		NewStep("b", "GET", "/ok").ExpectStatus(200),
		NewStep("c", "NOPE", "/x"),
	)

	err := Validate(suite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `step 1 "a": missing request path`)
	assert.Contains(t, err.Error(), `step 3 "c": unknown request method "NOPE"`)
	assert.Contains(t, err.Error(), `step 3 "c": missing expected status`)
	assert.NotContains(t, err.Error(), `step 2`)
}

func TestValidate_EmptySuite(t *testing.T) {
	err := Validate(NewSuite("empty", ""))
	assert.ErrorContains(t, err, "suite has no steps")
	assert.Error(t, Validate(nil))
}

func TestSuiteBuilder(t *testing.T) {
	suite := NewSuite("built", "http://localhost:3000").AddSteps(
		NewStep("Create", "post", "/categories").
			SetValue("name", "Tools").
			WithHeader("X-Trace", "1").
			WithQuery("dry", "false").
			WithBody(map[string]any{"name": "{{name}}"}).
			WithTimeout(time.Second).
			WithTags("smoke").
			ExpectStatus(201).
			ExpectShape(map[string]any{"id": "{{$number}}"}).
			Capture("categoryId", "body.id"),
		NewStep("Delete", "DELETE", "/categories/{{categoryId}}").ExpectStatusRef("{{deleteStatus}}"),
	)

	require.NoError(t, Validate(suite))
	assert.Equal(t, 1, suite.Steps[1].Index)
	create := suite.Steps[0]
	assert.Equal(t, "POST", create.Request.Method)
	assert.Equal(t, time.Second, create.Request.Timeout)
	assert.Equal(t, "201", create.Expect.Status.String())
	assert.Equal(t, "{{deleteStatus}}", suite.Steps[1].Expect.Status.String())
	assert.Equal(t, "Create", create.DisplayName())
	assert.Equal(t, "step 2", (&Step{Index: 1}).DisplayName())
}
