package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/shopspec/packages/assertions"
	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/core/runner"
	"github.com/abdul-hamid-achik/shopspec/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ runner.Reporter  = (*ConsoleReporter)(nil)
	_ runner.Reporter  = (*JSONReporter)(nil)
	_ runner.Flushable = (*JSONReporter)(nil)
	_ runner.Reporter  = (*JUnitReporter)(nil)
	_ runner.Flushable = (*JUnitReporter)(nil)
	_ runner.Reporter  = (*TAPReporter)(nil)
	_ runner.Flushable = (*TAPReporter)(nil)
)

func sampleSuite(t *testing.T) (*parser.Suite, *runner.SuiteResult) {
	t.Helper()
	create := parser.NewStep("create category", "POST", "/categories").
		ExpectStatus(201).
		ExpectShape(map[string]any{"id": "{{$number}}", "name": "Tools"})
	get := parser.NewStep("get category", "GET", "/categories/1").ExpectStatus(200)
	slow := parser.NewStep("slow search", "GET", "/categories/search").ExpectStatus(200)
	skip := parser.NewStep("tree", "GET", "/categories/tree").ExpectStatus(200)
	suite := parser.NewSuite("categories", "http://shop.test").AddSteps(create, get, slow, skip)
	suite.Path = "suites/categories.yaml"

	req := http.NewRequest("POST", "http://shop.test/categories")
	results := []*runner.StepResult{
		{
			Index:    0,
			Name:     "create category",
			Step:     create,
			Duration: 12 * time.Millisecond,
			Request:  req,
			Response: &http.Response{
				StatusCode: 201,
				Status:     "201 Created",
				Body:       []byte(`{"id": 1, "name": "Hammers", "slug": "hammers"}`),
				Duration:   10 * time.Millisecond,
			},
			Match:    &assertions.MatchResult{Status: 201, Expected: []int{201}},
			Captures: map[string]any{"categoryId": float64(1)},
			Error:    &assertions.ShapeMismatchError{Path: "$.name", Expected: "Tools", Actual: "Hammers"},
		},
		{
			Index:    1,
			Name:     "get category",
			Step:     get,
			Passed:   true,
			Duration: 3 * time.Millisecond,
			Response: &http.Response{StatusCode: 200, Status: "200 OK", Body: []byte(`{}`), Duration: 2 * time.Millisecond},
		},
		{
			Index:    2,
			Name:     "slow search",
			Step:     slow,
			Duration: 50 * time.Millisecond,
			Error:    &http.TimeoutError{Method: "GET", URL: "http://shop.test/categories/search", Timeout: 50 * time.Millisecond, Err: errors.New("deadline")},
		},
		{
			Index:      3,
			Name:       "tree",
			Step:       skip,
			Skipped:    true,
			SkipReason: "not deployed",
		},
	}

	return suite, &runner.SuiteResult{
		Suite:    suite,
		Name:     suite.Name,
		File:     suite.Path,
		Results:  results,
		Duration: 70 * time.Millisecond,
		Passed:   1,
		Failed:   2,
		Skipped:  1,
		Latency:  runner.LatencyStats{Count: 2, Min: 2 * time.Millisecond, Max: 10 * time.Millisecond, P50: 2 * time.Millisecond, P95: 10 * time.Millisecond, P99: 10 * time.Millisecond, Mean: 6 * time.Millisecond},
	}
}

func replay(r runner.Reporter, suite *parser.Suite, result *runner.SuiteResult) {
	r.SuiteStarted(suite)
	for _, step := range result.Results {
		r.StepFinished(step)
	}
	r.SuiteFinished(result)
}

func TestConsoleReporter(t *testing.T) {
	suite, result := sampleSuite(t)
	var buf bytes.Buffer
	r := NewConsoleReporter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))
	replay(r, suite, result)

	out := buf.String()
	assert.Contains(t, out, "Running: categories (suites/categories.yaml)")
	assert.Contains(t, out, "✗ create category (12ms) [shape_mismatch]")
	assert.Contains(t, out, `shape mismatch at $.name`)
	assert.Contains(t, out, "✓ get category")
	assert.Contains(t, out, "[timeout]")
	assert.Contains(t, out, "- tree (not deployed)")
	assert.Contains(t, out, "POST http://shop.test/categories")
	assert.Contains(t, out, "Body diff:")
	assert.Contains(t, out, `-  "name": "Tools"`)
	assert.Contains(t, out, `+  "name": "Hammers"`)
	assert.Contains(t, out, "categoryId = 1")
	assert.Contains(t, out, "Steps: 1 passed, 2 failed, 1 skipped, 4 total")
	assert.Contains(t, out, "Latency: p50 2ms")
}

func TestConsoleReporter_Quiet(t *testing.T) {
	suite, result := sampleSuite(t)
	var buf bytes.Buffer
	replay(NewConsoleReporter(WithWriter(&buf), WithNoColor(true)), suite, result)

	out := buf.String()
	assert.NotContains(t, out, "Body diff:")
	assert.NotContains(t, out, "Captures:")
}

func TestJSONReporter(t *testing.T) {
	suite, result := sampleSuite(t)
	var buf bytes.Buffer
	r := NewJSONReporter(JSONWithWriter(&buf))
	replay(r, suite, result)
	require.NoError(t, r.Flush(time.Second))

	var out JSONOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, JSONSummary{Total: 4, Passed: 1, Failed: 2, Skipped: 1}, out.Summary)
	assert.Equal(t, float64(1000), out.Duration)
	require.Len(t, out.Suites, 1)

	s := out.Suites[0]
	assert.Equal(t, "suites/categories.yaml", s.File)
	require.NotNil(t, s.Latency)
	assert.Equal(t, float64(2), s.Latency.P50)
	require.Len(t, s.Steps, 4)
	assert.Equal(t, "shape_mismatch", s.Steps[0].Outcome)
	assert.Equal(t, []string{`shape mismatch at $.name: expected "Tools", got "Hammers"`}, s.Steps[0].Errors)
	assert.Equal(t, 201, s.Steps[0].Response.StatusCode)
	assert.Equal(t, "passed", s.Steps[1].Outcome)
	assert.Equal(t, "timeout", s.Steps[2].Outcome)
	assert.Equal(t, "not deployed", s.Steps[3].SkipReason)
}

func TestJUnitReporter(t *testing.T) {
	suite, result := sampleSuite(t)
	var buf bytes.Buffer
	r := NewJUnitReporter(JUnitWithWriter(&buf))
	replay(r, suite, result)
	require.NoError(t, r.Flush(time.Second))

	require.True(t, strings.HasPrefix(buf.String(), `<?xml version="1.0" encoding="UTF-8"?>`))

	var out JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 4, out.Tests)
	assert.Equal(t, 1, out.Failures)
	assert.Equal(t, 1, out.Errors)
	assert.Equal(t, 1, out.Skipped)
	require.Len(t, out.TestSuites, 1)

	cases := out.TestSuites[0].TestCases
	require.Len(t, cases, 4)
	require.NotNil(t, cases[0].Failure)
	assert.Equal(t, "shape_mismatch", cases[0].Failure.Type)
	assert.Nil(t, cases[1].Failure)
	assert.Nil(t, cases[1].Error)
	require.NotNil(t, cases[2].Error)
	assert.Equal(t, "timeout", cases[2].Error.Type)
	require.NotNil(t, cases[3].Skipped)
	assert.Equal(t, "suites/categories.yaml", cases[0].ClassName)
}

func TestTAPReporter(t *testing.T) {
	suite, result := sampleSuite(t)
	var buf bytes.Buffer
	r := NewTAPReporter(TAPWithWriter(&buf))
	replay(r, suite, result)
	require.NoError(t, r.Flush(time.Second))

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "TAP version 13", lines[0])
	assert.Equal(t, "1..4", lines[1])
	assert.Equal(t, "not ok 1 - create category", lines[2])

	out := buf.String()
	assert.Contains(t, out, "  outcome: shape_mismatch\n  severity: fail\n")
	assert.Contains(t, out, "ok 2 - get category\n")
	assert.Contains(t, out, "not ok 3 - slow search\n")
	assert.Contains(t, out, "  severity: error\n")
	assert.Contains(t, out, "ok 4 - tree # SKIP not deployed\n")
	assert.Contains(t, out, "# time 1000ms")
}

func TestShapeDiff(t *testing.T) {
	tmpl, err := assertions.FromValue(map[string]any{
		"id":   "{{$number}}",
		"name": "Tools",
		"sub":  []any{map[string]any{"slug": "{{$string}}"}},
	})
	require.NoError(t, err)

	t.Run("only failing fields differ", func(t *testing.T) {
		diff := ShapeDiff(tmpl, []byte(`{"id": 3, "name": "Saws", "extra": true, "sub": [{"slug": "a", "x": 1}, {"slug": 2}]}`))
		assert.Contains(t, diff, "--- expected")
		assert.Contains(t, diff, "+++ actual")
		assert.Contains(t, diff, `-  "name": "Tools",`)
		assert.Contains(t, diff, `+  "name": "Saws",`)
		assert.Contains(t, diff, `+      "slug": 2`)
		assert.NotContains(t, diff, "extra")
		assert.NotContains(t, diff, `"id": 3`)
	})

	t.Run("matching body", func(t *testing.T) {
		assert.Empty(t, ShapeDiff(tmpl, []byte(`{"id": 3, "name": "Tools", "sub": []}`)))
	})

	t.Run("not json", func(t *testing.T) {
		assert.Empty(t, ShapeDiff(tmpl, []byte(`<html>`)))
		assert.Empty(t, ShapeDiff(nil, []byte(`{}`)))
	})
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain message", escapeYAML("plain message"))
	assert.Equal(t, `"a: \"b\""`, escapeYAML(`a: "b"`))
	assert.Equal(t, `"one:\ntwo"`, escapeYAML("one:\ntwo"))
}
