package suites

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/core/runner"
	"github.com/abdul-hamid-achik/shopspec/packages/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, opts ...mock.Option) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(mock.NewServer(opts...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func assertAllPassed(t *testing.T, result *runner.SuiteResult) {
	t.Helper()
	for _, step := range result.Results {
		assert.True(t, step.Passed, "%s: %v", step.Name, step.Error)
	}
	assert.False(t, result.HasFailures())
	assert.Zero(t, result.Skipped)
}

func TestEmbeddedSuitesAreValid(t *testing.T) {
	names := Names()
	require.Contains(t, names, "categories")

	for _, name := range names {
		suite, err := Load(name)
		require.NoError(t, err, name)
		assert.NoError(t, parser.Validate(suite), name)
	}

	_, err := Load("missing")
	assert.ErrorContains(t, err, `unknown suite "missing"`)
}

func TestCategories_AgainstMock(t *testing.T) {
	ts := serve(t)
	suite, err := Categories()
	require.NoError(t, err)
	assert.Len(t, suite.Steps, 14)

	r := runner.NewRunner(&runner.Config{BaseURL: ts.URL})
	result, err := r.RunSuite(context.Background(), suite)
	require.NoError(t, err)
	assertAllPassed(t, result)
	assert.Equal(t, 14, result.Passed)
}

func TestCategories_SearchSendsQueryParameter(t *testing.T) {
	var searched []string
	handler := mock.NewServer().Handler()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/categories/search" {
			searched = append(searched, r.URL.RawQuery)
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	suite, err := Categories()
	require.NoError(t, err)
	result, err := runner.NewRunner(&runner.Config{BaseURL: ts.URL}).RunSuite(context.Background(), suite)
	require.NoError(t, err)
	assertAllPassed(t, result)

	assert.Equal(t, []string{"query=tools"}, searched)
}

func TestCategories_DeleteAnswering200(t *testing.T) {
	ts := serve(t, mock.WithDeleteStatus(200))
	suite, err := Categories()
	require.NoError(t, err)

	result, err := runner.NewRunner(&runner.Config{BaseURL: ts.URL}).RunSuite(context.Background(), suite)
	require.NoError(t, err)
	assertAllPassed(t, result)

	for _, step := range result.Results {
		if step.Name == "Delete category" {
			require.NotNil(t, step.Match)
			assert.True(t, step.Match.StatusDrift, "200 is accepted but is not the primary code")
		}
	}
}

func TestCategories_SmokeOnly(t *testing.T) {
	ts := serve(t)
	suite, err := Categories()
	require.NoError(t, err)

	r := runner.NewRunner(&runner.Config{BaseURL: ts.URL, TagsFilter: []string{"smoke"}})
	result, err := r.RunSuite(context.Background(), suite)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 12, result.Skipped)
}

func TestBrands_AgainstMock(t *testing.T) {
	ts := serve(t, mock.WithResource(mock.Brands()))

	result, err := runner.NewRunner(&runner.Config{}).RunSuite(context.Background(), Brands(ts.URL))
	require.NoError(t, err)
	assertAllPassed(t, result)
	assert.Equal(t, 6, result.Passed)
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "suites")

	written, err := Write(dir, false)
	require.NoError(t, err)
	require.Len(t, written, len(Names()))

	suite, err := parser.ParseFile(filepath.Join(dir, "categories.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Toolshop categories", suite.Name)

	// existing files are left alone unless asked
	require.NoError(t, os.WriteFile(written[0], []byte("name: edited\n"), 0o644))
	again, err := Write(dir, false)
	require.NoError(t, err)
	assert.Empty(t, again)
	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Equal(t, "name: edited\n", string(data))

	again, err = Write(dir, true)
	require.NoError(t, err)
	assert.Len(t, again, len(Names()))
}
