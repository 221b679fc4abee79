package mock

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func send(t *testing.T, method, url string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func decodeList(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestServer_CategoryLifecycle(t *testing.T) {
	_, ts := newTestServer(t)
	base := ts.URL + "/categories"

	status, body := send(t, http.MethodPost, base, map[string]any{"name": "Tools", "slug": "tools"})
	require.Equal(t, http.StatusCreated, status)
	created := decode(t, body)
	assert.Equal(t, float64(1), created["id"])
	assert.Equal(t, "Tools", created["name"])
	assert.Nil(t, created["parent_id"])

	status, body = send(t, http.MethodGet, base+"/1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "tools", decode(t, body)["slug"])

	status, body = send(t, http.MethodPut, base+"/1", map[string]any{"name": "Hand Tools", "slug": "hand-tools"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Hand Tools", decode(t, body)["name"])

	status, body = send(t, http.MethodPatch, base+"/1", map[string]any{"name": "Tools"})
	require.Equal(t, http.StatusOK, status)
	patched := decode(t, body)
	assert.Equal(t, "Tools", patched["name"])
	assert.Equal(t, "hand-tools", patched["slug"])

	status, body = send(t, http.MethodDelete, base+"/1", nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, body)

	status, body = send(t, http.MethodGet, base+"/1", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Requested item not found", decode(t, body)["message"])

	status, _ = send(t, http.MethodDelete, base+"/1", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_DuplicateSlug(t *testing.T) {
	_, ts := newTestServer(t)
	base := ts.URL + "/categories"

	status, _ := send(t, http.MethodPost, base, map[string]any{"name": "Tools", "slug": "tools"})
	require.Equal(t, http.StatusCreated, status)

	status, body := send(t, http.MethodPost, base, map[string]any{"name": "Other", "slug": "tools"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, decode(t, body)["message"], "already exists")

	status, _ = send(t, http.MethodPost, base, map[string]any{"name": "Saws", "slug": "saws"})
	require.Equal(t, http.StatusCreated, status)

	// renaming onto a taken slug conflicts, keeping its own slug does not
	status, _ = send(t, http.MethodPatch, base+"/2", map[string]any{"slug": "tools"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = send(t, http.MethodPatch, base+"/2", map[string]any{"slug": "saws", "name": "Saw"})
	assert.Equal(t, http.StatusOK, status)
}

func TestServer_Validation(t *testing.T) {
	_, ts := newTestServer(t)
	base := ts.URL + "/categories"

	status, body := send(t, http.MethodPost, base, map[string]any{"name": "No slug"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, decode(t, body)["message"], "slug")

	req, err := http.NewRequest(http.MethodPost, base, strings.NewReader("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status, _ = send(t, http.MethodGet, base+"/abc", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t)

	status, _ := send(t, http.MethodDelete, ts.URL+"/categories", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestServer_SearchAndList(t *testing.T) {
	_, ts := newTestServer(t)
	base := ts.URL + "/categories"

	for _, c := range []map[string]any{
		{"name": "Hand Tools", "slug": "hand-tools"},
		{"name": "Power Tools", "slug": "power-tools"},
		{"name": "Other", "slug": "other"},
	} {
		status, _ := send(t, http.MethodPost, base, c)
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := send(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeList(t, body), 3)

	status, body = send(t, http.MethodGet, base+"/search?query=tools", nil)
	require.Equal(t, http.StatusOK, status)
	found := decodeList(t, body)
	require.Len(t, found, 2)
	assert.Equal(t, "Hand Tools", found[0]["name"])

	status, body = send(t, http.MethodGet, base+"/search?query=POWER", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeList(t, body), 1)

	status, body = send(t, http.MethodGet, base+"/search?query=nothing", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(body))
}

func TestServer_Tree(t *testing.T) {
	_, ts := newTestServer(t)
	base := ts.URL + "/categories"

	send(t, http.MethodPost, base, map[string]any{"name": "Tools", "slug": "tools"})
	send(t, http.MethodPost, base, map[string]any{"name": "Saws", "slug": "saws", "parent_id": 1})
	send(t, http.MethodPost, base, map[string]any{"name": "Hand Saws", "slug": "hand-saws", "parent_id": 2})
	send(t, http.MethodPost, base, map[string]any{"name": "Other", "slug": "other"})

	status, body := send(t, http.MethodGet, base+"/tree", nil)
	require.Equal(t, http.StatusOK, status)
	roots := decodeList(t, body)
	require.Len(t, roots, 2)
	assert.Equal(t, "Tools", roots[0]["name"])

	children := roots[0]["sub_categories"].([]any)
	require.Len(t, children, 1)
	saws := children[0].(map[string]any)
	assert.Equal(t, "Saws", saws["name"])
	assert.Len(t, saws["sub_categories"], 1)

	status, body = send(t, http.MethodGet, base+"/tree/2", nil)
	require.Equal(t, http.StatusOK, status)
	node := decode(t, body)
	assert.Equal(t, "Saws", node["name"])
	assert.Len(t, node["sub_categories"], 1)

	status, _ = send(t, http.MethodGet, base+"/tree/99", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_FlatResourceHasNoTree(t *testing.T) {
	_, ts := newTestServer(t, WithResource(Brands()))

	status, _ := send(t, http.MethodPost, ts.URL+"/brands", map[string]any{"name": "Acme", "slug": "acme"})
	require.Equal(t, http.StatusCreated, status)

	// "tree" is not an id, so the item route answers 404
	status, _ = send(t, http.MethodGet, ts.URL+"/brands/tree", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = send(t, http.MethodGet, ts.URL+"/categories", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestServer_DeleteStatus(t *testing.T) {
	_, ts := newTestServer(t, WithDeleteStatus(http.StatusOK))
	base := ts.URL + "/categories"

	send(t, http.MethodPost, base, map[string]any{"name": "Tools", "slug": "tools"})
	status, body := send(t, http.MethodDelete, base+"/1", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"success": true}`, string(body))
}

func TestServer_Reset(t *testing.T) {
	s, ts := newTestServer(t)
	base := ts.URL + "/categories"

	send(t, http.MethodPost, base, map[string]any{"name": "Tools", "slug": "tools"})
	s.Reset()

	status, body := send(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(body))

	status, body = send(t, http.MethodPost, base, map[string]any{"name": "Tools", "slug": "tools"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(1), decode(t, body)["id"])
}

func TestServer_Delay(t *testing.T) {
	_, ts := newTestServer(t, WithDelay(50*time.Millisecond))

	start := time.Now()
	status, _ := send(t, http.MethodGet, ts.URL+"/categories", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestServer_Metrics(t *testing.T) {
	_, ts := newTestServer(t)

	send(t, http.MethodPost, ts.URL+"/categories", map[string]any{"name": "Tools", "slug": "tools"})
	send(t, http.MethodGet, ts.URL+"/categories/1", nil)

	status, body := send(t, http.MethodGet, ts.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, status)
	text := string(body)
	assert.Contains(t, text, "mock_http_requests_total")
	assert.Contains(t, text, `path="/categories/{id}"`)
	assert.Contains(t, text, `status="201"`)
}

func TestResourceDefaults(t *testing.T) {
	r := Resource{Name: "tags"}
	assert.Equal(t, "tag", r.label())
	assert.Equal(t, []string{"name"}, r.searchFields())
	assert.Equal(t, "children", r.childrenField())

	err := &ConflictError{Label: "tag", Fields: []string{"slug"}}
	assert.Equal(t, "A tag with this slug already exists.", err.Error())
}

func TestServer_Routes(t *testing.T) {
	routes := NewServer(WithResource(Categories()), WithResource(Brands())).Routes()

	assert.Contains(t, routes, Route{Method: http.MethodGet, Pattern: "/categories"})
	assert.Contains(t, routes, Route{Method: http.MethodPost, Pattern: "/categories"})
	assert.Contains(t, routes, Route{Method: http.MethodGet, Pattern: "/categories/tree/{id}"})
	assert.Contains(t, routes, Route{Method: http.MethodPatch, Pattern: "/brands/{id}"})
	assert.NotContains(t, routes, Route{Method: http.MethodGet, Pattern: "/brands/tree"})
	assert.NotContains(t, routes, Route{Method: http.MethodGet, Pattern: "/metrics"})

	// categories: list, create, search, tree, tree/{id}, get, put, patch, delete
	// brands: the same without the two tree routes
	assert.Len(t, routes, 16)
	assert.Equal(t, "/brands", routes[0].Pattern)
}
