package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/categories/tree", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"id": 1, "name": "Hand Tools"}]`))
	}))
	defer server.Close()

	client := NewClient()
	resp, err := client.Do(context.Background(), NewRequest("GET", server.URL+"/categories/tree"))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.True(t, resp.IsJSON())
	assert.Contains(t, resp.BodyString(), "Hand Tools")
}

func TestClient_PostJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name": "Drills", "slug": "drills"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 123}`))
	}))
	defer server.Close()

	req := NewRequest("post", server.URL+"/categories")
	require.NoError(t, req.SetJSONBody(map[string]any{"name": "Drills", "slug": "drills"}))

	resp, err := NewClient().Do(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	body, err := resp.BodyJSON()
	require.NoError(t, err)
	assert.Equal(t, float64(123), body.(map[string]any)["id"])
}

func TestClient_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp, err := NewClient().Do(context.Background(), NewRequest("DELETE", server.URL+"/categories/3"))

	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
	assert.False(t, resp.HasBody())
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	_, err := client.Do(context.Background(), NewRequest("GET", server.URL))

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 50*time.Millisecond, te.Timeout)
}

func TestClient_RequestTimeoutOverridesDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(20 * time.Millisecond))
	req := NewRequest("GET", server.URL).SetTimeout(2 * time.Second)

	resp, err := client.Do(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_CancelledContextIsNotTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient().Do(ctx, NewRequest("GET", server.URL))

	require.Error(t, err)
	assert.False(t, IsTimeout(err))
}

func TestClient_DefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "shopspec", r.Header.Get("User-Agent"))
		assert.Equal(t, "override", r.Header.Get("X-Trace"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(
		WithDefaultHeader("Authorization", "Bearer token"),
		WithDefaultHeaders(map[string]string{
			"User-Agent": "shopspec",
			"X-Trace":    "default",
		}),
	)
	resp, err := client.Do(context.Background(), NewRequest("GET", server.URL).SetHeader("X-Trace", "override"))

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestClient_Redirects(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final" {
			_, _ = w.Write([]byte(`final`))
			return
		}
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	t.Run("followed by default", func(t *testing.T) {
		resp, err := NewClient().Do(context.Background(), NewRequest("GET", server.URL+"/old"))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "final", resp.BodyString())
	})

	t.Run("disabled", func(t *testing.T) {
		resp, err := NewClient(WithFollowRedirects(false)).Do(context.Background(), NewRequest("GET", server.URL+"/old"))
		require.NoError(t, err)
		assert.Equal(t, 302, resp.StatusCode)
		assert.True(t, resp.IsRedirect())
	})
}

func TestClient_MaxRedirects(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer server.Close()

	resp, err := NewClient(WithMaxRedirects(3)).Do(context.Background(), NewRequest("GET", server.URL+"/loop"))

	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.LessOrEqual(t, hits, 4)
}

func TestClient_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithRateLimit(20))
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Do(context.Background(), NewRequest("GET", server.URL))
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestClient_RejectsInvalidURL(t *testing.T) {
	_, err := NewClient().Do(context.Background(), NewRequest("GET", "/categories"))
	assert.ErrorContains(t, err, "unsupported URL scheme")
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		errMsg string
	}{
		{name: "http", url: "http://localhost:3000/categories"},
		{name: "https", url: "https://api.practicesoftwaretesting.com/categories"},
		{name: "ftp scheme", url: "ftp://example.com", errMsg: "unsupported URL scheme"},
		{name: "relative path", url: "categories/tree", errMsg: "unsupported URL scheme"},
		{name: "missing host", url: "http:///categories", errMsg: "URL must have a host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"http://localhost:3000", "/categories", "http://localhost:3000/categories"},
		{"http://localhost:3000/", "categories/tree", "http://localhost:3000/categories/tree"},
		{"http://localhost:3000", "https://other.example/x", "https://other.example/x"},
		{"", "/categories", "/categories"},
		{"http://localhost:3000", "", "http://localhost:3000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, JoinURL(tt.base, tt.path), "JoinURL(%q, %q)", tt.base, tt.path)
	}
}

func TestRequest_BuildURL(t *testing.T) {
	req := NewRequest("GET", "http://localhost:3000/categories/search?page=1")
	req.SetQueryParam("q", "Hand Tools")

	assert.Equal(t, "http://localhost:3000/categories/search?page=1&q=Hand+Tools", req.BuildURL())
}

func TestResponse_StatusClasses(t *testing.T) {
	tests := []struct {
		code     int
		success  bool
		redirect bool
		client   bool
		server   bool
	}{
		{200, true, false, false, false},
		{204, true, false, false, false},
		{302, false, true, false, false},
		{404, false, false, true, false},
		{405, false, false, true, false},
		{503, false, false, false, true},
	}

	for _, tt := range tests {
		resp := &Response{StatusCode: tt.code}
		assert.Equal(t, tt.success, resp.IsSuccess(), "IsSuccess %d", tt.code)
		assert.Equal(t, tt.redirect, resp.IsRedirect(), "IsRedirect %d", tt.code)
		assert.Equal(t, tt.client, resp.IsClientError(), "IsClientError %d", tt.code)
		assert.Equal(t, tt.server, resp.IsServerError(), "IsServerError %d", tt.code)
	}
}

func TestResponse_IsJSON(t *testing.T) {
	tests := []struct {
		contentType string
		expected    bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"application/problem+json", true},
		{"text/html", false},
		{"", false},
	}

	for _, tt := range tests {
		resp := &Response{Headers: map[string]string{"Content-Type": tt.contentType}}
		assert.Equal(t, tt.expected, resp.IsJSON(), "Content-Type: %s", tt.contentType)
	}
}
