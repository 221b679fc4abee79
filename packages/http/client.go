package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default per-request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

type Client struct {
	httpClient     *http.Client
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	defaultHeaders map[string]string
	limiter        *rate.Limiter
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:        DefaultTimeout,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		defaultHeaders: make(map[string]string),
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	if !c.validateSSL {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	if c.proxyURL != "" {
		proxyURL, err := neturl.Parse(c.proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !c.followRedirect {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	// Deadlines come from the per-request context so a step timeout can
	// exceed the client default.
	c.httpClient = &http.Client{
		Transport:     transport,
		CheckRedirect: redirectPolicy,
	}

	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

// WithDefaultHeaders sets multiple default headers for all requests
func WithDefaultHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		for k, v := range headers {
			c.defaultHeaders[k] = v
		}
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithRateLimit paces requests to at most rps per second. Zero disables pacing.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// Timeout returns the default per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Do sends req and buffers the response. The request's own timeout wins
// over the client default; exceeding it returns a *TimeoutError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	target := req.BuildURL()
	if err := ValidateURL(target); err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.doRequest(ctx, req.Method, target, req)
	if err != nil && isDeadline(err) {
		return nil, &TimeoutError{Method: req.Method, URL: target, Timeout: timeout, Err: err}
	}
	return resp, err
}

func (c *Client) doRequest(ctx context.Context, method, target string, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	duration := time.Since(start)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string)
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    headers,
		Body:       respBody,
		Duration:   duration,
	}, nil
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (only http and https are allowed)", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}
