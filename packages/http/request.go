package http

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	Body        string
	Timeout     time.Duration
	QueryParams map[string]string
}

func NewRequest(method, requestURL string) *Request {
	return &Request{
		Method:      strings.ToUpper(method),
		URL:         requestURL,
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.Body = body
	return r
}

// SetJSONBody marshals v as the body and sets a JSON content type unless
// one was given explicitly.
func (r *Request) SetJSONBody(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding JSON body: %w", err)
	}
	r.Body = string(data)
	if r.Header("Content-Type") == "" {
		r.Headers["Content-Type"] = "application/json"
	}
	return nil
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

func (r *Request) SetQueryParam(key, value string) *Request {
	r.QueryParams[key] = value
	return r
}

// Header returns a header value, matching the name case-insensitively.
func (r *Request) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Request) BuildURL() string {
	if len(r.QueryParams) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// JoinURL appends path to base. An absolute path URL is returned unchanged.
func JoinURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if base == "" {
		return path
	}
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
