// Package http provides the HTTP client used to execute suite steps.
//
// It wraps the standard library's http package with additional features:
//   - Per-request timeouts reported as *TimeoutError
//   - Redirect, TLS verification and proxy settings
//   - Default headers applied to every request
//   - Optional client-side rate limiting
//   - Fully buffered responses with JSON helpers
package http
