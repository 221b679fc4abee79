package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// TimeoutError reports a request that did not complete within its deadline.
type TimeoutError struct {
	Method  string
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s timed out after %s", e.Method, e.URL, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is, or wraps, a request timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

func isDeadline(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
