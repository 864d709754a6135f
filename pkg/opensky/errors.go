package opensky

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// DecodeError reports a malformed or schema-violating payload.
type DecodeError struct {
	// Index is the position in "states", or -1 for the response envelope
	Index int

	// Field names the state vector field, empty when the whole element is bad
	Field string

	Err error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("decode response: %v", e.Err)
	case e.Field == "":
		return fmt.Sprintf("decode state %d: %v", e.Index, e.Err)
	default:
		return fmt.Sprintf("decode state %d field %s: %v", e.Index, e.Field, e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError reports a failure to complete the HTTP exchange.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is returned for any response outside 200-299.
type StatusError struct {
	StatusCode int

	// RetryAfter is how long the server asked us to wait, or 0
	RetryAfter time.Duration

	RateLimit RateLimitHeaders

	// Body is a prefix of the response body, for logging
	Body string
}

// RateLimitHeaders contains rate limit information from response headers.
type RateLimitHeaders struct {
	Limit     int // X-Rate-Limit-Limit, -1 when absent
	Remaining int // X-Rate-Limit-Remaining, -1 when absent
}

func (e *StatusError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("API returned status %d (retry after %v)", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("API returned status %d", e.StatusCode)
}

// RateLimited reports whether the server rejected the request for quota reasons.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsStatusError unwraps err to a *StatusError if it is one.
func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// parseRetryAfter extracts the wait requested by the server.
// OpenSky sends X-Rate-Limit-Retry-After-Seconds; standard servers send
// Retry-After as either delay-seconds or an HTTP-date.
func parseRetryAfter(headers http.Header) time.Duration {
	if v := headers.Get("X-Rate-Limit-Retry-After-Seconds"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(retryTime); d > 0 {
			return d
		}
	}

	return 0
}

func extractRateLimitHeaders(headers http.Header) RateLimitHeaders {
	return RateLimitHeaders{
		Limit:     headerInt(headers, "X-Rate-Limit-Limit", "X-RateLimit-Limit"),
		Remaining: headerInt(headers, "X-Rate-Limit-Remaining", "X-RateLimit-Remaining"),
	}
}

func headerInt(headers http.Header, keys ...string) int {
	for _, key := range keys {
		if v := headers.Get(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return -1
}
