package openrouter

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode classifies gateway failures.
type ErrorCode string

const (
	CodeInvalidAPIKey       ErrorCode = "INVALID_API_KEY"
	CodeInsufficientCredits ErrorCode = "INSUFFICIENT_CREDITS"
	CodeRateLimitExceeded   ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeInvalidRequest      ErrorCode = "INVALID_REQUEST"
	CodeModelNotAvailable   ErrorCode = "MODEL_NOT_AVAILABLE"
	CodeTimeout             ErrorCode = "TIMEOUT"
	CodeNetworkError        ErrorCode = "NETWORK_ERROR"
	CodeResponseParse       ErrorCode = "RESPONSE_PARSE_ERROR"
	CodeUnknown             ErrorCode = "UNKNOWN_ERROR"
)

// Retryable reports whether a fresh attempt may succeed.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CodeRateLimitExceeded, CodeTimeout, CodeNetworkError:
		return true
	default:
		return false
	}
}

// Error is returned for every classified gateway failure.
type Error struct {
	Code       ErrorCode
	StatusCode int
	Message    string
	// RetryAfter is the provider's hint on 429 responses, zero if absent.
	RetryAfter time.Duration
	// Raw holds the response body for RESPONSE_PARSE_ERROR diagnostics.
	Raw   string
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("openrouter ")
	b.WriteString(string(e.Code))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	return e != nil && e.Code.Retryable()
}

// HTTPStatusCode exposes the upstream status for metrics.
func (e *Error) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}
