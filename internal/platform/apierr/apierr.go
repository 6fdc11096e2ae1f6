package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode is the closed set of domain failure kinds surfaced to callers.
type ErrorCode string

const (
	CodeNotFound                 ErrorCode = "NOT_FOUND"
	CodeValidation               ErrorCode = "VALIDATION_ERROR"
	CodeConflict                 ErrorCode = "CONFLICT"
	CodeInvalidStatusTransition  ErrorCode = "INVALID_STATUS_TRANSITION"
	CodeSessionAlreadyCompleted  ErrorCode = "SESSION_ALREADY_COMPLETED"
	CodeSessionNotCompleted      ErrorCode = "SESSION_NOT_COMPLETED"
	CodeFeedbackAlreadySubmitted ErrorCode = "FEEDBACK_ALREADY_SUBMITTED"
	CodeDeleteNotAllowed         ErrorCode = "DELETE_NOT_ALLOWED"
	CodeDataIntegrity            ErrorCode = "DATA_INTEGRITY_ERROR"
	CodeConfiguration            ErrorCode = "CONFIGURATION_ERROR"
	CodeRateLimit                ErrorCode = "RATE_LIMIT"
	CodeServiceUnavailable       ErrorCode = "SERVICE_UNAVAILABLE"
	CodeTimeout                  ErrorCode = "TIMEOUT"
	CodeAIGeneration             ErrorCode = "AI_GENERATION_ERROR"
	CodeUnauthorized             ErrorCode = "UNAUTHORIZED"
	CodeInternal                 ErrorCode = "INTERNAL"
)

// Codes lists every ErrorCode. Kept in sync with HTTPStatus.
var Codes = []ErrorCode{
	CodeNotFound,
	CodeValidation,
	CodeConflict,
	CodeInvalidStatusTransition,
	CodeSessionAlreadyCompleted,
	CodeSessionNotCompleted,
	CodeFeedbackAlreadySubmitted,
	CodeDeleteNotAllowed,
	CodeDataIntegrity,
	CodeConfiguration,
	CodeRateLimit,
	CodeServiceUnavailable,
	CodeTimeout,
	CodeAIGeneration,
	CodeUnauthorized,
	CodeInternal,
}

// HTTPStatus maps a code to its transport status. Unknown codes map to 500.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeConflict,
		CodeInvalidStatusTransition,
		CodeSessionAlreadyCompleted,
		CodeSessionNotCompleted,
		CodeFeedbackAlreadySubmitted:
		return http.StatusConflict
	case CodeDeleteNotAllowed:
		return http.StatusForbidden
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeAIGeneration:
		return http.StatusBadGateway
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeDataIntegrity, CodeConfiguration, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is the canonical domain error. Message is safe to show to users.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
	// RetryAfter is set for RATE_LIMIT when the upstream supplied a hint.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Status returns the HTTP status for the error's code.
func (e *Error) Status() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatus(e.Code)
}

func New(code ErrorCode, op, message string) *Error {
	return &Error{Code: code, Op: strings.TrimSpace(op), Message: strings.TrimSpace(message)}
}

func Newf(code ErrorCode, op, format string, args ...any) *Error {
	return New(code, op, fmt.Sprintf(format, args...))
}

// Wrap annotates err with a code. A nil err yields nil.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: strings.TrimSpace(op), Message: err.Error(), Cause: err}
}

// WithCause attaches an underlying error without changing the message.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code of the outermost *Error in err's chain.
func CodeOf(err error) ErrorCode {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}

// As returns the outermost *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return nil, false
	}
	return e, true
}
