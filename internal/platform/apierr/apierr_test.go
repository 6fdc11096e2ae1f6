package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCoversEveryCode(t *testing.T) {
	want := map[ErrorCode]int{
		CodeNotFound:                 http.StatusNotFound,
		CodeValidation:               http.StatusBadRequest,
		CodeConflict:                 http.StatusConflict,
		CodeInvalidStatusTransition:  http.StatusConflict,
		CodeSessionAlreadyCompleted:  http.StatusConflict,
		CodeSessionNotCompleted:      http.StatusConflict,
		CodeFeedbackAlreadySubmitted: http.StatusConflict,
		CodeDeleteNotAllowed:         http.StatusForbidden,
		CodeDataIntegrity:            http.StatusInternalServerError,
		CodeConfiguration:            http.StatusInternalServerError,
		CodeRateLimit:                http.StatusTooManyRequests,
		CodeServiceUnavailable:       http.StatusServiceUnavailable,
		CodeTimeout:                  http.StatusGatewayTimeout,
		CodeAIGeneration:             http.StatusBadGateway,
		CodeUnauthorized:             http.StatusUnauthorized,
		CodeInternal:                 http.StatusInternalServerError,
	}
	if len(want) != len(Codes) {
		t.Fatalf("Codes has %d entries, table has %d", len(Codes), len(want))
	}
	for _, code := range Codes {
		status, ok := want[code]
		if !ok {
			t.Fatalf("code %s missing from expectations", code)
		}
		if got := HTTPStatus(code); got != status {
			t.Fatalf("HTTPStatus(%s)=%d want %d", code, got, status)
		}
	}
	if got := HTTPStatus("SOMETHING_ELSE"); got != http.StatusInternalServerError {
		t.Fatalf("unknown code should map to 500, got %d", got)
	}
}

func TestCodeOfThroughWrapping(t *testing.T) {
	base := New(CodeNotFound, "reviewSession.get", "review session not found")
	wrapped := fmt.Errorf("handler: %w", base)
	if !IsCode(wrapped, CodeNotFound) {
		t.Fatalf("expected NOT_FOUND through fmt wrapping")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no code")
	}
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Fatalf("Wrap(nil) must be nil")
	}
	cause := errors.New("boom")
	w := Wrap(CodeInternal, "db.insert", cause)
	if !errors.Is(w, cause) {
		t.Fatalf("Wrap must keep the cause")
	}
	if w.Error() != "db.insert: boom (INTERNAL)" {
		t.Fatalf("unexpected message: %q", w.Error())
	}
}
