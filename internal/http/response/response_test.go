package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
)

func respond(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondAPIError(c, err)
	var env ErrorEnvelope
	if jerr := json.Unmarshal(rec.Body.Bytes(), &env); jerr != nil {
		t.Fatalf("decode: %v (%s)", jerr, rec.Body.String())
	}
	return rec, env
}

func TestRespondAPIErrorUsesCode(t *testing.T) {
	rec, env := respond(t, apierr.New(apierr.CodeNotFound, "plans.get", "study plan not found"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if env.Error.Code != "NOT_FOUND" || env.Error.Message != "study plan not found" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestRespondAPIErrorHidesInternalCauses(t *testing.T) {
	rec, env := respond(t, errors.New("pq: connection refused"))
	if rec.Code != http.StatusInternalServerError || env.Error.Code != "INTERNAL" {
		t.Fatalf("got %d %+v", rec.Code, env)
	}
	if env.Error.Message != "internal server error" {
		t.Fatalf("leaked message %q", env.Error.Message)
	}

	_, env = respond(t, apierr.New(apierr.CodeDataIntegrity, "sessions.get", "questions/answers mismatch in row 42"))
	if env.Error.Code != "DATA_INTEGRITY_ERROR" || env.Error.Message == "questions/answers mismatch in row 42" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestRespondAPIErrorRetryAfter(t *testing.T) {
	e := apierr.New(apierr.CodeRateLimit, "generation", "slow down")
	e.RetryAfter = 1500 * time.Millisecond
	rec, _ := respond(t, e)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q", got)
	}
}
