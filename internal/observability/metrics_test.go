package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.APIInflightInc()
	m.APIInflightDec()
	m.ObserveLLMRequest("openai/gpt-4o-mini", "ok", time.Second, 10, 20)
	m.ObserveGeneration("ok", time.Second, 3)
	m.ObserveJob("review_session_generate", "succeeded", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rec.Code)
	}
}

func TestHandlerExposesObservations(t *testing.T) {
	m := newMetrics()
	m.ObserveLLMRequest("openai/gpt-4o-mini", "ok", 2*time.Second, 100, 50)
	m.ObserveGeneration("RATE_LIMIT", 3*time.Second, 0)
	m.ObserveGeneration("ok", time.Second, 4)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	out := string(body)

	for _, want := range []string{
		`bloom_llm_requests_total{model="openai/gpt-4o-mini",status="ok"} 1`,
		`bloom_llm_tokens_total{kind="input",model="openai/gpt-4o-mini"} 100`,
		`bloom_session_generations_total{status="RATE_LIMIT"} 1`,
		`bloom_sessions_generated_total 4`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in exposition", want)
		}
	}
}

func TestOtlpHeaders(t *testing.T) {
	got := otlpHeaders(" a=1, b = two ,broken, =x")
	if len(got) != 2 || got["a"] != "1" || got["b"] != "two" {
		t.Fatalf("unexpected headers: %v", got)
	}
	if otlpHeaders("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}
