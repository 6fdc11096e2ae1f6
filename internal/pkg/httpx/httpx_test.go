package httpx

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	h := http.Header{}
	if _, ok := RetryAfter(h, now); ok {
		t.Fatalf("empty header should not yield a hint")
	}

	h.Set("Retry-After", "7")
	if d, ok := RetryAfter(h, now); !ok || d != 7*time.Second {
		t.Fatalf("seconds: got %v %v", d, ok)
	}

	h.Set("Retry-After", now.Add(30*time.Second).Format(http.TimeFormat))
	if d, ok := RetryAfter(h, now); !ok || d != 30*time.Second {
		t.Fatalf("http date: got %v %v", d, ok)
	}

	h.Set("Retry-After", "soon")
	if _, ok := RetryAfter(h, now); ok {
		t.Fatalf("garbage should not yield a hint")
	}
}

func TestIsTimeout(t *testing.T) {
	if !IsTimeout(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)) {
		t.Fatalf("deadline exceeded should be a timeout")
	}
	if IsTimeout(context.Canceled) {
		t.Fatalf("cancellation is not a timeout")
	}
	if IsTimeout(nil) {
		t.Fatalf("nil is not a timeout")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc..." {
		t.Fatalf("Truncate=%q", got)
	}
	if got := Truncate("ab", 3); got != "ab" {
		t.Fatalf("Truncate short=%q", got)
	}
}
