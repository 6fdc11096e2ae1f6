package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

func TestClampBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 500 * time.Millisecond},
		{10, 500 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := clampBackoff(100*time.Millisecond, 500*time.Millisecond, tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: got %s want %s", tc.attempt, got, tc.want)
		}
	}
	if got := clampBackoff(0, 0, 1); got != 250*time.Millisecond {
		t.Fatalf("zero base: got %s", got)
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "down")) {
		t.Fatalf("Unavailable should retry")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "no")) {
		t.Fatalf("PermissionDenied should not retry")
	}
	if !isRetryableRPC(context.DeadlineExceeded) {
		t.Fatalf("deadline should retry")
	}
	if isRetryableRPC(errors.New("boom")) || isRetryableRPC(nil) {
		t.Fatalf("plain errors should not retry")
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	cfg := LoadConfig()
	if cfg.Enabled() || cfg.Namespace != "bloom" || cfg.TaskQueue != "bloom" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	c, err := NewClient(logger.Nop(), cfg)
	if err != nil || c != nil {
		t.Fatalf("expected nil client, got %v %v", c, err)
	}
}

func TestLoadTLSConfigRequiresPair(t *testing.T) {
	if _, err := loadTLSConfig(Config{ClientCAPath: "/tmp/ca.pem"}); err == nil {
		t.Fatalf("expected error without cert/key")
	}
}
