package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"api_key", "sk-or-v1-abc",
		"Authorization", "Bearer xyz",
		"model", "openai/gpt-4o-mini",
	})
	if len(out) != 6 {
		t.Fatalf("unexpected kv length: %d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("api_key not redacted: %v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("authorization not redacted: %v", out[3])
	}
	if out[5] != "openai/gpt-4o-mini" {
		t.Fatalf("model should pass through: %v", out[5])
	}
}

func TestSanitizeKVsHashesUserIDs(t *testing.T) {
	out := sanitizeKVs([]interface{}{"user_id", "6f1c7a3e-0000-4000-8000-000000000001"})
	got, _ := out[1].(string)
	if !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Fatalf("unexpected hash: %q", got)
	}
	again := sanitizeKVs([]interface{}{"owner_user_id", "6f1c7a3e-0000-4000-8000-000000000001"})
	if again[1] != got {
		t.Fatalf("hash not stable: %v vs %v", again[1], got)
	}
}

func TestSanitizeKVsNestedAndOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"payload", map[string]interface{}{"refresh_token": "r", "count": 2},
		"dangling",
	})
	m, ok := out[1].(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", out[1])
	}
	if m["refresh_token"] != "[REDACTED]" || m["count"] != 2 {
		t.Fatalf("unexpected nested sanitize: %#v", m)
	}
	if out[len(out)-1] != "dangling" {
		t.Fatalf("dangling key dropped: %#v", out)
	}
}

func TestNewDevelopmentLogger(t *testing.T) {
	log, err := New("development")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.With("component", "test").Info("hello", "k", "v")
	log.Sync()
	Nop().Warn("ignored")
}
