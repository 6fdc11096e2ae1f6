package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) Client {
	t.Helper()
	c, err := NewClient(nil, Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
		AppName: "bloom-test",
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(nil, Config{BaseURL: "http://localhost"})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestPostSendsJSONWithAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ChatCompletionsPath, r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "bloom-test", r.Header.Get("X-Title"))

		body, _ := io.ReadAll(r.Body)
		var got map[string]any
		assert.NoError(t, json.Unmarshal(body, &got))
		assert.Equal(t, "openai/gpt-4o-mini", got["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"gen-1","choices":[]}`))
	}))
	defer server.Close()

	raw, err := newTestClient(t, server.URL).Post(context.Background(), ChatCompletionsPath, map[string]any{"model": "openai/gpt-4o-mini"}, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"gen-1","choices":[]}`, string(raw))
}

func TestPostClassifiesHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		header map[string]string
		want   ErrorCode
	}{
		{name: "unauthorized", status: 401, body: `{"error":{"message":"No auth credentials found"}}`, want: CodeInvalidAPIKey},
		{name: "payment required", status: 402, body: `{"error":{"message":"Insufficient credits"}}`, want: CodeInsufficientCredits},
		{name: "rate limited", status: 429, body: `{"error":{"message":"slow down"}}`, header: map[string]string{"Retry-After": "12"}, want: CodeRateLimitExceeded},
		{name: "bad request", status: 400, body: `{"error":{"message":"messages must not be empty"}}`, want: CodeInvalidRequest},
		{name: "bad model", status: 400, body: `{"error":{"message":"foo/bar is not a valid model ID"}}`, want: CodeModelNotAvailable},
		{name: "echoed model field", status: 400, body: `{"model":"openai/gpt-4o-mini","error":{"message":"field response_format not found"}}`, want: CodeInvalidRequest},
		{name: "model phrase outside envelope", status: 400, body: `model not found`, want: CodeInvalidRequest},
		{name: "request timeout", status: 408, body: `timeout`, want: CodeTimeout},
		{name: "gateway timeout", status: 504, body: `upstream timed out`, want: CodeTimeout},
		{name: "server error", status: 500, body: `oops`, want: CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(t, server.URL).Post(context.Background(), ChatCompletionsPath, map[string]any{}, 0)
			var gwErr *Error
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, tt.want, gwErr.Code)
			assert.Equal(t, tt.status, gwErr.StatusCode)
			if tt.want == CodeRateLimitExceeded {
				assert.Equal(t, 12*time.Second, gwErr.RetryAfter)
				assert.True(t, gwErr.Retryable())
			}
		})
	}
}

func TestPostNonJSONBodyIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway maintenance</html>"))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Post(context.Background(), ChatCompletionsPath, map[string]any{}, 0)
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, CodeResponseParse, gwErr.Code)
	assert.Equal(t, "<html>gateway maintenance</html>", gwErr.Raw)
	assert.False(t, gwErr.Retryable())
}

func TestPostTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := newTestClient(t, server.URL).Post(context.Background(), ChatCompletionsPath, map[string]any{}, 50*time.Millisecond)
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, CodeTimeout, gwErr.Code)
	assert.True(t, gwErr.Retryable())
}

func TestPostNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(t, url).Post(context.Background(), ChatCompletionsPath, map[string]any{}, 0)
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, CodeNetworkError, gwErr.Code)
}

func TestPostCallerCancellationPropagates(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	_, err := newTestClient(t, server.URL).Post(ctx, ChatCompletionsPath, map[string]any{}, 5*time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	var gwErr *Error
	assert.False(t, errors.As(err, &gwErr))
}
