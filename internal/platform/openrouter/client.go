package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/httpx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

// ErrMissingAPIKey is returned by NewClient when no credentials are configured.
var ErrMissingAPIKey = errors.New("missing OPENROUTER_API_KEY")

// Client issues single POST requests to the gateway. It never retries.
type Client interface {
	// Post sends body as JSON to path and returns the JSON response body.
	// timeout <= 0 uses the configured default. Failures are *Error, except
	// caller cancellation which returns the context's error.
	Post(ctx context.Context, path string, body any, timeout time.Duration) (json.RawMessage, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	appURL     string
	appName    string
	timeout    time.Duration
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*client)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(log *logger.Logger, cfg Config, opts ...Option) (Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	c := &client{
		log:     log.With("client", "OpenRouterGateway"),
		baseURL: baseURL,
		apiKey:  apiKey,
		appURL:  strings.TrimSpace(cfg.AppURL),
		appName: strings.TrimSpace(cfg.AppName),
		timeout: timeout,
		// Per-attempt deadlines come from the request context.
		httpClient: &http.Client{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *client) Post(ctx context.Context, path string, body any, timeout time.Duration) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = c.timeout
	}

	ctx, span := otel.Tracer("openrouter").Start(ctx, "openrouter.post")
	defer span.End()
	span.SetAttributes(attribute.String("llm.path", path), attribute.Int64("llm.timeout_ms", timeout.Milliseconds()))

	raw, status, err := c.doOnce(ctx, path, body, timeout)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	return raw, nil
}

func (c *client) doOnce(ctx context.Context, path string, body any, timeout time.Duration) (json.RawMessage, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, &Error{Code: CodeInvalidRequest, Message: "encode request body", Cause: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, &Error{Code: CodeInvalidRequest, Message: "build request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.appURL != "" {
		req.Header.Set("HTTP-Referer", c.appURL)
	}
	if c.appName != "" {
		req.Header.Set("X-Title", c.appName)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, c.transportError(ctx, timeout, err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp.StatusCode, c.transportError(ctx, timeout, readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, c.statusError(resp, raw)
	}
	if !json.Valid(raw) {
		return nil, resp.StatusCode, &Error{
			Code:       CodeResponseParse,
			StatusCode: resp.StatusCode,
			Message:    "response body is not valid JSON",
			Raw:        string(raw),
		}
	}
	return json.RawMessage(raw), resp.StatusCode, nil
}

// transportError separates caller cancellation (returned as-is) from the
// per-attempt timeout and from plain network failures.
func (c *client) transportError(parent context.Context, timeout time.Duration, err error) error {
	if perr := parent.Err(); perr != nil {
		return perr
	}
	if httpx.IsTimeout(err) {
		return &Error{
			Code:    CodeTimeout,
			Message: fmt.Sprintf("request exceeded %s", timeout),
			Cause:   err,
		}
	}
	return &Error{Code: CodeNetworkError, Message: err.Error(), Cause: err}
}

func (c *client) statusError(resp *http.Response, raw []byte) *Error {
	msg := providerMessage(raw)
	e := &Error{StatusCode: resp.StatusCode, Message: msg}
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		e.Code = CodeInvalidAPIKey
	case http.StatusPaymentRequired:
		e.Code = CodeInsufficientCredits
	case http.StatusTooManyRequests:
		e.Code = CodeRateLimitExceeded
		if d, ok := httpx.RetryAfter(resp.Header, c.now()); ok {
			e.RetryAfter = d
		}
	case http.StatusBadRequest:
		if mentionsUnavailableModel(envelopeMessage(raw)) {
			e.Code = CodeModelNotAvailable
		} else {
			e.Code = CodeInvalidRequest
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		e.Code = CodeTimeout
	default:
		e.Code = CodeUnknown
	}
	return e
}

// providerMessage pulls error.message out of the provider's error envelope,
// falling back to a truncated body.
func providerMessage(raw []byte) string {
	if m := envelopeMessage(raw); m != "" {
		return m
	}
	return httpx.Truncate(strings.TrimSpace(string(raw)), 500)
}

// envelopeMessage returns error.message, or "" when the body has no envelope.
func envelopeMessage(raw []byte) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return strings.TrimSpace(env.Error.Message)
}

var unavailableModelPhrases = []string{
	"not available",
	"unavailable",
	"not a valid model",
	"invalid model",
	"does not exist",
	"not found",
	"no endpoints found",
}

func mentionsUnavailableModel(body string) bool {
	s := strings.ToLower(body)
	if !strings.Contains(s, "model") && !strings.Contains(s, "endpoints") {
		return false
	}
	for _, p := range unavailableModelPhrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
