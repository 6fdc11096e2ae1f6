package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/observability"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/httpx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/openrouter"
)

// Gateway is the transport the service drives. openrouter.Client satisfies it.
type Gateway interface {
	Post(ctx context.Context, path string, body any, timeout time.Duration) (json.RawMessage, error)
}

// Completer is what domain code depends on.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Result, error)
}

type Config struct {
	DefaultModel string
	MaxRetries   int
}

// Service turns chat messages into a normalized Result, retrying transient
// gateway failures with capped exponential backoff.
type Service struct {
	log        *logger.Logger
	gw         Gateway
	model      string
	maxRetries int
	sleep      Sleeper
	now        func() time.Time
}

type Option func(*Service)

// WithSleeper replaces the backoff wait, for tests.
func WithSleeper(s Sleeper) Option {
	return func(svc *Service) {
		if s != nil {
			svc.sleep = s
		}
	}
}

// WithClock replaces the wall clock used for processing time.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

func NewService(log *logger.Logger, gw Gateway, cfg Config, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	model := strings.TrimSpace(cfg.DefaultModel)
	if model == "" {
		model = openrouter.DefaultModel
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	s := &Service{
		log:        log.With("service", "CompletionService"),
		gw:         gw,
		model:      model,
		maxRetries: maxRetries,
		sleep:      sleepContext,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Complete(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(req.Messages) == 0 {
		return nil, &openrouter.Error{Code: openrouter.CodeInvalidRequest, Message: "at least one message is required"}
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = s.model
	}
	body := buildChatRequest(model, req)
	provider := ProviderFromModel(model)
	start := s.now()

	s.log.Info("llm request started",
		"model", model,
		"provider", provider,
		"messages", len(req.Messages),
		"schema", schemaName(req.ResponseFormat),
	)

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			s.logFailure(model, provider, start, attempt, err)
			return nil, err
		}

		raw, err := s.gw.Post(ctx, openrouter.ChatCompletionsPath, body, req.Timeout)
		if err == nil {
			res, perr := s.buildResult(raw, model, req.ResponseFormat)
			if perr != nil {
				s.logFailure(model, provider, start, attempt+1, perr)
				return nil, perr
			}
			res.Metadata.ProcessingTime = s.now().Sub(start)
			res.Metadata.Attempts = attempt + 1
			s.logSuccess(res)
			return res, nil
		}

		var gwErr *openrouter.Error
		if !errors.As(err, &gwErr) || !gwErr.Retryable() || attempt >= s.maxRetries {
			s.logFailure(model, provider, start, attempt+1, err)
			return nil, err
		}

		delay := Backoff(attempt)
		s.log.Warn("llm request retrying",
			"model", model,
			"attempt", attempt+1,
			"max_retries", s.maxRetries,
			"sleep", delay.String(),
			"error_code", string(gwErr.Code),
		)
		if err := s.sleep(ctx, delay); err != nil {
			s.logFailure(model, provider, start, attempt+1, err)
			return nil, err
		}
	}
}

type chatRequest struct {
	Model            string          `json:"model"`
	Messages         []Message       `json:"messages"`
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	MaxTokens        *int            `json:"max_tokens,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	ResponseFormat   *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type jsonSchemaFormat struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

func buildChatRequest(model string, req Request) chatRequest {
	out := chatRequest{
		Model:            model,
		Messages:         req.Messages,
		Temperature:      req.Params.Temperature,
		TopP:             req.Params.TopP,
		MaxTokens:        req.Params.MaxTokens,
		FrequencyPenalty: req.Params.FrequencyPenalty,
		PresencePenalty:  req.Params.PresencePenalty,
		Stop:             req.Params.Stop,
	}
	if rf := req.ResponseFormat; rf != nil {
		out.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   rf.Name,
				Strict: rf.Strict,
				Schema: rf.Schema,
			},
		}
	}
	return out
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

func (s *Service) buildResult(raw json.RawMessage, requestedModel string, rf *ResponseFormat) (*Result, error) {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &openrouter.Error{Code: openrouter.CodeResponseParse, Message: "decode completion envelope", Raw: string(raw), Cause: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &openrouter.Error{Code: openrouter.CodeResponseParse, Message: "completion has no choices", Raw: string(raw)}
	}
	choice := resp.Choices[0]
	model := strings.TrimSpace(resp.Model)
	if model == "" {
		model = requestedModel
	}
	res := &Result{
		Text:         choice.Message.Content,
		Model:        model,
		Usage:        resp.Usage,
		FinishReason: NormalizeFinishReason(choice.FinishReason),
		Metadata: Metadata{
			RequestID: resp.ID,
			Provider:  ProviderFromModel(model),
		},
	}
	if rf == nil {
		return res, nil
	}
	content, ok := ExtractJSONObject(choice.Message.Content, RequiredKeys(rf.Schema))
	if !ok {
		return nil, &openrouter.Error{
			Code:    openrouter.CodeResponseParse,
			Message: "model output is not valid JSON for schema " + rf.Name,
			Raw:     choice.Message.Content,
		}
	}
	res.Content = content
	return res, nil
}

func (s *Service) logSuccess(res *Result) {
	latency := res.Metadata.ProcessingTime
	s.log.Info("llm request completed",
		"model", res.Model,
		"provider", res.Metadata.Provider,
		"request_id", res.Metadata.RequestID,
		"latency_ms", latency.Milliseconds(),
		"attempts", res.Metadata.Attempts,
		"prompt_tokens", res.Usage.PromptTokens,
		"completion_tokens", res.Usage.CompletionTokens,
		"total_tokens", res.Usage.TotalTokens,
		"finish_reason", string(res.FinishReason),
	)
	if m := observability.Current(); m != nil {
		m.ObserveLLMRequest(res.Model, "ok", latency, res.Usage.PromptTokens, res.Usage.CompletionTokens)
	}
}

func (s *Service) logFailure(model, provider string, start time.Time, attempts int, err error) {
	code := errorCode(err)
	latency := s.now().Sub(start)
	fields := []interface{}{
		"model", model,
		"provider", provider,
		"latency_ms", latency.Milliseconds(),
		"attempts", attempts,
		"error_code", code,
		"error", err.Error(),
	}
	var gwErr *openrouter.Error
	if errors.As(err, &gwErr) && gwErr.Raw != "" {
		fields = append(fields, "raw", httpx.Truncate(gwErr.Raw, 300))
	}
	s.log.Error("llm request failed", fields...)
	if m := observability.Current(); m != nil {
		m.ObserveLLMRequest(model, code, latency, 0, 0)
	}
}

func errorCode(err error) string {
	var gwErr *openrouter.Error
	switch {
	case errors.As(err, &gwErr):
		return string(gwErr.Code)
	case errors.Is(err, context.Canceled):
		return "CANCELED"
	case errors.Is(err, context.DeadlineExceeded):
		return "DEADLINE_EXCEEDED"
	default:
		return "UNKNOWN"
	}
}

func schemaName(rf *ResponseFormat) string {
	if rf == nil {
		return ""
	}
	return rf.Name
}
