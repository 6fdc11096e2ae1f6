package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Params are optional sampling parameters. Nil fields are omitted from the
// provider request so provider defaults apply.
type Params struct {
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Stop             []string
}

// ResponseFormat requests strict JSON-schema output.
type ResponseFormat struct {
	Name   string
	Strict bool
	Schema map[string]any
}

type Request struct {
	Messages []Message
	// Model overrides the service default when non-empty.
	Model          string
	Params         Params
	ResponseFormat *ResponseFormat
	// Timeout applies to each attempt. Zero uses the gateway default.
	Timeout time.Duration
}

type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishToolCalls     FinishReason = "tool_calls"
)

// NormalizeFinishReason maps provider values onto the four known reasons;
// anything unrecognised becomes stop.
func NormalizeFinishReason(raw string) FinishReason {
	switch FinishReason(strings.ToLower(strings.TrimSpace(raw))) {
	case FinishLength:
		return FinishLength
	case FinishContentFilter:
		return FinishContentFilter
	case FinishToolCalls:
		return FinishToolCalls
	default:
		return FinishStop
	}
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Metadata struct {
	RequestID      string
	Provider       string
	ProcessingTime time.Duration
	Attempts       int
}

type Result struct {
	// Content is the parsed JSON document when a ResponseFormat was requested.
	Content json.RawMessage
	// Text is the model output exactly as returned.
	Text         string
	Model        string
	Usage        Usage
	FinishReason FinishReason
	Metadata     Metadata
}

// Decode unmarshals the structured content into v.
func (r *Result) Decode(v any) error {
	if r == nil || len(r.Content) == 0 {
		return fmt.Errorf("llm result has no structured content")
	}
	return json.Unmarshal(r.Content, v)
}

// ProviderFromModel extracts "openai" from "openai/gpt-4o-mini".
func ProviderFromModel(model string) string {
	model = strings.TrimSpace(model)
	if i := strings.Index(model, "/"); i > 0 {
		return model[:i]
	}
	return "unknown"
}

func Float(v float64) *float64 { return &v }
func Int(v int) *int           { return &v }
