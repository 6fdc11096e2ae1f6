package openrouter

import (
	"strings"
	"time"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/envutil"
)

const (
	DefaultBaseURL    = "https://openrouter.ai/api/v1"
	DefaultModel      = "openai/gpt-4o-mini"
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3

	// ChatCompletionsPath is the completion endpoint relative to BaseURL.
	ChatCompletionsPath = "/chat/completions"
)

type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int
	// AppURL and AppName are forwarded as HTTP-Referer and X-Title for
	// provider-side attribution.
	AppURL  string
	AppName string
}

func LoadConfig() Config {
	return Config{
		APIKey:       envutil.String("OPENROUTER_API_KEY", ""),
		BaseURL:      strings.TrimRight(envutil.String("OPENROUTER_BASE_URL", DefaultBaseURL), "/"),
		DefaultModel: envutil.String("OPENROUTER_DEFAULT_MODEL", DefaultModel),
		Timeout:      envutil.Seconds("OPENROUTER_TIMEOUT_SECONDS", DefaultTimeout),
		MaxRetries:   envutil.Int("OPENROUTER_MAX_RETRIES", DefaultMaxRetries),
		AppURL:       envutil.String("OPENROUTER_APP_URL", ""),
		AppName:      envutil.String("OPENROUTER_APP_NAME", "bloom-learning"),
	}
}
