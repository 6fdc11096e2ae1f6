package services

import (
	"time"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/envutil"
)

// GenerationLimits are the product limits applied to AI generation requests.
type GenerationLimits struct {
	MaxRequestedSessions int
	MaxTaxonomyLevels    int
	Timeout              time.Duration
	Temperature          float64
	MaxTokens            int
}

func DefaultGenerationLimits() GenerationLimits {
	return GenerationLimits{
		MaxRequestedSessions: 50,
		MaxTaxonomyLevels:    6,
		Timeout:              90 * time.Second,
		Temperature:          0.7,
		MaxTokens:            4000,
	}
}

// GenerationLimitsFromEnv applies GENERATION_* overrides to the defaults.
func GenerationLimitsFromEnv() GenerationLimits {
	l := DefaultGenerationLimits()
	l.MaxRequestedSessions = envutil.Int("GENERATION_MAX_SESSIONS", l.MaxRequestedSessions)
	l.MaxTaxonomyLevels = envutil.Int("GENERATION_MAX_LEVELS", l.MaxTaxonomyLevels)
	l.Timeout = envutil.Seconds("GENERATION_TIMEOUT_SECONDS", l.Timeout)
	l.Temperature = envutil.Float("GENERATION_TEMPERATURE", l.Temperature)
	l.MaxTokens = envutil.Int("GENERATION_MAX_TOKENS", l.MaxTokens)
	return l.normalized()
}

func (l GenerationLimits) normalized() GenerationLimits {
	d := DefaultGenerationLimits()
	if l.MaxRequestedSessions <= 0 {
		l.MaxRequestedSessions = d.MaxRequestedSessions
	}
	if l.MaxTaxonomyLevels <= 0 || l.MaxTaxonomyLevels > d.MaxTaxonomyLevels {
		l.MaxTaxonomyLevels = d.MaxTaxonomyLevels
	}
	if l.Timeout <= 0 {
		l.Timeout = d.Timeout
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		l.Temperature = d.Temperature
	}
	if l.MaxTokens <= 0 {
		l.MaxTokens = d.MaxTokens
	}
	return l
}

// Study plan limits.
const (
	MinPlanWords     = 200
	MaxPlanWords     = 5000
	MaxPlanTitleLen  = 200
	MaxLabelLen      = 200
	DefaultPageSize  = 50
	MaxPageSize      = 200
	MinFeedbackScore = 1
	MaxFeedbackScore = 5
)
