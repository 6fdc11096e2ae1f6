package app

import (
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/clients/redis"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/llm"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/openrouter"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/temporalx"
)

// Clients are the optional external dependencies. Every field may be nil
// when its backend is not configured.
type Clients struct {
	Redis       *goredis.Client
	EventBus    redis.EventBus
	RateLimiter redis.RateLimiter
	Temporal    temporalsdkclient.Client
	// AI must stay a nil interface when OpenRouter is not configured.
	AI llm.Completer
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	rdb, err := redis.NewClient(log, cfg.Redis)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	if rdb != nil {
		out.Redis = rdb
		bus, err := redis.NewEventBus(log, rdb, "")
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis event bus: %w", err)
		}
		out.EventBus = bus
		out.RateLimiter = redis.NewRateLimiter(rdb, cfg.RateLimit)
	} else {
		log.Warn("REDIS_ADDR not set; job events and rate limiting are disabled")
	}

	// Temporal
	tc, err := temporalx.NewClient(log, cfg.Temporal)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init temporal: %w", err)
	}
	out.Temporal = tc

	// OpenRouter
	gw, err := openrouter.NewClient(log, cfg.OpenRouter)
	switch {
	case errors.Is(err, openrouter.ErrMissingAPIKey):
		log.Warn("OPENROUTER_API_KEY not set; session generation will fail with CONFIGURATION_ERROR")
	case err != nil:
		out.Close()
		return Clients{}, fmt.Errorf("init openrouter: %w", err)
	default:
		out.AI = llm.NewService(log, gw, llm.Config{
			DefaultModel: cfg.OpenRouter.DefaultModel,
			MaxRetries:   cfg.OpenRouter.MaxRetries,
		})
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
