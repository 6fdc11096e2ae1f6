package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

// Event is one message on the bus. Channel is appended to the bus prefix.
type Event struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Data    any    `json:"data,omitempty"`
}

type EventBus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe forwards events on the given channels until ctx is done.
	Subscribe(ctx context.Context, channels []string, onEvent func(Event)) error
}

type eventBus struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

func NewEventBus(log *logger.Logger, rdb goredis.UniversalClient, prefix string) (EventBus, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "bloom:events"
	}
	return &eventBus{
		log:    log.With("service", "RedisEventBus"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (b *eventBus) channel(name string) string {
	return b.prefix + ":" + strings.TrimSpace(name)
}

func (b *eventBus) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel(ev.Channel), raw).Err()
}

func (b *eventBus) Subscribe(ctx context.Context, channels []string, onEvent func(Event)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	if len(channels) == 0 {
		return fmt.Errorf("at least one channel required")
	}
	names := make([]string, 0, len(channels))
	for _, c := range channels {
		names = append(names, b.channel(c))
	}
	sub := b.rdb.Subscribe(ctx, names...)
	// Wait for the subscription confirmation before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad redis event payload", "channel", m.Channel, "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}
