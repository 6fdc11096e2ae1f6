package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/envutil"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// LoadConfig reads REDIS_ADDR (or REDIS_HOST + REDIS_PORT), REDIS_PASSWORD,
// REDIS_DB and REDIS_TLS. An empty Addr means Redis is disabled.
func LoadConfig() Config {
	addr := envutil.String("REDIS_ADDR", "")
	host := envutil.String("REDIS_HOST", "")
	port := envutil.String("REDIS_PORT", "")
	if addr == "" && host != "" && port != "" {
		addr = host + ":" + port
	}
	return Config{
		Addr:     addr,
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
		TLS:      envutil.Bool("REDIS_TLS", false),
	}
}

// NewClient connects and pings. It returns nil, nil when cfg.Addr is empty
// so callers can run without Redis.
func NewClient(log *logger.Logger, cfg Config) (*goredis.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		if log != nil {
			log.Warn("REDIS_ADDR not set; rate limiting and job events disabled")
		}
		return nil, nil
	}
	opts := &goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if log != nil {
		log.Info("Connected to Redis", "addr", addr, "db", cfg.DB)
	}
	return rdb, nil
}
