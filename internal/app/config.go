package app

import (
	"strings"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/clients/redis"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/db"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/jobs/worker"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/envutil"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/openrouter"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/temporalx"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	LogMode     string

	HTTPAddr       string
	AllowedOrigins []string
	JWTSecretKey   string
	JWTIssuer      string

	// AutoMigrate and SeedTemplates run at serve/worker startup.
	AutoMigrate   bool
	SeedTemplates bool
	// EmbeddedWorker runs the job runner inside serve.
	EmbeddedWorker bool

	Postgres   db.PostgresConfig
	Redis      redis.Config
	RateLimit  redis.RateLimitConfig
	Temporal   temporalx.Config
	Worker     worker.Config
	OpenRouter openrouter.Config
	Limits     services.GenerationLimits
}

func LoadConfig() Config {
	return Config{
		ServiceName:    envutil.String("SERVICE_NAME", "bloom-learning"),
		Environment:    envutil.String("APP_ENV", "development"),
		Version:        envutil.String("APP_VERSION", "dev"),
		LogMode:        envutil.String("LOG_MODE", "development"),
		HTTPAddr:       httpAddr(),
		AllowedOrigins: splitCSV(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		JWTIssuer:      envutil.String("JWT_ISSUER", ""),
		AutoMigrate:    envutil.Bool("DB_AUTO_MIGRATE", true),
		SeedTemplates:  envutil.Bool("SEED_TEMPLATES_ON_START", true),
		EmbeddedWorker: envutil.Bool("EMBEDDED_WORKER", true),
		Postgres:       db.LoadPostgresConfig(),
		Redis:          redis.LoadConfig(),
		RateLimit:      redis.LoadRateLimitConfig(),
		Temporal:       temporalx.LoadConfig(),
		Worker:         worker.LoadConfig(),
		OpenRouter:     openrouter.LoadConfig(),
		Limits:         services.GenerationLimitsFromEnv(),
	}
}

func httpAddr() string {
	if addr := envutil.String("HTTP_ADDR", ""); addr != "" {
		return addr
	}
	return ":" + envutil.String("PORT", "8080")
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
