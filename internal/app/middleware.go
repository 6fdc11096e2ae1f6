package app

import (
	"github.com/gin-gonic/gin"

	httpMW "github.com/mborciuch/10x-bloom-learning-sub000/internal/http/middleware"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

type Middleware struct {
	Auth            *httpMW.AuthMiddleware
	GenerationLimit gin.HandlerFunc
}

func wireMiddleware(log *logger.Logger, cfg Config, clients Clients) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:            httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey, cfg.JWTIssuer),
		GenerationLimit: httpMW.RateLimit(log, clients.RateLimiter),
	}
}
