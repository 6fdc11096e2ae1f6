package app

import (
	"github.com/gin-gonic/gin"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/http"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/observability"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:                     log,
		ServiceName:             cfg.ServiceName,
		AllowedOrigins:          cfg.AllowedOrigins,
		Metrics:                 metrics,
		AuthMiddleware:          middleware.Auth,
		GenerationLimit:         middleware.GenerationLimit,
		HealthHandler:           handlers.Health,
		ExerciseTemplateHandler: handlers.ExerciseTemplates,
		StudyPlanHandler:        handlers.StudyPlans,
		ReviewSessionHandler:    handlers.ReviewSessions,
		GenerationHandler:       handlers.Generation,
		JobHandler:              handlers.Jobs,
	})
}
