package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/mborciuch/10x-bloom-learning-sub000/internal/http/handlers"
	httpMW "github.com/mborciuch/10x-bloom-learning-sub000/internal/http/middleware"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/observability"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware
	// GenerationLimit guards the model-backed generation routes.
	GenerationLimit gin.HandlerFunc

	HealthHandler           *httpH.HealthHandler
	ExerciseTemplateHandler *httpH.ExerciseTemplateHandler
	StudyPlanHandler        *httpH.StudyPlanHandler
	ReviewSessionHandler    *httpH.ReviewSessionHandler
	GenerationHandler       *httpH.GenerationHandler
	JobHandler              *httpH.JobHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, "/healthcheck", "/metrics"))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	limit := cfg.GenerationLimit
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}

	protected := r.Group("/api")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Exercise templates
		if cfg.ExerciseTemplateHandler != nil {
			protected.GET("/exercise-templates", cfg.ExerciseTemplateHandler.ListActive)
		}

		// Study plans
		if h := cfg.StudyPlanHandler; h != nil {
			protected.POST("/study-plans", h.Create)
			protected.GET("/study-plans", h.List)
			protected.GET("/study-plans/:id", h.Get)
			protected.POST("/study-plans/:id/archive", h.Archive)
			protected.POST("/study-plans/:id/unarchive", h.Unarchive)
			protected.DELETE("/study-plans/:id", h.Delete)
			protected.GET("/study-plans/:id/ai-stats", h.AIStats)
			protected.POST("/study-plans/:id/review-sessions/accept-all", h.AcceptAll)
			protected.POST("/study-plans/:id/review-sessions/reject-all", h.RejectAll)
		}

		// Generation
		if h := cfg.GenerationHandler; h != nil {
			protected.POST("/study-plans/:id/generate", limit, h.Generate)
			protected.POST("/study-plans/:id/generation-jobs", limit, h.Enqueue)
		}

		// Review sessions
		if h := cfg.ReviewSessionHandler; h != nil {
			protected.GET("/review-sessions", h.List)
			protected.POST("/review-sessions", h.Create)
			protected.GET("/review-sessions/:id", h.Get)
			protected.PATCH("/review-sessions/:id", h.Update)
			protected.POST("/review-sessions/:id/complete", h.Complete)
			protected.DELETE("/review-sessions/:id", h.Delete)
			protected.POST("/review-sessions/:id/feedback", h.SubmitFeedback)
		}

		// Jobs
		if h := cfg.JobHandler; h != nil {
			protected.GET("/jobs/:id", h.GetJob)
			protected.POST("/jobs/:id/cancel", h.CancelJob)
			protected.GET("/jobs/:id/events", h.StreamJobEvents)
		}
	}

	return r
}
