package app

import (
	"gorm.io/gorm"

	httpH "github.com/mborciuch/10x-bloom-learning-sub000/internal/http/handlers"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

type Handlers struct {
	Health            *httpH.HealthHandler
	ExerciseTemplates *httpH.ExerciseTemplateHandler
	StudyPlans        *httpH.StudyPlanHandler
	ReviewSessions    *httpH.ReviewSessionHandler
	Generation        *httpH.GenerationHandler
	Jobs              *httpH.JobHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:            httpH.NewHealthHandler(db),
		ExerciseTemplates: httpH.NewExerciseTemplateHandler(services.ExerciseTemplates),
		StudyPlans:        httpH.NewStudyPlanHandler(services.StudyPlans, services.ReviewSessions),
		ReviewSessions:    httpH.NewReviewSessionHandler(services.ReviewSessions),
		Generation:        httpH.NewGenerationHandler(services.Generator, services.GenerationJobs),
		Jobs:              httpH.NewJobHandler(log, services.Jobs, clients.EventBus),
	}
}
