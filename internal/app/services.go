package app

import (
	"gorm.io/gorm"

	jobrt "github.com/mborciuch/10x-bloom-learning-sub000/internal/jobs/runtime"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/jobs/pipeline/review_session_generate"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

type Services struct {
	StudyPlans        services.StudyPlanService
	ReviewSessions    services.ReviewSessionService
	ExerciseTemplates services.ExerciseTemplateService
	Generator         services.SessionGenerationService
	JobNotifier       services.JobNotifier
	Jobs              services.JobService
	GenerationJobs    services.GenerationJobService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) Services {
	log.Info("Wiring services...")
	plans := services.NewStudyPlanService(db, log, repos.StudyPlan, repos.ReviewSession, repos.ReviewSessionFeedback)
	sessions := services.NewReviewSessionService(db, log, plans, repos.ReviewSession, repos.ExerciseTemplate, repos.ReviewSessionFeedback)
	generator := services.NewSessionGenerationService(db, log, plans, repos.StudyPlan, repos.ExerciseTemplate, repos.ReviewSession, clients.AI, cfg.Limits)
	notifier := services.NewJobNotifier(log, clients.EventBus)
	jobs := services.NewJobService(db, log, repos.JobRun, notifier, clients.Temporal, cfg.Temporal.TaskQueue)

	return Services{
		StudyPlans:        plans,
		ReviewSessions:    sessions,
		ExerciseTemplates: services.NewExerciseTemplateService(log, repos.ExerciseTemplate),
		Generator:         generator,
		JobNotifier:       notifier,
		Jobs:              jobs,
		GenerationJobs:    services.NewGenerationJobService(log, generator, plans, repos.JobRun, jobs),
	}
}

// wireJobRegistry registers every background job handler.
func wireJobRegistry(log *logger.Logger, svc Services) (*jobrt.Registry, error) {
	reg := jobrt.NewRegistry()
	if err := reg.Register(review_session_generate.New(log, svc.Generator)); err != nil {
		return nil, err
	}
	return reg, nil
}
