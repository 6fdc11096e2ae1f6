package app

import (
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

type Repos struct {
	StudyPlan             repos.StudyPlanRepo
	ExerciseTemplate      repos.ExerciseTemplateRepo
	ReviewSession         repos.ReviewSessionRepo
	ReviewSessionFeedback repos.ReviewSessionFeedbackRepo
	JobRun                repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		StudyPlan:             repos.NewStudyPlanRepo(db, log),
		ExerciseTemplate:      repos.NewExerciseTemplateRepo(db, log),
		ReviewSession:         repos.NewReviewSessionRepo(db, log),
		ReviewSessionFeedback: repos.NewReviewSessionFeedbackRepo(db, log),
		JobRun:                repos.NewJobRunRepo(db, log),
	}
}
