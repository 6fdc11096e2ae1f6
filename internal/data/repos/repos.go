package repos

import (
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos/jobs"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos/study"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

type StudyPlanRepo = study.StudyPlanRepo
type StudyPlanFilter = study.StudyPlanFilter
type ExerciseTemplateRepo = study.ExerciseTemplateRepo
type ReviewSessionRepo = study.ReviewSessionRepo
type ReviewSessionFilter = study.ReviewSessionFilter
type SessionStatRow = study.SessionStatRow
type ReviewSessionFeedbackRepo = study.ReviewSessionFeedbackRepo

type JobRunRepo = jobs.JobRunRepo

func NewStudyPlanRepo(db *gorm.DB, log *logger.Logger) StudyPlanRepo {
	return study.NewStudyPlanRepo(db, log)
}

func NewExerciseTemplateRepo(db *gorm.DB, log *logger.Logger) ExerciseTemplateRepo {
	return study.NewExerciseTemplateRepo(db, log)
}

func NewReviewSessionRepo(db *gorm.DB, log *logger.Logger) ReviewSessionRepo {
	return study.NewReviewSessionRepo(db, log)
}

func NewReviewSessionFeedbackRepo(db *gorm.DB, log *logger.Logger) ReviewSessionFeedbackRepo {
	return study.NewReviewSessionFeedbackRepo(db, log)
}

func NewJobRunRepo(db *gorm.DB, log *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, log)
}
