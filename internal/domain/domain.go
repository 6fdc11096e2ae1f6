package domain

import (
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/jobs"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/study"
)

type StudyPlan = study.StudyPlan
type ExerciseTemplate = study.ExerciseTemplate
type ReviewSession = study.ReviewSession
type ReviewSessionFeedback = study.ReviewSessionFeedback
type SessionContent = study.SessionContent
type EditMetadata = study.EditMetadata

type TaxonomyLevel = study.TaxonomyLevel
type SessionStatus = study.SessionStatus
type PlanStatus = study.PlanStatus

type JobRun = jobs.JobRun

const (
	StatusProposed = study.StatusProposed
	StatusAccepted = study.StatusAccepted
	StatusRejected = study.StatusRejected

	PlanActive   = study.PlanActive
	PlanArchived = study.PlanArchived
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&StudyPlan{},
		&ExerciseTemplate{},
		&ReviewSession{},
		&ReviewSessionFeedback{},
		&JobRun{},
	}
}
