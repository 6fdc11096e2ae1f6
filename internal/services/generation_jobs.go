package services

import (
	"github.com/google/uuid"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

// GenerationJobPayloadKey holds the validated GenerateSessionsInput inside a
// review_session_generate job payload.
const GenerationJobPayloadKey = "command"

type GenerationJobService interface {
	// Enqueue validates the command and the plan up front so obvious
	// mistakes fail the request instead of the job.
	Enqueue(dbc dbctx.Context, userID uuid.UUID, in GenerateSessionsInput) (*types.JobRun, error)
}

type generationJobService struct {
	log       *logger.Logger
	generator SessionGenerationService
	plans     StudyPlanService
	jobRepo   repos.JobRunRepo
	jobs      JobService
}

func NewGenerationJobService(
	baseLog *logger.Logger,
	generator SessionGenerationService,
	plans StudyPlanService,
	jobRepo repos.JobRunRepo,
	jobs JobService,
) GenerationJobService {
	return &generationJobService{
		log:       baseLog.With("service", "GenerationJobService"),
		generator: generator,
		plans:     plans,
		jobRepo:   jobRepo,
		jobs:      jobs,
	}
}

func (s *generationJobService) Enqueue(dbc dbctx.Context, userID uuid.UUID, in GenerateSessionsInput) (*types.JobRun, error) {
	const op = "generation.enqueue"
	cmd, err := s.generator.Validate(in)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.GetOwnedPlan(dbc, userID, cmd.StudyPlanID)
	if err != nil {
		return nil, err
	}
	if plan.IsArchived() {
		return nil, apierr.New(apierr.CodeConflict, op, "study plan is archived")
	}
	busy, err := s.jobRepo.HasRunnableForEntity(dbc, userID, EntityTypeStudyPlan, plan.ID, JobTypeReviewSessionGenerate)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if busy {
		return nil, apierr.New(apierr.CodeConflict, op, "a generation job is already pending for this study plan")
	}

	planID := plan.ID
	job, err := s.jobs.Enqueue(dbc, userID, JobTypeReviewSessionGenerate, EntityTypeStudyPlan, &planID, map[string]any{
		GenerationJobPayloadKey: cmd,
	})
	if err != nil {
		return job, err
	}
	s.log.Info("generation job enqueued", "job_id", job.ID, "study_plan_id", planID, "requested_count", cmd.RequestedCount)
	return job, nil
}
