package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	jobstatus "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/jobs"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/ctxutil"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

const (
	JobTypeReviewSessionGenerate = "review_session_generate"
	EntityTypeStudyPlan          = "study_plan"

	// jobWorkflowName must match the name the Temporal worker registers.
	jobWorkflowName = "job_run"
)

type JobService interface {
	// Enqueue persists a queued job. Outside a transaction it is dispatched
	// immediately; inside one the caller must Dispatch after commit.
	Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	// Dispatch starts the Temporal workflow for a job. Without Temporal it is
	// a no-op and the in-process worker claims the row.
	Dispatch(dbc dbctx.Context, jobID uuid.UUID) error
	GetForUser(dbc dbctx.Context, userID, jobID uuid.UUID) (*types.JobRun, error)
	Cancel(dbc dbctx.Context, userID, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.JobRunRepo
	notify JobNotifier

	temporal          temporalsdkclient.Client
	temporalTaskQueue string
}

func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.JobRunRepo,
	notify JobNotifier,
	tc temporalsdkclient.Client,
	taskQueue string,
) JobService {
	return &jobService{
		db:                db,
		log:               baseLog.With("service", "JobService"),
		repo:              repo,
		notify:            notify,
		temporal:          tc,
		temporalTaskQueue: strings.TrimSpace(taskQueue),
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID uuid.UUID, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	const op = "jobs.enqueue"
	if ownerUserID == uuid.Nil {
		return nil, apierr.New(apierr.CodeUnauthorized, op, "missing owner")
	}
	if strings.TrimSpace(jobType) == "" {
		return nil, apierr.New(apierr.CodeInternal, op, "missing job type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Context()); td != nil {
		if _, ok := payload["trace_id"]; !ok && td.TraceID != "" {
			payload["trace_id"] = td.TraceID
		}
		if _, ok := payload["request_id"]; !ok && td.RequestID != "" {
			payload["request_id"] = td.RequestID
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, op, err)
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	now := time.Now().UTC()
	job := &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      jobstatus.StatusQueued,
		Stage:       jobstatus.StatusQueued,
		Payload:     datatypes.JSON(b),
		Result:      datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, []*types.JobRun{job}); err != nil {
		return nil, storeErr(op, err)
	}
	s.notify.JobCreated(ownerUserID, job)

	// gorm.DB pointers are cloned freely, so pointer comparison cannot tell
	// whether dbc.Tx is a real transaction.
	if isDBTransaction(dbc.Tx) {
		s.log.Debug("Job enqueued inside transaction; awaiting dispatch after commit", "job_id", job.ID, "job_type", job.JobType)
		return job, nil
	}
	if err := s.Dispatch(dbctx.Context{Ctx: dbc.Ctx}, job.ID); err != nil {
		return job, err
	}
	return job, nil
}

type txCommitter interface {
	Commit() error
	Rollback() error
}

func isDBTransaction(db *gorm.DB) bool {
	if db == nil || db.Statement == nil || db.Statement.ConnPool == nil {
		return false
	}
	_, ok := db.Statement.ConnPool.(txCommitter)
	return ok
}

func (s *jobService) Dispatch(dbc dbctx.Context, jobID uuid.UUID) error {
	if s.temporal == nil || jobID == uuid.Nil {
		return nil
	}
	ctx := dbc.Context()

	err := s.startWorkflow(ctx, jobID)
	if err == nil {
		return nil
	}
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return nil
	}

	now := time.Now().UTC()
	_ = s.repo.UpdateFields(dbctx.Context{Ctx: ctx, Tx: s.db}, jobID, map[string]interface{}{
		"status":        jobstatus.StatusFailed,
		"stage":         "dispatch",
		"error":         err.Error(),
		"error_code":    string(apierr.CodeServiceUnavailable),
		"attempts":      jobstatus.MaxAttempts,
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	})
	if rows, rerr := s.repo.GetByIDs(dbctx.Context{Ctx: ctx, Tx: s.db}, []uuid.UUID{jobID}); rerr == nil && len(rows) > 0 && rows[0] != nil {
		s.notify.JobFailed(rows[0].OwnerUserID, rows[0], "dispatch", err.Error())
	}
	s.log.Error("Temporal dispatch failed", "job_id", jobID, "error", err)
	return apierr.Wrap(apierr.CodeServiceUnavailable, "jobs.dispatch", err)
}

func (s *jobService) startWorkflow(ctx context.Context, jobID uuid.UUID) error {
	tq := s.temporalTaskQueue
	if tq == "" {
		tq = "bloom"
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    jobID.String(),
		TaskQueue:             tq,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		// Attempts are counted on the job row; the workflow itself runs once.
		RetryPolicy: &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	_, err := s.temporal.ExecuteWorkflow(ctx, opts, jobWorkflowName)
	return err
}

func (s *jobService) GetForUser(dbc dbctx.Context, userID, jobID uuid.UUID) (*types.JobRun, error) {
	const op = "jobs.get"
	job, err := s.repo.GetByIDForUser(dbc, userID, jobID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if job == nil {
		return nil, notFound(op, "job")
	}
	return job, nil
}

func (s *jobService) Cancel(dbc dbctx.Context, userID, jobID uuid.UUID) (*types.JobRun, error) {
	const op = "jobs.cancel"
	job, err := s.GetForUser(dbc, userID, jobID)
	if err != nil {
		return nil, err
	}
	if job.Terminal(jobstatus.MaxAttempts) {
		return job, nil
	}
	now := time.Now().UTC()
	ok, err := s.repo.UpdateFieldsUnlessStatus(dbc, jobID, []string{jobstatus.StatusSucceeded, jobstatus.StatusCanceled}, map[string]interface{}{
		"status":     jobstatus.StatusCanceled,
		"stage":      jobstatus.StatusCanceled,
		"locked_at":  nil,
		"updated_at": now,
	})
	if err != nil {
		return nil, storeErr(op, err)
	}
	if job, err = s.GetForUser(dbc, userID, jobID); err != nil {
		return nil, err
	}
	if !ok {
		return job, nil
	}
	s.notify.JobCanceled(userID, job)
	if s.temporal != nil {
		if cerr := s.temporal.CancelWorkflow(dbc.Context(), jobID.String(), ""); cerr != nil {
			s.log.Warn("Temporal cancel failed", "job_id", jobID, "error", cerr)
		}
	}
	return job, nil
}
