package jobrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	jobstatus "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/jobs"
	jobrt "github.com/mborciuch/10x-bloom-learning-sub000/internal/jobs/runtime"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/observability"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

type Activities struct {
	Log        *logger.Logger
	DB         *gorm.DB
	Jobs       repos.JobRunRepo
	Registry   *jobrt.Registry
	Notify     services.JobNotifier
	RetryDelay time.Duration
	// heartbeat is replaced in tests, where there is no activity context.
	heartbeat func(ctx context.Context)
}

// Tick runs the job once unless it is terminal or still backing off.
func (a *Activities) Tick(ctx context.Context, jobID string) (TickResult, error) {
	res := TickResult{JobID: strings.TrimSpace(jobID)}
	if a == nil || a.DB == nil || a.Jobs == nil || a.Registry == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}
	id, err := uuid.Parse(res.JobID)
	if err != nil || id == uuid.Nil {
		return res, fmt.Errorf("jobrun: invalid job_id")
	}

	job, err := a.loadJob(ctx, id)
	if err != nil {
		return res, err
	}
	if job == nil {
		return res, fmt.Errorf("jobrun: job not found")
	}
	if job.Terminal(jobstatus.MaxAttempts) {
		return a.result(job), nil
	}
	if job.Status == jobstatus.StatusFailed && job.LastErrorAt != nil {
		if next := job.LastErrorAt.Add(a.RetryDelay); time.Now().Before(next) {
			out := a.result(job)
			out.WaitUntil = &next
			return out, nil
		}
	}

	now := time.Now().UTC()
	claimed, err := a.Jobs.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: ctx, Tx: a.DB}, id,
		[]string{jobstatus.StatusCanceled, jobstatus.StatusSucceeded},
		map[string]interface{}{
			"status":       jobstatus.StatusRunning,
			"attempts":     gorm.Expr("attempts + 1"),
			"locked_at":    now,
			"heartbeat_at": now,
			"updated_at":   now,
		})
	if err != nil {
		return res, err
	}
	if !claimed {
		if job, err = a.loadJob(ctx, id); err != nil || job == nil {
			return res, fmt.Errorf("jobrun: reload after claim: %v", err)
		}
		return a.result(job), nil
	}
	job.Status = jobstatus.StatusRunning
	job.Attempts++
	job.LockedAt = &now
	job.HeartbeatAt = &now

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := a.startHeartbeat(runCtx, id)
	start := time.Now()
	jc := jobrt.NewContext(runCtx, a.DB, job, a.Jobs, a.Notify)
	if runErr := a.Registry.Run(jc); runErr != nil && a.Log != nil {
		a.Log.Warn("Job run failed", "job_id", id, "job_type", job.JobType, "attempt", job.Attempts, "error", runErr)
	}
	stop()
	observability.Current().ObserveJob(job.JobType, jc.Job.Status, time.Since(start))

	updated, err := a.loadJob(ctx, id)
	if err != nil {
		return res, err
	}
	if updated == nil {
		return res, fmt.Errorf("jobrun: job not found after tick")
	}
	out := a.result(updated)
	if !out.Terminal && updated.Status == jobstatus.StatusFailed && updated.LastErrorAt != nil {
		next := updated.LastErrorAt.Add(a.RetryDelay)
		out.WaitUntil = &next
	}
	return out, nil
}

func (a *Activities) result(job *types.JobRun) TickResult {
	return TickResult{
		JobID:    job.ID.String(),
		Status:   job.Status,
		Stage:    job.Stage,
		Progress: job.Progress,
		Terminal: job.Terminal(jobstatus.MaxAttempts),
	}
}

func (a *Activities) loadJob(ctx context.Context, jobID uuid.UUID) (*types.JobRun, error) {
	rows, err := a.Jobs.GetByIDs(dbctx.Context{Ctx: ctx, Tx: a.DB}, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, nil
	}
	return rows[0], nil
}

func (a *Activities) startHeartbeat(ctx context.Context, jobID uuid.UUID) func() {
	record := a.heartbeat
	if record == nil {
		record = func(ctx context.Context) { activity.RecordHeartbeat(ctx) }
	}
	done := make(chan struct{})
	go func() {
		temporalHB := time.NewTicker(10 * time.Second)
		defer temporalHB.Stop()
		dbHB := time.NewTicker(30 * time.Second)
		defer dbHB.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-temporalHB.C:
				record(ctx)
			case <-dbHB.C:
				_ = a.Jobs.Heartbeat(dbctx.Context{Ctx: ctx, Tx: a.DB}, jobID)
			}
		}
	}()
	return func() { close(done) }
}
