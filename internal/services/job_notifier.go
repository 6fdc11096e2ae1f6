package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/clients/redis"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

const (
	JobEventCreated  = "job_created"
	JobEventProgress = "job_progress"
	JobEventFailed   = "job_failed"
	JobEventDone     = "job_done"
	JobEventCanceled = "job_canceled"
)

type JobNotifier interface {
	JobCreated(userID uuid.UUID, job *types.JobRun)
	JobProgress(userID uuid.UUID, job *types.JobRun, stage string, progress int)
	JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string)
	JobDone(userID uuid.UUID, job *types.JobRun)
	JobCanceled(userID uuid.UUID, job *types.JobRun)
}

// JobChannel is the per-user bus channel job events are published on.
func JobChannel(userID uuid.UUID) string {
	return "jobs:" + userID.String()
}

type jobNotifier struct {
	log *logger.Logger
	bus redis.EventBus
}

// NewJobNotifier publishes job lifecycle events on bus. A nil bus yields a
// notifier that drops every event.
func NewJobNotifier(baseLog *logger.Logger, bus redis.EventBus) JobNotifier {
	return &jobNotifier{log: baseLog.With("service", "JobNotifier"), bus: bus}
}

func (n *jobNotifier) publish(userID uuid.UUID, event string, data map[string]any) {
	if n.bus == nil || userID == uuid.Nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.bus.Publish(ctx, redis.Event{Channel: JobChannel(userID), Event: event, Data: data}); err != nil {
		n.log.Warn("job event publish failed", "event", event, "error", err)
	}
}

func (n *jobNotifier) JobCreated(userID uuid.UUID, job *types.JobRun) {
	n.publish(userID, JobEventCreated, map[string]any{"job": NewJobView(job)})
}

func (n *jobNotifier) JobProgress(userID uuid.UUID, job *types.JobRun, stage string, progress int) {
	n.publish(userID, JobEventProgress, map[string]any{
		"jobId":    job.ID,
		"jobType":  job.JobType,
		"stage":    stage,
		"progress": progress,
		"job":      NewJobView(job),
	})
}

func (n *jobNotifier) JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string) {
	n.publish(userID, JobEventFailed, map[string]any{
		"jobId":   job.ID,
		"jobType": job.JobType,
		"stage":   stage,
		"error":   errorMessage,
		"job":     NewJobView(job),
	})
}

func (n *jobNotifier) JobDone(userID uuid.UUID, job *types.JobRun) {
	n.publish(userID, JobEventDone, map[string]any{
		"jobId":   job.ID,
		"jobType": job.JobType,
		"job":     NewJobView(job),
	})
}

func (n *jobNotifier) JobCanceled(userID uuid.UUID, job *types.JobRun) {
	n.publish(userID, JobEventCanceled, map[string]any{
		"jobId":   job.ID,
		"jobType": job.JobType,
		"job":     NewJobView(job),
	})
}
