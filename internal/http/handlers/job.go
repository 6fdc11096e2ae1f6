package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/clients/redis"
	jobstatus "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/jobs"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/http/response"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

const jobEventSnapshot = "job_snapshot"

type JobHandler struct {
	log       *logger.Logger
	jobs      services.JobService
	bus       redis.EventBus
	keepAlive time.Duration
}

// NewJobHandler serves job polling and, when bus is set, job event streams.
func NewJobHandler(log *logger.Logger, jobs services.JobService, bus redis.EventBus) *JobHandler {
	return &JobHandler{
		log:       log.With("handler", "JobHandler"),
		jobs:      jobs,
		bus:       bus,
		keepAlive: 15 * time.Second,
	}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	jobID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	job, err := h.jobs.GetForUser(requestDBC(c), userID, jobID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": services.NewJobView(job)})
}

// POST /api/jobs/:id/cancel
func (h *JobHandler) CancelJob(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	jobID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	job, err := h.jobs.Cancel(requestDBC(c), userID, jobID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": services.NewJobView(job)})
}

// GET /api/jobs/:id/events
//
// Streams the job's lifecycle events as SSE, starting with a snapshot. The
// stream ends after a terminal event.
func (h *JobHandler) StreamJobEvents(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	jobID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if h.bus == nil {
		response.RespondAPIError(c, apierr.New(apierr.CodeServiceUnavailable, "", "job events are not available"))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	events := make(chan redis.Event, 16)
	// Subscribe before the snapshot so no event between the two is lost.
	err := h.bus.Subscribe(ctx, []string{services.JobChannel(userID)}, func(ev redis.Event) {
		if eventJobID(ev) != jobID {
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		h.log.Warn("Job event subscribe failed", "job_id", jobID, "error", err)
		response.RespondAPIError(c, apierr.Wrap(apierr.CodeServiceUnavailable, "jobs.events", err))
		return
	}

	job, err := h.jobs.GetForUser(requestDBC(c), userID, jobID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent(jobEventSnapshot, gin.H{"job": services.NewJobView(job)})
	c.Writer.Flush()
	if job.Terminal(jobstatus.MaxAttempts) {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-events:
			c.SSEvent(ev.Event, ev.Data)
			return !terminalEvent(ev)
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		}
	})
}

// eventJobID reads the job id out of a decoded bus payload.
func eventJobID(ev redis.Event) uuid.UUID {
	data, ok := ev.Data.(map[string]any)
	if !ok {
		return uuid.Nil
	}
	if raw, ok := data["jobId"].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
	}
	if job, ok := data["job"].(map[string]any); ok {
		if raw, ok := job["id"].(string); ok {
			if id, err := uuid.Parse(raw); err == nil {
				return id
			}
		}
	}
	return uuid.Nil
}

func terminalEvent(ev redis.Event) bool {
	switch ev.Event {
	case services.JobEventDone, services.JobEventCanceled:
		return true
	case services.JobEventFailed:
		data, _ := ev.Data.(map[string]any)
		job, _ := data["job"].(map[string]any)
		attempts, _ := job["attempts"].(float64)
		return int(attempts) >= jobstatus.MaxAttempts
	}
	return false
}
