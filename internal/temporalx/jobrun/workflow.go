package jobrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/workflow"

	jobstatus "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/jobs"
)

const (
	defaultPollInterval  = 2 * time.Second
	maxWait              = 15 * time.Minute
	continueTickLimit    = 200
	continueHistoryLimit = 10000
)

// Workflow ticks the job named by the workflow id until it is terminal.
// Retries with backoff happen here; the activity itself is not retried.
func Workflow(ctx workflow.Context) error {
	jobID := strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	if jobID == "" {
		return fmt.Errorf("jobrun: missing job_id")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Hour,
		HeartbeatTimeout:    30 * time.Second,
	})

	for tick := 1; ; tick++ {
		var out TickResult
		if err := workflow.ExecuteActivity(ctx, ActivityTick, jobID).Get(ctx, &out); err != nil {
			return err
		}
		if out.Terminal {
			if out.Status == jobstatus.StatusFailed {
				return fmt.Errorf("job failed (stage=%s)", strings.TrimSpace(out.Stage))
			}
			return nil
		}
		if err := workflow.Sleep(ctx, nextWait(workflow.Now(ctx), out.WaitUntil)); err != nil {
			return err
		}
		if shouldContinueAsNew(ctx, tick) {
			return workflow.NewContinueAsNewError(ctx, Workflow)
		}
	}
}

func nextWait(now time.Time, waitUntil *time.Time) time.Duration {
	if waitUntil == nil || !waitUntil.After(now) {
		return defaultPollInterval
	}
	if d := waitUntil.Sub(now); d < maxWait {
		return d
	}
	return maxWait
}

func shouldContinueAsNew(ctx workflow.Context, ticks int) bool {
	if ticks >= continueTickLimit {
		return true
	}
	info := workflow.GetInfo(ctx)
	return info != nil && info.GetCurrentHistoryLength() >= continueHistoryLimit
}
