package jobrun

import "time"

const (
	WorkflowName = "job_run"
	ActivityTick = "job_run_tick"
)

type TickResult struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Stage    string `json:"stage,omitempty"`
	Progress int    `json:"progress,omitempty"`
	// Terminal is set once no further tick will change the job.
	Terminal bool `json:"terminal"`
	// WaitUntil is the earliest time a failed job may be retried.
	WaitUntil *time.Time `json:"wait_until,omitempty"`
}
