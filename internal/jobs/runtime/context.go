package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	jobstatus "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/jobs"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/ctxutil"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

/*
Context is the execution handle for a single job run. Handlers never write
job_run directly; they report through Progress, Fail, FailPermanently and
Succeed so lifecycle rules stay in one place.

	- Ctx: cancellation for this run (worker shutdown, job cancel)
	- DB: handle passed to services invoked by the handler
	- Job: the job_run row as claimed
	- Notify: lifecycle event side channel
*/
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Job     *types.JobRun
	Repo    repos.JobRunRepo
	Notify  services.JobNotifier
	payload map[string]any
}

// NewContext decodes the payload eagerly. A malformed payload yields an
// empty map; handlers validate the fields they need.
func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, notify services.JobNotifier) *Context {
	c := &Context{
		Ctx:    ctxutil.Default(ctx),
		DB:     db,
		Job:    job,
		Repo:   repo,
		Notify: notify,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil || m == nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	traceID := c.payloadString("trace_id")
	reqID := c.payloadString("request_id")
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{TraceID: traceID, RequestID: reqID})
}

func (c *Context) payloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	s := c.payloadString(key)
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// DecodePayload re-decodes one payload field into v.
func (c *Context) DecodePayload(key string, v any) error {
	raw, ok := c.Payload()[key]
	if !ok || raw == nil {
		return fmt.Errorf("payload field %q missing", key)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("payload field %q: %w", key, err)
	}
	return nil
}

// DBContext is the repo/service context for work done by the handler.
func (c *Context) DBContext() dbctx.Context {
	return dbctx.Context{Ctx: c.Ctx, Tx: c.DB}
}

// writeContext survives cancellation of the run so terminal states are
// still recorded after a timeout or cancel.
func (c *Context) writeContext() dbctx.Context {
	return dbctx.Context{Ctx: context.WithoutCancel(c.Ctx), Tx: c.DB}
}

func (c *Context) update(updates map[string]interface{}) bool {
	if c.Repo == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return true
	}
	ok, err := c.Repo.UpdateFieldsUnlessStatus(c.writeContext(), c.Job.ID, []string{jobstatus.StatusCanceled}, updates)
	return err == nil && ok
}

// Progress records a non-terminal stage. Canceled jobs are left untouched.
func (c *Context) Progress(stage string, pct int) {
	now := time.Now().UTC()
	if !c.update(map[string]interface{}{
		"stage":        stage,
		"progress":     pct,
		"heartbeat_at": now,
		"updated_at":   now,
	}) {
		return
	}
	if c.Job == nil {
		return
	}
	c.Job.Stage = stage
	c.Job.Progress = pct
	c.Job.HeartbeatAt = &now
	c.Job.UpdatedAt = now
	if c.Notify != nil {
		c.Notify.JobProgress(c.Job.OwnerUserID, c.Job, stage, pct)
	}
}

// Fail marks the run failed. The worker claims it again after the retry
// delay until MaxAttempts is reached.
func (c *Context) Fail(stage string, err error) {
	c.fail(stage, err, false)
}

// FailPermanently marks the run failed with its attempts exhausted.
func (c *Context) FailPermanently(stage string, err error) {
	c.fail(stage, err, true)
}

func (c *Context) fail(stage string, err error, exhaust bool) {
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	code := apierr.CodeOf(err)
	if code == "" {
		code = apierr.CodeInternal
	}
	updates := map[string]interface{}{
		"status":        jobstatus.StatusFailed,
		"stage":         stage,
		"error":         msg,
		"error_code":    string(code),
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	}
	if exhaust {
		updates["attempts"] = jobstatus.MaxAttempts
	}
	if !c.update(updates) {
		return
	}
	if c.Job == nil {
		return
	}
	c.Job.Status = jobstatus.StatusFailed
	c.Job.Stage = stage
	c.Job.Error = msg
	c.Job.ErrorCode = string(code)
	c.Job.LastErrorAt = &now
	c.Job.LockedAt = nil
	c.Job.UpdatedAt = now
	if exhaust {
		c.Job.Attempts = jobstatus.MaxAttempts
	}
	if c.Notify != nil {
		c.Notify.JobFailed(c.Job.OwnerUserID, c.Job, stage, msg)
	}
}

// Succeed marks the run succeeded and stores result as JSON.
func (c *Context) Succeed(finalStage string, result any) {
	now := time.Now().UTC()
	res := datatypes.JSON([]byte(`{}`))
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			res = datatypes.JSON(b)
		}
	}
	if !c.update(map[string]interface{}{
		"status":       jobstatus.StatusSucceeded,
		"stage":        finalStage,
		"progress":     100,
		"error":        "",
		"error_code":   "",
		"result":       res,
		"locked_at":    nil,
		"heartbeat_at": now,
		"updated_at":   now,
	}) {
		return
	}
	if c.Job == nil {
		return
	}
	c.Job.Status = jobstatus.StatusSucceeded
	c.Job.Stage = finalStage
	c.Job.Progress = 100
	c.Job.Error = ""
	c.Job.ErrorCode = ""
	c.Job.Result = res
	c.Job.LockedAt = nil
	c.Job.HeartbeatAt = &now
	c.Job.UpdatedAt = now
	if c.Notify != nil {
		c.Notify.JobDone(c.Job.OwnerUserID, c.Job)
	}
}
