package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos/testutil"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	jobstatus "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/jobs"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/ctxutil"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

type funcHandler struct {
	jobType string
	run     func(jc *Context) error
}

func (h funcHandler) Type() string           { return h.jobType }
func (h funcHandler) Run(jc *Context) error { return h.run(jc) }

func seedRunningJob(t *testing.T, tx *gorm.DB, repo repos.JobRunRepo, jobType, payload string) *types.JobRun {
	t.Helper()
	now := time.Now().UTC()
	job := &types.JobRun{
		OwnerUserID: uuid.New(),
		JobType:     jobType,
		Status:      jobstatus.StatusRunning,
		Stage:       "queued",
		Attempts:    1,
		Payload:     datatypes.JSON([]byte(payload)),
		Result:      datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := repo.Create(dbctx.Context{Ctx: context.Background(), Tx: tx}, []*types.JobRun{job}); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func reload(t *testing.T, tx *gorm.DB, repo repos.JobRunRepo, id uuid.UUID) *types.JobRun {
	t.Helper()
	rows, err := repo.GetByIDs(dbctx.Context{Ctx: context.Background(), Tx: tx}, []uuid.UUID{id})
	if err != nil || len(rows) != 1 {
		t.Fatalf("reload job: %v (%d rows)", err, len(rows))
	}
	return rows[0]
}

func setup(t *testing.T) (*gorm.DB, repos.JobRunRepo, services.JobNotifier) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	return tx, repos.NewJobRunRepo(tx, log), services.NewJobNotifier(log, nil)
}

func TestContextPayloadAccessors(t *testing.T) {
	tx, repo, notify := setup(t)
	planID := uuid.New()
	job := seedRunningJob(t, tx, repo, "x", `{"plan_id":"`+planID.String()+`","command":{"requestedCount":3},"trace_id":"t-1","request_id":"r-1"}`)
	jc := NewContext(context.Background(), tx, job, repo, notify)

	if id, ok := jc.PayloadUUID("plan_id"); !ok || id != planID {
		t.Fatalf("PayloadUUID = %s %v", id, ok)
	}
	if _, ok := jc.PayloadUUID("missing"); ok {
		t.Fatalf("missing key parsed")
	}
	var cmd struct {
		RequestedCount int `json:"requestedCount"`
	}
	if err := jc.DecodePayload("command", &cmd); err != nil || cmd.RequestedCount != 3 {
		t.Fatalf("DecodePayload = %+v %v", cmd, err)
	}
	if err := jc.DecodePayload("nope", &cmd); err == nil {
		t.Fatalf("expected error for missing field")
	}
	td := ctxutil.GetTraceData(jc.Ctx)
	if td == nil || td.TraceID != "t-1" || td.RequestID != "r-1" {
		t.Fatalf("trace data not applied: %+v", td)
	}
}

func TestContextMalformedPayload(t *testing.T) {
	tx, repo, notify := setup(t)
	job := seedRunningJob(t, tx, repo, "x", `{}`)
	job.Payload = datatypes.JSON([]byte(`[1,2`))
	jc := NewContext(context.Background(), tx, job, repo, notify)
	if len(jc.Payload()) != 0 {
		t.Fatalf("expected empty payload")
	}
}

func TestContextLifecycle(t *testing.T) {
	tx, repo, notify := setup(t)
	ctx := context.Background()

	job := seedRunningJob(t, tx, repo, "x", `{}`)
	jc := NewContext(ctx, tx, job, repo, notify)
	jc.Progress("generate", 40)
	if got := reload(t, tx, repo, job.ID); got.Stage != "generate" || got.Progress != 40 {
		t.Fatalf("progress not stored: %+v", got)
	}
	jc.Succeed("done", map[string]int{"count": 2})
	got := reload(t, tx, repo, job.ID)
	var result map[string]int
	if err := json.Unmarshal(got.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got.Status != jobstatus.StatusSucceeded || got.Progress != 100 || result["count"] != 2 {
		t.Fatalf("succeed not stored: status=%s progress=%d result=%s", got.Status, got.Progress, got.Result)
	}

	retry := seedRunningJob(t, tx, repo, "x", `{}`)
	NewContext(ctx, tx, retry, repo, notify).Fail("generate", apierr.New(apierr.CodeRateLimit, "op", "slow down"))
	got = reload(t, tx, repo, retry.ID)
	if got.Status != jobstatus.StatusFailed || got.ErrorCode != string(apierr.CodeRateLimit) || got.Attempts != 1 {
		t.Fatalf("retryable failure: %+v", got)
	}
	if got.Terminal(jobstatus.MaxAttempts) {
		t.Fatalf("retryable failure must not be terminal")
	}

	perm := seedRunningJob(t, tx, repo, "x", `{}`)
	NewContext(ctx, tx, perm, repo, notify).FailPermanently("generate", errors.New("plain"))
	got = reload(t, tx, repo, perm.ID)
	if got.ErrorCode != string(apierr.CodeInternal) || got.Attempts != jobstatus.MaxAttempts || !got.Terminal(jobstatus.MaxAttempts) {
		t.Fatalf("permanent failure: %+v", got)
	}
}

func TestContextDoesNotOverwriteCanceled(t *testing.T) {
	tx, repo, notify := setup(t)
	ctx := context.Background()
	job := seedRunningJob(t, tx, repo, "x", `{}`)
	if err := repo.UpdateFields(dbctx.Context{Ctx: ctx, Tx: tx}, job.ID, map[string]interface{}{"status": jobstatus.StatusCanceled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	jc := NewContext(ctx, tx, job, repo, notify)
	jc.Succeed("done", nil)
	if got := reload(t, tx, repo, job.ID); got.Status != jobstatus.StatusCanceled {
		t.Fatalf("canceled job overwritten: %s", got.Status)
	}
	if jc.Job.Status == jobstatus.StatusSucceeded {
		t.Fatalf("in-memory job updated despite rejected write")
	}
}

func TestContextRecordsFailureAfterCancel(t *testing.T) {
	tx, repo, notify := setup(t)
	job := seedRunningJob(t, tx, repo, "x", `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	jc := NewContext(ctx, tx, job, repo, notify)
	cancel()
	jc.Fail("generate", apierr.New(apierr.CodeTimeout, "op", "too slow"))
	if got := reload(t, tx, repo, job.ID); got.Status != jobstatus.StatusFailed {
		t.Fatalf("failure after cancel not stored: %s", got.Status)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	h := funcHandler{jobType: "a", run: func(*Context) error { return nil }}
	if err := reg.Register(h); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(h); err == nil {
		t.Fatalf("duplicate registration accepted")
	}
	if err := reg.Register(funcHandler{run: h.run}); err == nil {
		t.Fatalf("empty type accepted")
	}
	if err := reg.Register(nil); err == nil {
		t.Fatalf("nil handler accepted")
	}
	if _, ok := reg.Get("a"); !ok {
		t.Fatalf("handler not found")
	}
}

func TestRegistryRunOutcomes(t *testing.T) {
	tx, repo, notify := setup(t)
	ctx := context.Background()
	reg := NewRegistry()
	_ = reg.Register(funcHandler{jobType: "boom", run: func(*Context) error { panic("kaboom") }})
	_ = reg.Register(funcHandler{jobType: "err", run: func(*Context) error { return errors.New("nope") }})
	_ = reg.Register(funcHandler{jobType: "quiet", run: func(*Context) error { return nil }})

	cases := []struct {
		jobType  string
		status   string
		stage    string
		terminal bool
	}{
		{"boom", jobstatus.StatusFailed, "panic", false},
		{"err", jobstatus.StatusFailed, "run", false},
		{"quiet", jobstatus.StatusSucceeded, "done", true},
		{"unknown", jobstatus.StatusFailed, "dispatch", true},
	}
	for _, tc := range cases {
		t.Run(tc.jobType, func(t *testing.T) {
			job := seedRunningJob(t, tx, repo, tc.jobType, `{}`)
			err := reg.Run(NewContext(ctx, tx, job, repo, notify))
			if (err == nil) != (tc.status == jobstatus.StatusSucceeded) {
				t.Fatalf("unexpected error result: %v", err)
			}
			got := reload(t, tx, repo, job.ID)
			if got.Status != tc.status || got.Stage != tc.stage {
				t.Fatalf("got %s/%s want %s/%s", got.Status, got.Stage, tc.status, tc.stage)
			}
			if got.Terminal(jobstatus.MaxAttempts) != tc.terminal {
				t.Fatalf("terminal = %v", got.Terminal(jobstatus.MaxAttempts))
			}
		})
	}
}
