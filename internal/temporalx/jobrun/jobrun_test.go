package jobrun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos/testutil"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	jobstatus "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/jobs"
	jobrt "github.com/mborciuch/10x-bloom-learning-sub000/internal/jobs/runtime"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

func TestWorkflowTicksUntilTerminal(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	calls := 0
	env.RegisterActivityWithOptions(func(ctx context.Context, jobID string) (TickResult, error) {
		calls++
		if calls < 3 {
			return TickResult{JobID: jobID, Status: jobstatus.StatusFailed}, nil
		}
		return TickResult{JobID: jobID, Status: jobstatus.StatusSucceeded, Terminal: true}, nil
	}, activity.RegisterOptions{Name: ActivityTick})

	env.ExecuteWorkflow(Workflow)
	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("ticks = %d, want 3", calls)
	}
}

func TestWorkflowFailsOnTerminalFailure(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterActivityWithOptions(func(ctx context.Context, jobID string) (TickResult, error) {
		return TickResult{JobID: jobID, Status: jobstatus.StatusFailed, Stage: "generate", Terminal: true}, nil
	}, activity.RegisterOptions{Name: ActivityTick})

	env.ExecuteWorkflow(Workflow)
	if err := env.GetWorkflowError(); err == nil {
		t.Fatalf("expected workflow error")
	}
}

func TestNextWait(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	soon := now.Add(10 * time.Second)
	past := now.Add(-time.Second)
	far := now.Add(time.Hour)
	if got := nextWait(now, nil); got != defaultPollInterval {
		t.Fatalf("nil: %s", got)
	}
	if got := nextWait(now, &past); got != defaultPollInterval {
		t.Fatalf("past: %s", got)
	}
	if got := nextWait(now, &soon); got != 10*time.Second {
		t.Fatalf("soon: %s", got)
	}
	if got := nextWait(now, &far); got != maxWait {
		t.Fatalf("far: %s", got)
	}
}

type flakyHandler struct {
	runs int
	fail bool
}

func (h *flakyHandler) Type() string { return "flaky" }

func (h *flakyHandler) Run(jc *jobrt.Context) error {
	h.runs++
	if h.fail {
		return errors.New("upstream hiccup")
	}
	jc.Succeed("done", nil)
	return nil
}

func newActivities(t *testing.T, h jobrt.Handler) (*Activities, *gorm.DB, repos.JobRunRepo) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(tx, log)
	reg := jobrt.NewRegistry()
	if err := reg.Register(h); err != nil {
		t.Fatalf("register: %v", err)
	}
	return &Activities{
		Log:        log,
		DB:         tx,
		Jobs:       repo,
		Registry:   reg,
		Notify:     services.NewJobNotifier(log, nil),
		RetryDelay: time.Hour,
		heartbeat:  func(context.Context) {},
	}, tx, repo
}

func TestTickRunsAndBacksOff(t *testing.T) {
	h := &flakyHandler{fail: true}
	acts, tx, repo := newActivities(t, h)
	ctx := context.Background()

	now := time.Now().UTC()
	job := &types.JobRun{
		OwnerUserID: uuid.New(),
		JobType:     "flaky",
		Status:      jobstatus.StatusQueued,
		Stage:       jobstatus.StatusQueued,
		Payload:     datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := repo.Create(dbctx.Context{Ctx: ctx, Tx: tx}, []*types.JobRun{job}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := acts.Tick(ctx, job.ID.String())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if out.Status != jobstatus.StatusFailed || out.Terminal || out.WaitUntil == nil {
		t.Fatalf("first tick: %+v", out)
	}

	// Still inside the retry delay: the handler must not run again.
	out, err = acts.Tick(ctx, job.ID.String())
	if err != nil || h.runs != 1 || out.WaitUntil == nil {
		t.Fatalf("backoff tick: %+v runs=%d err=%v", out, h.runs, err)
	}

	acts.RetryDelay = 0
	h.fail = false
	out, err = acts.Tick(ctx, job.ID.String())
	if err != nil || out.Status != jobstatus.StatusSucceeded || !out.Terminal || h.runs != 2 {
		t.Fatalf("retry tick: %+v runs=%d err=%v", out, h.runs, err)
	}

	// Terminal jobs are reported without running the handler.
	if out, err = acts.Tick(ctx, job.ID.String()); err != nil || !out.Terminal || h.runs != 2 {
		t.Fatalf("terminal tick: %+v runs=%d err=%v", out, h.runs, err)
	}
}

func TestTickRejectsBadIDs(t *testing.T) {
	acts, _, _ := newActivities(t, &flakyHandler{})
	if _, err := acts.Tick(context.Background(), "not-a-uuid"); err == nil {
		t.Fatalf("expected error for bad id")
	}
	if _, err := acts.Tick(context.Background(), uuid.NewString()); err == nil {
		t.Fatalf("expected error for missing job")
	}
}
