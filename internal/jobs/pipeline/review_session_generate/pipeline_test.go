package review_session_generate

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos/testutil"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	jobstatus "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/jobs"
	jobrt "github.com/mborciuch/10x-bloom-learning-sub000/internal/jobs/runtime"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

type fakeGenerator struct {
	calls  int
	gotCmd services.GenerateSessionsInput
	gotUID uuid.UUID
	views  []services.ReviewSessionView
	err    error
}

func (f *fakeGenerator) Validate(in services.GenerateSessionsInput) (services.GenerateSessionsInput, error) {
	return in, nil
}

func (f *fakeGenerator) Generate(dbc dbctx.Context, userID uuid.UUID, in services.GenerateSessionsInput) ([]services.ReviewSessionView, error) {
	f.calls++
	f.gotCmd = in
	f.gotUID = userID
	return f.views, f.err
}

func runJob(t *testing.T, gen *fakeGenerator, payload string) *types.JobRun {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	repo := repos.NewJobRunRepo(tx, log)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	now := time.Now().UTC()
	job := &types.JobRun{
		OwnerUserID: uuid.New(),
		JobType:     services.JobTypeReviewSessionGenerate,
		Status:      jobstatus.StatusRunning,
		Stage:       "queued",
		Attempts:    1,
		Payload:     datatypes.JSON([]byte(payload)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := repo.Create(dbc, []*types.JobRun{job}); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	reg := jobrt.NewRegistry()
	if err := reg.Register(New(log, gen)); err != nil {
		t.Fatalf("register: %v", err)
	}
	_ = reg.Run(jobrt.NewContext(context.Background(), tx, job, repo, services.NewJobNotifier(log, nil)))

	rows, err := repo.GetByIDs(dbc, []uuid.UUID{job.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("reload: %v", err)
	}
	if gen.calls > 0 && gen.gotUID != job.OwnerUserID {
		t.Fatalf("generator ran for %s, want owner %s", gen.gotUID, job.OwnerUserID)
	}
	return rows[0]
}

func commandPayload(planID uuid.UUID) string {
	return fmt.Sprintf(`{"command":{"studyPlanId":%q,"requestedCount":2,"taxonomyLevels":["remember"]}}`, planID)
}

func TestRunStoresSessionIDs(t *testing.T) {
	planID := uuid.New()
	a, b := uuid.New(), uuid.New()
	gen := &fakeGenerator{views: []services.ReviewSessionView{{ID: a}, {ID: b}}}
	job := runJob(t, gen, commandPayload(planID))

	if job.Status != jobstatus.StatusSucceeded {
		t.Fatalf("status = %s (%s)", job.Status, job.Error)
	}
	if gen.gotCmd.StudyPlanID != planID || gen.gotCmd.RequestedCount != 2 || len(gen.gotCmd.TaxonomyLevels) != 1 {
		t.Fatalf("command not decoded: %+v", gen.gotCmd)
	}
	var res Result
	if err := json.Unmarshal(job.Result, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Count != 2 || len(res.SessionIDs) != 2 || res.SessionIDs[0] != a || res.SessionIDs[1] != b {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRunFailureClassification(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		terminal bool
	}{
		{"validation", apierr.New(apierr.CodeValidation, "op", "bad"), true},
		{"not found", apierr.New(apierr.CodeNotFound, "op", "gone"), true},
		{"archived", apierr.New(apierr.CodeConflict, "op", "archived"), true},
		{"no api key", apierr.New(apierr.CodeConfiguration, "op", "missing key"), true},
		{"corrupt row", apierr.New(apierr.CodeDataIntegrity, "op", "corrupt content"), true},
		{"no owner", apierr.New(apierr.CodeUnauthorized, "op", "missing user"), true},
		{"rate limit", apierr.New(apierr.CodeRateLimit, "op", "slow down"), false},
		{"upstream down", apierr.New(apierr.CodeServiceUnavailable, "op", "down"), false},
		{"timeout", apierr.New(apierr.CodeTimeout, "op", "slow"), false},
		{"bad output", apierr.New(apierr.CodeAIGeneration, "op", "garbage"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := runJob(t, &fakeGenerator{err: tc.err}, commandPayload(uuid.New()))
			if job.Status != jobstatus.StatusFailed {
				t.Fatalf("status = %s", job.Status)
			}
			if job.ErrorCode != string(apierr.CodeOf(tc.err)) {
				t.Fatalf("error code = %s", job.ErrorCode)
			}
			if got := job.Terminal(jobstatus.MaxAttempts); got != tc.terminal {
				t.Fatalf("terminal = %v, want %v", got, tc.terminal)
			}
		})
	}
}

func TestRunRejectsMalformedPayload(t *testing.T) {
	gen := &fakeGenerator{}
	job := runJob(t, gen, `{"command":"not an object"}`)
	if gen.calls != 0 {
		t.Fatalf("generator called for malformed payload")
	}
	if job.Status != jobstatus.StatusFailed || job.ErrorCode != string(apierr.CodeValidation) || !job.Terminal(jobstatus.MaxAttempts) {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestRunInterruptedIsRetried(t *testing.T) {
	job := runJob(t, &fakeGenerator{err: context.Canceled}, commandPayload(uuid.New()))
	if job.Status != jobstatus.StatusFailed || job.Terminal(jobstatus.MaxAttempts) {
		t.Fatalf("interrupted run should be retryable, got %s attempts=%d", job.Status, job.Attempts)
	}
}
