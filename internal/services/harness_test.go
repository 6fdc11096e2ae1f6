package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos/testutil"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/llm"
)

type stubCompleter struct {
	mu     sync.Mutex
	reqs   []llm.Request
	result *llm.Result
	err    error
	hook   func(ctx context.Context)
}

func (s *stubCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Result, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	if s.hook != nil {
		s.hook(ctx)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}

func sessionsResult(t *testing.T, sessions ...map[string]any) *llm.Result {
	t.Helper()
	b, err := json.Marshal(map[string]any{"sessions": sessions})
	if err != nil {
		t.Fatalf("marshal sessions: %v", err)
	}
	return &llm.Result{Content: b, Text: string(b), Model: "openai/gpt-4o-mini"}
}

func aiSession(label, level string, n int) map[string]any {
	qs := make([]string, n)
	as := make([]string, n)
	for i := range qs {
		qs[i] = label + " question"
		as[i] = label + " answer"
	}
	return map[string]any{
		"questions":     qs,
		"answers":       as,
		"hints":         []string{},
		"taxonomyLevel": level,
		"exerciseLabel": label,
	}
}

type harness struct {
	ctx       context.Context
	dbc       dbctx.Context
	tx        *gorm.DB
	userID    uuid.UUID
	ai        *stubCompleter
	planRepo  repos.StudyPlanRepo
	sessRepo  repos.ReviewSessionRepo
	plans     StudyPlanService
	sessions  ReviewSessionService
	generator SessionGenerationService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	ctx := context.Background()

	planRepo := repos.NewStudyPlanRepo(tx, log)
	sessRepo := repos.NewReviewSessionRepo(tx, log)
	tplRepo := repos.NewExerciseTemplateRepo(tx, log)
	fbRepo := repos.NewReviewSessionFeedbackRepo(tx, log)

	h := &harness{
		ctx:      ctx,
		dbc:      dbctx.Context{Ctx: ctx},
		tx:       tx,
		userID:   uuid.New(),
		ai:       &stubCompleter{},
		planRepo: planRepo,
		sessRepo: sessRepo,
	}
	h.plans = NewStudyPlanService(tx, log, planRepo, sessRepo, fbRepo)
	h.sessions = NewReviewSessionService(tx, log, h.plans, sessRepo, tplRepo, fbRepo)
	h.generator = NewSessionGenerationService(tx, log, h.plans, planRepo, tplRepo, sessRepo, h.ai, DefaultGenerationLimits())
	return h
}

func (h *harness) countSessions(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	page, err := h.sessions.List(h.dbc, userID, ListReviewSessionsInput{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return page.Total
}

func requireCode(t *testing.T, err error, code apierr.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if got := apierr.CodeOf(err); got != code {
		t.Fatalf("expected %s, got %q (%v)", code, got, err)
	}
}
