package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos/testutil"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/study"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
)

func TestCreateStudyPlanValidation(t *testing.T) {
	h := newHarness(t)
	cases := map[string]CreateStudyPlanInput{
		"blank title":   {Title: "  ", SourceMaterial: testutil.Material(250)},
		"long title":    {Title: strings.Repeat("x", 201), SourceMaterial: testutil.Material(250)},
		"too few words": {Title: "Short", SourceMaterial: testutil.Material(199)},
		"too many":      {Title: "Long", SourceMaterial: testutil.Material(5001)},
	}
	for name, in := range cases {
		if _, err := h.plans.Create(h.dbc, h.userID, in); !apierr.IsCode(err, apierr.CodeValidation) {
			t.Fatalf("%s: expected VALIDATION_ERROR, got %v", name, err)
		}
	}

	plan, err := h.plans.Create(h.dbc, h.userID, CreateStudyPlanInput{Title: " Cell Biology ", SourceMaterial: testutil.Material(200)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if plan.Title != "Cell Biology" || plan.WordCount != 200 || plan.Status != string(study.PlanActive) {
		t.Fatalf("unexpected plan %+v", plan)
	}

	_, err = h.plans.Create(h.dbc, h.userID, CreateStudyPlanInput{Title: "cell biology", SourceMaterial: testutil.Material(300)})
	requireCode(t, err, apierr.CodeConflict)

	if _, err := h.plans.Create(h.dbc, uuid.New(), CreateStudyPlanInput{Title: "Cell Biology", SourceMaterial: testutil.Material(300)}); err != nil {
		t.Fatalf("same title for another user must be allowed: %v", err)
	}
}

func TestArchiveAndList(t *testing.T) {
	h := newHarness(t)
	a := testutil.SeedStudyPlan(t, h.ctx, h.tx, h.userID, "Algebra")
	testutil.SeedStudyPlan(t, h.ctx, h.tx, h.userID, "Biology")

	for i := 0; i < 2; i++ {
		p, err := h.plans.Archive(h.dbc, h.userID, a.ID)
		if err != nil || !p.IsArchived() {
			t.Fatalf("Archive #%d: %+v %v", i, p, err)
		}
	}
	page, err := h.plans.List(h.dbc, h.userID, ListStudyPlansInput{Status: "archived"})
	if err != nil || page.Total != 1 || page.Items[0].ID != a.ID {
		t.Fatalf("archived list: %+v %v", page, err)
	}
	page, err = h.plans.List(h.dbc, h.userID, ListStudyPlansInput{Search: "BIO"})
	if err != nil || page.Total != 1 || page.Items[0].Title != "Biology" {
		t.Fatalf("search: %+v %v", page, err)
	}
	if _, err := h.plans.List(h.dbc, h.userID, ListStudyPlansInput{Status: "deleted"}); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("bad status filter: %v", err)
	}

	p, err := h.plans.Unarchive(h.dbc, h.userID, a.ID)
	if err != nil || p.IsArchived() {
		t.Fatalf("Unarchive: %+v %v", p, err)
	}
	_, err = h.plans.Archive(h.dbc, uuid.New(), a.ID)
	requireCode(t, err, apierr.CodeNotFound)
}

func TestDeletePlanCascades(t *testing.T) {
	h := newHarness(t)
	plan := testutil.SeedStudyPlan(t, h.ctx, h.tx, h.userID, "Biology")
	done := testutil.SeedReviewSession(t, h.ctx, h.tx, plan, testutil.SessionOpts{Completed: true})
	testutil.SeedReviewSession(t, h.ctx, h.tx, plan, testutil.SessionOpts{AIGenerated: true, Status: study.StatusProposed})
	if _, err := h.sessions.SubmitFeedback(h.dbc, h.userID, done.ID, FeedbackInput{Rating: 4}); err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}

	requireCode(t, h.plans.Delete(h.dbc, uuid.New(), plan.ID), apierr.CodeNotFound)
	if err := h.plans.Delete(h.dbc, h.userID, plan.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err := h.plans.Get(h.dbc, h.userID, plan.ID)
	requireCode(t, err, apierr.CodeNotFound)
	if n := h.countSessions(t, h.userID); n != 0 {
		t.Fatalf("sessions survived plan delete: %d", n)
	}
	var feedback int64
	if err := h.tx.Table("review_session_feedback").Count(&feedback).Error; err != nil || feedback != 0 {
		t.Fatalf("feedback survived plan delete: %d %v", feedback, err)
	}
}
