package study

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/dberr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos/testutil"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/study"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
)

func TestStudyPlanRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewStudyPlanRepo(db, testutil.Logger(t))

	userID := uuid.New()
	material := testutil.Material(300)
	plan, err := repo.Create(dbc, &types.StudyPlan{
		UserID:         userID,
		Title:          "Cell Biology",
		SourceMaterial: material,
		WordCount:      study.CountWords(material),
		Status:         string(study.PlanActive),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if plan.ID == uuid.Nil || plan.TitleKey != "cell biology" {
		t.Fatalf("Create: id=%s title_key=%q", plan.ID, plan.TitleKey)
	}

	testutil.SeedStudyPlan(t, ctx, tx, userID, "Organic Chemistry")
	testutil.SeedStudyPlan(t, ctx, tx, uuid.New(), "Cell Biology")

	got, err := repo.GetByIDForUser(dbc, userID, plan.ID)
	if err != nil || got == nil || got.Title != "Cell Biology" {
		t.Fatalf("GetByIDForUser: got=%v err=%v", got, err)
	}
	if got, err := repo.GetByIDForUser(dbc, uuid.New(), plan.ID); err != nil || got != nil {
		t.Fatalf("GetByIDForUser(other user): got=%v err=%v", got, err)
	}
	if got, err := repo.LockForShare(dbc, userID, plan.ID); err != nil || got == nil {
		t.Fatalf("LockForShare: got=%v err=%v", got, err)
	}

	rows, total, err := repo.List(dbc, userID, StudyPlanFilter{Search: "CHEM"})
	if err != nil || total != 1 || rows[0].Title != "Organic Chemistry" {
		t.Fatalf("List(search): total=%d err=%v", total, err)
	}
	if _, total, err := repo.List(dbc, userID, StudyPlanFilter{Search: "%"}); err != nil || total != 0 {
		t.Fatalf("List(wildcard literal): total=%d err=%v", total, err)
	}

	ok, err := repo.UpdateFields(dbc, userID, plan.ID, map[string]interface{}{"status": string(study.PlanArchived)})
	if err != nil || !ok {
		t.Fatalf("UpdateFields: ok=%v err=%v", ok, err)
	}
	if _, total, err := repo.List(dbc, userID, StudyPlanFilter{Status: string(study.PlanArchived)}); err != nil || total != 1 {
		t.Fatalf("List(archived): total=%d err=%v", total, err)
	}

	if ok, err := repo.Delete(dbc, uuid.New(), plan.ID); err != nil || ok {
		t.Fatalf("Delete(other user): ok=%v err=%v", ok, err)
	}
	if ok, err := repo.Delete(dbc, userID, plan.ID); err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
}

func TestStudyPlanRepoTitleUniqueIgnoringCase(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewStudyPlanRepo(db, testutil.Logger(t))

	userID := uuid.New()
	testutil.SeedStudyPlan(t, ctx, tx, userID, "Algebra")
	_, err := repo.Create(dbc, &types.StudyPlan{
		UserID:         userID,
		Title:          "ALGEBRA ",
		SourceMaterial: "x",
		Status:         string(study.PlanActive),
	})
	if !dberr.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestExerciseTemplateRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewExerciseTemplateRepo(db, testutil.Logger(t))

	a := testutil.SeedTemplate(t, ctx, tx, "Flashcards", true)
	b := testutil.SeedTemplate(t, ctx, tx, "Case study", true)
	c := testutil.SeedTemplate(t, ctx, tx, "Retired", false)

	found, err := repo.FindActiveByIDs(dbc, []uuid.UUID{a.ID, b.ID, c.ID})
	if err != nil || len(found) != 2 {
		t.Fatalf("FindActiveByIDs: len=%d err=%v", len(found), err)
	}
	active, err := repo.ListActive(dbc)
	if err != nil || len(active) != 2 || active[0].Name != "Case study" {
		t.Fatalf("ListActive: %v err=%v", active, err)
	}

	if err := repo.UpsertByName(dbc, []*types.ExerciseTemplate{
		{Name: "Retired", Description: "back again", IsActive: true},
		{Name: "Socratic dialogue", IsActive: true},
	}); err != nil {
		t.Fatalf("UpsertByName: %v", err)
	}
	active, err = repo.ListActive(dbc)
	if err != nil || len(active) != 4 {
		t.Fatalf("ListActive after upsert: len=%d err=%v", len(active), err)
	}
	got, err := repo.GetByID(dbc, c.ID)
	if err != nil || got == nil || got.Description != "back again" || !got.IsActive {
		t.Fatalf("GetByID after upsert: %+v err=%v", got, err)
	}
}
