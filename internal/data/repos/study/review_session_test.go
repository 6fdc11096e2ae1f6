package study

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos/testutil"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/study"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
)

func TestReviewSessionRepoCreatePreservesOrder(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewReviewSessionRepo(db, testutil.Logger(t))

	userID := uuid.New()
	plan := testutil.SeedStudyPlan(t, ctx, tx, userID, "Biology")
	today := study.DateOnly(time.Now())

	var rows []*types.ReviewSession
	for _, label := range []string{"first", "second", "third"} {
		rows = append(rows, &types.ReviewSession{
			UserID:        userID,
			StudyPlanID:   plan.ID,
			ExerciseLabel: label,
			ReviewDate:    today,
			TaxonomyLevel: string(study.LevelApply),
			Status:        string(study.StatusProposed),
			IsAIGenerated: true,
			Content:       datatypes.JSON([]byte(`{"questions":["q"],"answers":["a"],"hints":["h"]}`)),
			Metadata:      datatypes.NewJSONType(study.EditMetadata{}),
		})
	}
	created, err := repo.Create(dbc, rows)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i, label := range []string{"first", "second", "third"} {
		if created[i].ID == uuid.Nil || created[i].ExerciseLabel != label {
			t.Fatalf("Create[%d]: id=%s label=%s", i, created[i].ID, created[i].ExerciseLabel)
		}
	}

	got, err := repo.GetByIDForUser(dbc, userID, created[1].ID)
	if err != nil || got == nil {
		t.Fatalf("GetByIDForUser: got=%v err=%v", got, err)
	}
	if !got.ReviewDate.Equal(today) {
		t.Fatalf("review date round trip: got %s want %s", got.ReviewDate, today)
	}
	if _, err := got.ParsedContent(); err != nil {
		t.Fatalf("ParsedContent: %v", err)
	}
	if other, err := repo.GetByIDForUser(dbc, uuid.New(), created[1].ID); err != nil || other != nil {
		t.Fatalf("GetByIDForUser(other user): got=%v err=%v", other, err)
	}
}

func TestReviewSessionRepoListFilters(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewReviewSessionRepo(db, testutil.Logger(t))

	userID := uuid.New()
	plan := testutil.SeedStudyPlan(t, ctx, tx, userID, "Chemistry")
	other := testutil.SeedStudyPlan(t, ctx, tx, userID, "Physics")
	stranger := testutil.SeedStudyPlan(t, ctx, tx, uuid.New(), "Chemistry")

	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	testutil.SeedReviewSession(t, ctx, tx, plan, testutil.SessionOpts{ReviewDate: day(3)})
	testutil.SeedReviewSession(t, ctx, tx, plan, testutil.SessionOpts{ReviewDate: day(1), AIGenerated: true, Status: study.StatusProposed})
	testutil.SeedReviewSession(t, ctx, tx, plan, testutil.SessionOpts{ReviewDate: day(2), Completed: true})
	testutil.SeedReviewSession(t, ctx, tx, other, testutil.SessionOpts{ReviewDate: day(5), TaxonomyLevel: study.LevelCreate})
	testutil.SeedReviewSession(t, ctx, tx, stranger, testutil.SessionOpts{ReviewDate: day(1)})

	all, total, err := repo.List(dbc, userID, ReviewSessionFilter{})
	if err != nil || total != 4 || len(all) != 4 {
		t.Fatalf("List(all): total=%d len=%d err=%v", total, len(all), err)
	}
	for i := 1; i < len(all); i++ {
		if all[i].ReviewDate.Before(all[i-1].ReviewDate) {
			t.Fatalf("List(all): not sorted ascending by review date")
		}
	}

	desc, _, err := repo.List(dbc, userID, ReviewSessionFilter{Descending: true})
	if err != nil || !desc[0].ReviewDate.Equal(day(5)) {
		t.Fatalf("List(desc): first=%v err=%v", desc[0].ReviewDate, err)
	}

	planID := plan.ID
	from, to := day(2), day(3)
	ranged, total, err := repo.List(dbc, userID, ReviewSessionFilter{StudyPlanID: &planID, DateFrom: &from, DateTo: &to})
	if err != nil || total != 2 || len(ranged) != 2 {
		t.Fatalf("List(range): total=%d err=%v", total, err)
	}

	yes := true
	proposed := string(study.StatusProposed)
	ai, total, err := repo.List(dbc, userID, ReviewSessionFilter{IsAIGenerated: &yes, Status: &proposed})
	if err != nil || total != 1 || !ai[0].IsAIGenerated {
		t.Fatalf("List(ai proposed): total=%d err=%v", total, err)
	}

	done, total, err := repo.List(dbc, userID, ReviewSessionFilter{IsCompleted: &yes})
	if err != nil || total != 1 || !done[0].IsCompleted {
		t.Fatalf("List(completed): total=%d err=%v", total, err)
	}

	level := string(study.LevelCreate)
	if _, total, err := repo.List(dbc, userID, ReviewSessionFilter{TaxonomyLevel: &level}); err != nil || total != 1 {
		t.Fatalf("List(level): total=%d err=%v", total, err)
	}

	page, total, err := repo.List(dbc, userID, ReviewSessionFilter{Limit: 2, Offset: 2})
	if err != nil || total != 4 || len(page) != 2 {
		t.Fatalf("List(page 2): total=%d len=%d err=%v", total, len(page), err)
	}
}

func TestReviewSessionRepoPlanOperations(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewReviewSessionRepo(db, testutil.Logger(t))
	feedback := NewReviewSessionFeedbackRepo(db, testutil.Logger(t))

	userID := uuid.New()
	plan := testutil.SeedStudyPlan(t, ctx, tx, userID, "History")
	p1 := testutil.SeedReviewSession(t, ctx, tx, plan, testutil.SessionOpts{AIGenerated: true, Status: study.StatusProposed})
	testutil.SeedReviewSession(t, ctx, tx, plan, testutil.SessionOpts{AIGenerated: true, Status: study.StatusProposed})
	done := testutil.SeedReviewSession(t, ctx, tx, plan, testutil.SessionOpts{Completed: true})

	now := time.Now().UTC()
	n, err := repo.UpdateStatusForPlan(dbc, userID, plan.ID, string(study.StatusProposed), string(study.StatusAccepted), now)
	if err != nil || n != 2 {
		t.Fatalf("UpdateStatusForPlan: n=%d err=%v", n, err)
	}
	got, _ := repo.GetByIDForUser(dbc, userID, p1.ID)
	if got.Status != string(study.StatusAccepted) || got.StatusChangedAt == nil {
		t.Fatalf("UpdateStatusForPlan: status=%s changed_at=%v", got.Status, got.StatusChangedAt)
	}

	edited := now
	if ok, err := repo.UpdateFields(dbc, userID, p1.ID, map[string]interface{}{
		"metadata": datatypes.NewJSONType(study.EditMetadata{Edited: true, EditedAt: &edited}),
	}); err != nil || !ok {
		t.Fatalf("UpdateFields: ok=%v err=%v", ok, err)
	}
	stats, err := repo.AIStatsRows(dbc, userID, plan.ID)
	if err != nil || len(stats) != 2 {
		t.Fatalf("AIStatsRows: len=%d err=%v", len(stats), err)
	}
	editedCount := 0
	for _, row := range stats {
		if row.Metadata.Data().Edited {
			editedCount++
		}
	}
	if editedCount != 1 {
		t.Fatalf("AIStatsRows: expected 1 edited, got %d", editedCount)
	}

	if _, err := feedback.Create(dbc, &types.ReviewSessionFeedback{ReviewSessionID: done.ID, UserID: userID, Rating: 4}); err != nil {
		t.Fatalf("feedback Create: %v", err)
	}
	if ok, err := feedback.Exists(dbc, done.ID, userID); err != nil || !ok {
		t.Fatalf("feedback Exists: ok=%v err=%v", ok, err)
	}
	if _, err := feedback.Create(dbc, &types.ReviewSessionFeedback{ReviewSessionID: done.ID, UserID: userID, Rating: 2}); err == nil {
		t.Fatalf("duplicate feedback must violate the unique index")
	}
}
