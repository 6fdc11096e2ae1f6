package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/study"
)

// Material returns n words of filler text.
func Material(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "photosynthesis"
	}
	return strings.Join(words, " ")
}

func SeedStudyPlan(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, title string) *types.StudyPlan {
	tb.Helper()
	material := Material(250)
	p := &types.StudyPlan{
		ID:             uuid.New(),
		UserID:         userID,
		Title:          title,
		TitleKey:       study.TitleKey(title),
		SourceMaterial: material,
		WordCount:      study.CountWords(material),
		Status:         string(study.PlanActive),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed study plan: %v", err)
	}
	return p
}

func SeedTemplate(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, active bool) *types.ExerciseTemplate {
	tb.Helper()
	t := &types.ExerciseTemplate{
		ID:       uuid.New(),
		Name:     name,
		IsActive: active,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed template: %v", err)
	}
	return t
}

// SessionOpts tweaks SeedReviewSession.
type SessionOpts struct {
	Status        study.SessionStatus
	AIGenerated   bool
	Completed     bool
	ReviewDate    time.Time
	TaxonomyLevel study.TaxonomyLevel
	Content       string
}

func SeedReviewSession(tb testing.TB, ctx context.Context, tx *gorm.DB, plan *types.StudyPlan, opts SessionOpts) *types.ReviewSession {
	tb.Helper()
	if opts.Status == "" {
		opts.Status = study.StatusAccepted
	}
	if opts.ReviewDate.IsZero() {
		opts.ReviewDate = study.DateOnly(time.Now())
	}
	if opts.TaxonomyLevel == "" {
		opts.TaxonomyLevel = study.LevelRemember
	}
	if opts.Content == "" {
		opts.Content = `{"questions":["What is chlorophyll?"],"answers":["A pigment"]}`
	}
	s := &types.ReviewSession{
		ID:            uuid.New(),
		UserID:        plan.UserID,
		StudyPlanID:   plan.ID,
		ExerciseLabel: "Recall",
		ReviewDate:    study.DateOnly(opts.ReviewDate),
		TaxonomyLevel: string(opts.TaxonomyLevel),
		Status:        string(opts.Status),
		IsAIGenerated: opts.AIGenerated,
		IsCompleted:   opts.Completed,
		Content:       datatypes.JSON([]byte(opts.Content)),
	}
	if opts.Completed {
		now := time.Now().UTC()
		s.CompletedAt = &now
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed review session: %v", err)
	}
	return s
}
