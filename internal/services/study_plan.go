package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/dberr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/study"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

type CreateStudyPlanInput struct {
	Title          string
	SourceMaterial string
}

type ListStudyPlansInput struct {
	Status string
	Search string
	PageRequest
}

type StudyPlanService interface {
	Create(dbc dbctx.Context, userID uuid.UUID, in CreateStudyPlanInput) (*types.StudyPlan, error)
	Get(dbc dbctx.Context, userID, planID uuid.UUID) (*types.StudyPlan, error)
	// GetOwnedPlan fails NOT_FOUND for missing plans and plans of other users.
	GetOwnedPlan(dbc dbctx.Context, userID, planID uuid.UUID) (*types.StudyPlan, error)
	List(dbc dbctx.Context, userID uuid.UUID, in ListStudyPlansInput) (Page[StudyPlanView], error)
	Archive(dbc dbctx.Context, userID, planID uuid.UUID) (*types.StudyPlan, error)
	Unarchive(dbc dbctx.Context, userID, planID uuid.UUID) (*types.StudyPlan, error)
	// Delete removes the plan with its sessions and their feedback.
	Delete(dbc dbctx.Context, userID, planID uuid.UUID) error
}

type studyPlanService struct {
	db       *gorm.DB
	log      *logger.Logger
	plans    repos.StudyPlanRepo
	sessions repos.ReviewSessionRepo
	feedback repos.ReviewSessionFeedbackRepo
}

func NewStudyPlanService(
	db *gorm.DB,
	baseLog *logger.Logger,
	plans repos.StudyPlanRepo,
	sessions repos.ReviewSessionRepo,
	feedback repos.ReviewSessionFeedbackRepo,
) StudyPlanService {
	return &studyPlanService{
		db:       db,
		log:      baseLog.With("service", "StudyPlanService"),
		plans:    plans,
		sessions: sessions,
		feedback: feedback,
	}
}

func (s *studyPlanService) Create(dbc dbctx.Context, userID uuid.UUID, in CreateStudyPlanInput) (*types.StudyPlan, error) {
	const op = "study_plan.create"
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validation(op, "title is required")
	}
	if utf8.RuneCountInString(title) > MaxPlanTitleLen {
		return nil, validation(op, "title must be at most 200 characters")
	}
	words := study.CountWords(in.SourceMaterial)
	if words < MinPlanWords || words > MaxPlanWords {
		return nil, apierr.Newf(apierr.CodeValidation, op, "source material must contain between %d and %d words (got %d)", MinPlanWords, MaxPlanWords, words)
	}

	plan := &types.StudyPlan{
		UserID:         userID,
		Title:          title,
		TitleKey:       study.TitleKey(title),
		SourceMaterial: in.SourceMaterial,
		WordCount:      words,
		Status:         string(study.PlanActive),
	}
	if _, err := s.plans.Create(dbc, plan); err != nil {
		if dberr.IsUniqueViolation(err) {
			return nil, apierr.New(apierr.CodeConflict, op, "a study plan with this title already exists")
		}
		return nil, storeErr(op, err)
	}
	s.log.Info("study plan created", "user_id", userID, "plan_id", plan.ID, "word_count", words)
	return plan, nil
}

func (s *studyPlanService) Get(dbc dbctx.Context, userID, planID uuid.UUID) (*types.StudyPlan, error) {
	return s.GetOwnedPlan(dbc, userID, planID)
}

func (s *studyPlanService) GetOwnedPlan(dbc dbctx.Context, userID, planID uuid.UUID) (*types.StudyPlan, error) {
	const op = "study_plan.get"
	plan, err := s.plans.GetByIDForUser(dbc, userID, planID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if plan == nil {
		return nil, notFound(op, "study plan")
	}
	return plan, nil
}

func (s *studyPlanService) List(dbc dbctx.Context, userID uuid.UUID, in ListStudyPlansInput) (Page[StudyPlanView], error) {
	const op = "study_plan.list"
	pr, err := in.PageRequest.Resolve()
	if err != nil {
		return Page[StudyPlanView]{}, err
	}
	status := strings.TrimSpace(in.Status)
	if status != "" && status != string(study.PlanActive) && status != string(study.PlanArchived) {
		return Page[StudyPlanView]{}, validation(op, "status must be active or archived")
	}
	rows, total, err := s.plans.List(dbc, userID, repos.StudyPlanFilter{
		Status: status,
		Search: in.Search,
		Limit:  pr.PageSize,
		Offset: pr.Offset(),
	})
	if err != nil {
		return Page[StudyPlanView]{}, storeErr(op, err)
	}
	items := make([]StudyPlanView, 0, len(rows))
	for _, p := range rows {
		items = append(items, NewStudyPlanView(p))
	}
	return Page[StudyPlanView]{Items: items, Page: pr.Page, PageSize: pr.PageSize, Total: total}, nil
}

func (s *studyPlanService) Archive(dbc dbctx.Context, userID, planID uuid.UUID) (*types.StudyPlan, error) {
	return s.setStatus(dbc, userID, planID, study.PlanArchived)
}

func (s *studyPlanService) Unarchive(dbc dbctx.Context, userID, planID uuid.UUID) (*types.StudyPlan, error) {
	return s.setStatus(dbc, userID, planID, study.PlanActive)
}

func (s *studyPlanService) setStatus(dbc dbctx.Context, userID, planID uuid.UUID, to study.PlanStatus) (*types.StudyPlan, error) {
	const op = "study_plan.set_status"
	plan, err := s.GetOwnedPlan(dbc, userID, planID)
	if err != nil {
		return nil, err
	}
	if study.PlanStatus(plan.Status) == to {
		return plan, nil
	}
	now := time.Now().UTC()
	ok, err := s.plans.UpdateFields(dbc, userID, planID, map[string]interface{}{
		"status":     string(to),
		"updated_at": now,
	})
	if err != nil {
		return nil, storeErr(op, err)
	}
	if !ok {
		return nil, notFound(op, "study plan")
	}
	plan.Status = string(to)
	plan.UpdatedAt = now
	s.log.Info("study plan status changed", "user_id", userID, "plan_id", planID, "status", to)
	return plan, nil
}

func (s *studyPlanService) Delete(dbc dbctx.Context, userID, planID uuid.UUID) error {
	const op = "study_plan.delete"
	return s.transaction(dbc, func(inner dbctx.Context) error {
		if _, err := s.GetOwnedPlan(inner, userID, planID); err != nil {
			return err
		}
		if _, err := s.feedback.DeleteByPlan(inner, userID, planID); err != nil {
			return storeErr(op, err)
		}
		removed, err := s.sessions.DeleteByPlan(inner, userID, planID)
		if err != nil {
			return storeErr(op, err)
		}
		ok, err := s.plans.Delete(inner, userID, planID)
		if err != nil {
			return storeErr(op, err)
		}
		if !ok {
			return notFound(op, "study plan")
		}
		s.log.Info("study plan deleted", "user_id", userID, "plan_id", planID, "sessions_removed", removed)
		return nil
	})
}

func (s *studyPlanService) transaction(dbc dbctx.Context, fn func(dbctx.Context) error) error {
	return runInTx(s.db, dbc, fn)
}

// runInTx runs fn inside a transaction, nesting as a savepoint when dbc
// already carries one.
func runInTx(db *gorm.DB, dbc dbctx.Context, fn func(dbctx.Context) error) error {
	base := dbc.Tx
	if base == nil {
		base = db
	}
	return base.WithContext(dbc.Context()).Transaction(func(tx *gorm.DB) error {
		return fn(dbc.WithTx(tx))
	})
}
