package services

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/dberr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/study"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/apierr"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

type ListReviewSessionsInput struct {
	StudyPlanID   *uuid.UUID
	DateFrom      string
	DateTo        string
	Status        string
	IsCompleted   *bool
	TaxonomyLevel string
	IsAIGenerated *bool
	// SortOrder is asc (default) or desc; sorting is always by review date.
	SortOrder string
	PageRequest
}

type CreateReviewSessionInput struct {
	StudyPlanID        uuid.UUID
	ExerciseTemplateID *uuid.UUID
	ExerciseLabel      string
	ReviewDate         string
	TaxonomyLevel      string
	Content            types.SessionContent
	Notes              *string
}

// UpdateReviewSessionInput is a partial update; nil fields are left alone.
// An empty Notes string clears the notes.
type UpdateReviewSessionInput struct {
	ReviewDate         *string
	ExerciseTemplateID *uuid.UUID
	ExerciseLabel      *string
	TaxonomyLevel      *string
	Status             *string
	Content            *types.SessionContent
	Notes              *string
}

func (in UpdateReviewSessionInput) empty() bool {
	return in.ReviewDate == nil && in.ExerciseTemplateID == nil && in.ExerciseLabel == nil &&
		in.TaxonomyLevel == nil && in.Status == nil && in.Content == nil && in.Notes == nil
}

type FeedbackInput struct {
	Rating  int
	Comment *string
}

type FeedbackView struct {
	ID              uuid.UUID `json:"id"`
	ReviewSessionID uuid.UUID `json:"reviewSessionId"`
	Rating          int       `json:"rating"`
	Comment         *string   `json:"comment"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AIStats summarizes how users curated AI generated sessions of one plan.
type AIStats struct {
	StudyPlanID     uuid.UUID `json:"studyPlanId"`
	TotalAISessions int       `json:"totalAiSessions"`
	Proposed        int       `json:"proposed"`
	Accepted        int       `json:"accepted"`
	Rejected        int       `json:"rejected"`
	Edited          int       `json:"edited"`
	AcceptanceRate  float64   `json:"acceptanceRate"`
	// EditRate is edited accepted sessions over accepted sessions.
	EditRate float64 `json:"editRate"`
}

type ReviewSessionService interface {
	List(dbc dbctx.Context, userID uuid.UUID, in ListReviewSessionsInput) (Page[ReviewSessionView], error)
	Get(dbc dbctx.Context, userID, sessionID uuid.UUID) (ReviewSessionView, error)
	Create(dbc dbctx.Context, userID uuid.UUID, in CreateReviewSessionInput) (ReviewSessionView, error)
	Update(dbc dbctx.Context, userID, sessionID uuid.UUID, in UpdateReviewSessionInput) (ReviewSessionView, error)
	Complete(dbc dbctx.Context, userID, sessionID uuid.UUID) (ReviewSessionView, error)
	Delete(dbc dbctx.Context, userID, sessionID uuid.UUID) error
	SubmitFeedback(dbc dbctx.Context, userID, sessionID uuid.UUID, in FeedbackInput) (FeedbackView, error)
	AcceptAll(dbc dbctx.Context, userID, planID uuid.UUID) (int64, error)
	RejectAll(dbc dbctx.Context, userID, planID uuid.UUID) (int64, error)
	AIStats(dbc dbctx.Context, userID, planID uuid.UUID) (AIStats, error)
}

type reviewSessionService struct {
	db        *gorm.DB
	log       *logger.Logger
	plans     StudyPlanService
	sessions  repos.ReviewSessionRepo
	templates repos.ExerciseTemplateRepo
	feedback  repos.ReviewSessionFeedbackRepo
	now       func() time.Time
}

func NewReviewSessionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	plans StudyPlanService,
	sessions repos.ReviewSessionRepo,
	templates repos.ExerciseTemplateRepo,
	feedback repos.ReviewSessionFeedbackRepo,
) ReviewSessionService {
	return &reviewSessionService{
		db:        db,
		log:       baseLog.With("service", "ReviewSessionService"),
		plans:     plans,
		sessions:  sessions,
		templates: templates,
		feedback:  feedback,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *reviewSessionService) List(dbc dbctx.Context, userID uuid.UUID, in ListReviewSessionsInput) (Page[ReviewSessionView], error) {
	const op = "review_session.list"
	pr, err := in.PageRequest.Resolve()
	if err != nil {
		return Page[ReviewSessionView]{}, err
	}
	f := repos.ReviewSessionFilter{
		StudyPlanID:   in.StudyPlanID,
		IsCompleted:   in.IsCompleted,
		IsAIGenerated: in.IsAIGenerated,
		Limit:         pr.PageSize,
		Offset:        pr.Offset(),
	}
	if f.DateFrom, err = optionalDate(op, "dateFrom", in.DateFrom); err != nil {
		return Page[ReviewSessionView]{}, err
	}
	if f.DateTo, err = optionalDate(op, "dateTo", in.DateTo); err != nil {
		return Page[ReviewSessionView]{}, err
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return Page[ReviewSessionView]{}, validation(op, "dateFrom must not be after dateTo")
	}
	if raw := strings.TrimSpace(in.Status); raw != "" {
		if !study.SessionStatus(raw).Valid() {
			return Page[ReviewSessionView]{}, validation(op, "unknown status "+raw)
		}
		f.Status = &raw
	}
	if raw := strings.TrimSpace(in.TaxonomyLevel); raw != "" {
		level, ok := study.ParseTaxonomyLevel(raw)
		if !ok {
			return Page[ReviewSessionView]{}, validation(op, "unknown taxonomy level "+raw)
		}
		l := string(level)
		f.TaxonomyLevel = &l
	}
	switch strings.ToLower(strings.TrimSpace(in.SortOrder)) {
	case "", "asc":
	case "desc":
		f.Descending = true
	default:
		return Page[ReviewSessionView]{}, validation(op, "sortOrder must be asc or desc")
	}

	rows, total, err := s.sessions.List(dbc, userID, f)
	if err != nil {
		return Page[ReviewSessionView]{}, storeErr(op, err)
	}
	items, err := s.views(op, rows)
	if err != nil {
		return Page[ReviewSessionView]{}, err
	}
	return Page[ReviewSessionView]{Items: items, Page: pr.Page, PageSize: pr.PageSize, Total: total}, nil
}

func (s *reviewSessionService) Get(dbc dbctx.Context, userID, sessionID uuid.UUID) (ReviewSessionView, error) {
	const op = "review_session.get"
	row, err := s.load(dbc, op, userID, sessionID)
	if err != nil {
		return ReviewSessionView{}, err
	}
	return s.view(op, row)
}

func (s *reviewSessionService) Create(dbc dbctx.Context, userID uuid.UUID, in CreateReviewSessionInput) (ReviewSessionView, error) {
	const op = "review_session.create"
	plan, err := s.plans.GetOwnedPlan(dbc, userID, in.StudyPlanID)
	if err != nil {
		return ReviewSessionView{}, err
	}
	if plan.IsArchived() {
		return ReviewSessionView{}, apierr.New(apierr.CodeConflict, op, "study plan is archived")
	}
	date, err := requiredDate(op, in.ReviewDate)
	if err != nil {
		return ReviewSessionView{}, err
	}
	level, ok := study.ParseTaxonomyLevel(in.TaxonomyLevel)
	if !ok {
		return ReviewSessionView{}, validation(op, "taxonomyLevel must be one of "+strings.Join(study.TaxonomyLevelStrings(), ", "))
	}
	content, err := writableContent(op, in.Content)
	if err != nil {
		return ReviewSessionView{}, err
	}
	label := strings.TrimSpace(in.ExerciseLabel)
	if in.ExerciseTemplateID != nil {
		tpl, err := s.activeTemplate(dbc, op, *in.ExerciseTemplateID)
		if err != nil {
			return ReviewSessionView{}, err
		}
		if label == "" {
			label = tpl.Name
		}
	}
	if err := checkLabel(op, label); err != nil {
		return ReviewSessionView{}, err
	}

	row := &types.ReviewSession{
		UserID:             userID,
		StudyPlanID:        plan.ID,
		ExerciseTemplateID: in.ExerciseTemplateID,
		ExerciseLabel:      label,
		ReviewDate:         date,
		TaxonomyLevel:      string(level),
		Status:             string(study.StatusAccepted),
		IsAIGenerated:      false,
		IsCompleted:        false,
		Content:            content,
		Metadata:           datatypes.NewJSONType(types.EditMetadata{}),
		Notes:              normalizeNotes(in.Notes),
	}
	if _, err := s.sessions.Create(dbc, []*types.ReviewSession{row}); err != nil {
		return ReviewSessionView{}, storeErr(op, err)
	}
	s.log.Info("review session created", "user_id", userID, "session_id", row.ID, "plan_id", plan.ID)
	return s.view(op, row)
}

func (s *reviewSessionService) Update(dbc dbctx.Context, userID, sessionID uuid.UUID, in UpdateReviewSessionInput) (ReviewSessionView, error) {
	const op = "review_session.update"
	if in.empty() {
		return ReviewSessionView{}, validation(op, "at least one field must be provided")
	}
	var out ReviewSessionView
	err := runInTx(s.db, dbc, func(inner dbctx.Context) error {
		cur, err := s.loadIntact(inner, op, userID, sessionID)
		if err != nil {
			return err
		}
		now := s.now()
		updates := map[string]interface{}{}

		if in.ReviewDate != nil {
			date, err := requiredDate(op, *in.ReviewDate)
			if err != nil {
				return err
			}
			updates["review_date"] = date
		}
		if in.ExerciseTemplateID != nil {
			if _, err := s.activeTemplate(inner, op, *in.ExerciseTemplateID); err != nil {
				return err
			}
			updates["exercise_template_id"] = *in.ExerciseTemplateID
		}
		if in.ExerciseLabel != nil {
			label := strings.TrimSpace(*in.ExerciseLabel)
			if err := checkLabel(op, label); err != nil {
				return err
			}
			updates["exercise_label"] = label
		}
		if in.TaxonomyLevel != nil {
			level, ok := study.ParseTaxonomyLevel(*in.TaxonomyLevel)
			if !ok {
				return validation(op, "taxonomyLevel must be one of "+strings.Join(study.TaxonomyLevelStrings(), ", "))
			}
			updates["taxonomy_level"] = string(level)
		}
		if in.Status != nil {
			to := study.SessionStatus(strings.TrimSpace(*in.Status))
			if !to.Valid() {
				return validation(op, "unknown status "+string(to))
			}
			from := study.SessionStatus(cur.Status)
			if !study.CanTransition(from, to) {
				return apierr.Newf(apierr.CodeInvalidStatusTransition, op, "cannot change status from %s to %s", from, to)
			}
			if from != to {
				updates["status"] = string(to)
				updates["status_changed_at"] = now
			}
		}
		if in.Content != nil {
			content, err := writableContent(op, *in.Content)
			if err != nil {
				return err
			}
			if !sameContent(cur.Content, content) {
				updates["content"] = content
				if meta := cur.Metadata.Data(); cur.IsAIGenerated && !meta.Edited {
					editedAt := now
					updates["metadata"] = datatypes.NewJSONType(types.EditMetadata{Edited: true, EditedAt: &editedAt})
				}
			}
		}
		if in.Notes != nil {
			updates["notes"] = normalizeNotes(in.Notes)
		}

		if len(updates) > 0 {
			updates["updated_at"] = now
			ok, err := s.sessions.UpdateFields(inner, userID, sessionID, updates)
			if err != nil {
				return storeErr(op, err)
			}
			if !ok {
				return notFound(op, "review session")
			}
		}
		row, err := s.load(inner, op, userID, sessionID)
		if err != nil {
			return err
		}
		out, err = s.view(op, row)
		return err
	})
	if err != nil {
		return ReviewSessionView{}, err
	}
	return out, nil
}

func (s *reviewSessionService) Complete(dbc dbctx.Context, userID, sessionID uuid.UUID) (ReviewSessionView, error) {
	const op = "review_session.complete"
	var out ReviewSessionView
	err := runInTx(s.db, dbc, func(inner dbctx.Context) error {
		cur, err := s.loadIntact(inner, op, userID, sessionID)
		if err != nil {
			return err
		}
		if cur.IsCompleted {
			return apierr.New(apierr.CodeSessionAlreadyCompleted, op, "review session is already completed")
		}
		now := s.now()
		if _, err := s.sessions.UpdateFields(inner, userID, sessionID, map[string]interface{}{
			"is_completed": true,
			"completed_at": now,
			"updated_at":   now,
		}); err != nil {
			return storeErr(op, err)
		}
		cur.IsCompleted = true
		cur.CompletedAt = &now
		cur.UpdatedAt = now
		out, err = s.view(op, cur)
		return err
	})
	if err != nil {
		return ReviewSessionView{}, err
	}
	s.log.Info("review session completed", "user_id", userID, "session_id", sessionID)
	return out, nil
}

func (s *reviewSessionService) Delete(dbc dbctx.Context, userID, sessionID uuid.UUID) error {
	const op = "review_session.delete"
	cur, err := s.sessions.GetByIDForUser(dbc, userID, sessionID)
	if err != nil {
		return storeErr(op, err)
	}
	if cur == nil {
		return notFound(op, "review session")
	}
	if cur.IsAIGenerated {
		return apierr.New(apierr.CodeDeleteNotAllowed, op, "AI generated sessions cannot be deleted; reject them instead")
	}
	ok, err := s.sessions.Delete(dbc, userID, sessionID)
	if err != nil {
		return storeErr(op, err)
	}
	if !ok {
		return notFound(op, "review session")
	}
	s.log.Info("review session deleted", "user_id", userID, "session_id", sessionID)
	return nil
}

func (s *reviewSessionService) SubmitFeedback(dbc dbctx.Context, userID, sessionID uuid.UUID, in FeedbackInput) (FeedbackView, error) {
	const op = "review_session.feedback"
	if in.Rating < MinFeedbackScore || in.Rating > MaxFeedbackScore {
		return FeedbackView{}, validation(op, "rating must be between 1 and 5")
	}
	cur, err := s.sessions.GetByIDForUser(dbc, userID, sessionID)
	if err != nil {
		return FeedbackView{}, storeErr(op, err)
	}
	if cur == nil {
		return FeedbackView{}, notFound(op, "review session")
	}
	if !cur.IsCompleted {
		return FeedbackView{}, apierr.New(apierr.CodeSessionNotCompleted, op, "feedback can only be submitted for completed sessions")
	}
	exists, err := s.feedback.Exists(dbc, sessionID, userID)
	if err != nil {
		return FeedbackView{}, storeErr(op, err)
	}
	alreadySubmitted := apierr.New(apierr.CodeFeedbackAlreadySubmitted, op, "feedback was already submitted for this session")
	if exists {
		return FeedbackView{}, alreadySubmitted
	}
	fb := &types.ReviewSessionFeedback{
		ReviewSessionID: sessionID,
		UserID:          userID,
		Rating:          in.Rating,
		Comment:         normalizeNotes(in.Comment),
	}
	if _, err := s.feedback.Create(dbc, fb); err != nil {
		if dberr.IsUniqueViolation(err) {
			return FeedbackView{}, alreadySubmitted
		}
		return FeedbackView{}, storeErr(op, err)
	}
	return FeedbackView{
		ID:              fb.ID,
		ReviewSessionID: fb.ReviewSessionID,
		Rating:          fb.Rating,
		Comment:         fb.Comment,
		CreatedAt:       fb.CreatedAt,
	}, nil
}

func (s *reviewSessionService) AcceptAll(dbc dbctx.Context, userID, planID uuid.UUID) (int64, error) {
	return s.resolveProposed(dbc, userID, planID, study.StatusAccepted)
}

func (s *reviewSessionService) RejectAll(dbc dbctx.Context, userID, planID uuid.UUID) (int64, error) {
	return s.resolveProposed(dbc, userID, planID, study.StatusRejected)
}

func (s *reviewSessionService) resolveProposed(dbc dbctx.Context, userID, planID uuid.UUID, to study.SessionStatus) (int64, error) {
	const op = "review_session.resolve_proposed"
	if _, err := s.plans.GetOwnedPlan(dbc, userID, planID); err != nil {
		return 0, err
	}
	n, err := s.sessions.UpdateStatusForPlan(dbc, userID, planID, string(study.StatusProposed), string(to), s.now())
	if err != nil {
		return 0, storeErr(op, err)
	}
	s.log.Info("proposed sessions resolved", "user_id", userID, "plan_id", planID, "status", to, "count", n)
	return n, nil
}

func (s *reviewSessionService) AIStats(dbc dbctx.Context, userID, planID uuid.UUID) (AIStats, error) {
	const op = "review_session.ai_stats"
	if _, err := s.plans.GetOwnedPlan(dbc, userID, planID); err != nil {
		return AIStats{}, err
	}
	rows, err := s.sessions.AIStatsRows(dbc, userID, planID)
	if err != nil {
		return AIStats{}, storeErr(op, err)
	}
	return computeAIStats(planID, rows), nil
}

func computeAIStats(planID uuid.UUID, rows []repos.SessionStatRow) AIStats {
	st := AIStats{StudyPlanID: planID, TotalAISessions: len(rows)}
	editedAccepted := 0
	for _, r := range rows {
		edited := r.Metadata.Data().Edited
		if edited {
			st.Edited++
		}
		switch study.SessionStatus(r.Status) {
		case study.StatusProposed:
			st.Proposed++
		case study.StatusAccepted:
			st.Accepted++
			if edited {
				editedAccepted++
			}
		case study.StatusRejected:
			st.Rejected++
		}
	}
	if st.TotalAISessions > 0 {
		st.AcceptanceRate = float64(st.Accepted) / float64(st.TotalAISessions)
	}
	if st.Accepted > 0 {
		st.EditRate = float64(editedAccepted) / float64(st.Accepted)
	}
	return st
}

func (s *reviewSessionService) load(dbc dbctx.Context, op string, userID, sessionID uuid.UUID) (*types.ReviewSession, error) {
	row, err := s.sessions.GetByIDForUser(dbc, userID, sessionID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if row == nil {
		return nil, notFound(op, "review session")
	}
	return row, nil
}

// loadIntact is load for write paths: corrupt content fails the request
// before anything is written.
func (s *reviewSessionService) loadIntact(dbc dbctx.Context, op string, userID, sessionID uuid.UUID) (*types.ReviewSession, error) {
	row, err := s.load(dbc, op, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.view(op, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *reviewSessionService) activeTemplate(dbc dbctx.Context, op string, id uuid.UUID) (*types.ExerciseTemplate, error) {
	rows, err := s.templates.FindActiveByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, storeErr(op, err)
	}
	if len(rows) != 1 {
		return nil, validation(op, "exercise template is invalid or inactive")
	}
	return rows[0], nil
}

func (s *reviewSessionService) view(op string, row *types.ReviewSession) (ReviewSessionView, error) {
	v, err := NewReviewSessionView(row)
	if err != nil {
		s.log.Error("corrupt review session content", "session_id", row.ID, "error", err)
		return ReviewSessionView{}, integrityErr(op, err)
	}
	return v, nil
}

func (s *reviewSessionService) views(op string, rows []*types.ReviewSession) ([]ReviewSessionView, error) {
	out := make([]ReviewSessionView, 0, len(rows))
	for _, r := range rows {
		v, err := s.view(op, r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func optionalDate(op, field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := study.ParseDate(raw)
	if err != nil {
		return nil, validation(op, field+" must be a YYYY-MM-DD date")
	}
	return &t, nil
}

func requiredDate(op, raw string) (time.Time, error) {
	t, err := optionalDate(op, "reviewDate", raw)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, validation(op, "reviewDate is required")
	}
	return *t, nil
}

func checkLabel(op, label string) error {
	if label == "" {
		return validation(op, "exerciseLabel is required")
	}
	if utf8.RuneCountInString(label) > MaxLabelLen {
		return validation(op, "exerciseLabel must be at most 200 characters")
	}
	return nil
}

// writableContent validates user supplied content and encodes it for storage.
func writableContent(op string, c types.SessionContent) (datatypes.JSON, error) {
	if err := c.Validate(); err != nil {
		return nil, apierr.Wrap(apierr.CodeValidation, op, err)
	}
	if len(c.Questions) == 0 {
		return nil, validation(op, "content must contain at least one question")
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeValidation, op, err)
	}
	return datatypes.JSON(b), nil
}

// sameContent compares a stored blob with canonical encoded content. Stored
// jsonb may differ in key order and spacing.
func sameContent(stored []byte, canonical []byte) bool {
	prev, err := study.ParseContent(stored)
	if err != nil {
		return false
	}
	b, err := json.Marshal(prev)
	if err != nil {
		return false
	}
	return bytes.Equal(b, canonical)
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	v := strings.TrimSpace(*notes)
	if v == "" {
		return nil
	}
	return &v
}
