package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/study"
)

// ReviewSessionView is the public shape of a review session.
type ReviewSessionView struct {
	ID                 uuid.UUID            `json:"id"`
	StudyPlanID        uuid.UUID            `json:"studyPlanId"`
	ExerciseTemplateID *uuid.UUID           `json:"exerciseTemplateId"`
	ExerciseLabel      string               `json:"exerciseLabel"`
	ReviewDate         string               `json:"reviewDate"`
	TaxonomyLevel      string               `json:"taxonomyLevel"`
	Status             string               `json:"status"`
	IsAIGenerated      bool                 `json:"isAiGenerated"`
	IsCompleted        bool                 `json:"isCompleted"`
	Content            types.SessionContent `json:"content"`
	Notes              *string              `json:"notes"`
	StatusChangedAt    *time.Time           `json:"statusChangedAt"`
	CompletedAt        *time.Time           `json:"completedAt"`
	CreatedAt          time.Time            `json:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
}

// NewReviewSessionView validates the stored content. A malformed blob is
// reported as study.ErrInvalidContent.
func NewReviewSessionView(s *types.ReviewSession) (ReviewSessionView, error) {
	content, err := s.ParsedContent()
	if err != nil {
		return ReviewSessionView{}, err
	}
	return ReviewSessionView{
		ID:                 s.ID,
		StudyPlanID:        s.StudyPlanID,
		ExerciseTemplateID: s.ExerciseTemplateID,
		ExerciseLabel:      s.ExerciseLabel,
		ReviewDate:         s.ReviewDate.UTC().Format(study.DateLayout),
		TaxonomyLevel:      s.TaxonomyLevel,
		Status:             s.Status,
		IsAIGenerated:      s.IsAIGenerated,
		IsCompleted:        s.IsCompleted,
		Content:            content,
		Notes:              s.Notes,
		StatusChangedAt:    s.StatusChangedAt,
		CompletedAt:        s.CompletedAt,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}, nil
}

type StudyPlanView struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	SourceMaterial string    `json:"sourceMaterial"`
	WordCount      int       `json:"wordCount"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func NewStudyPlanView(p *types.StudyPlan) StudyPlanView {
	return StudyPlanView{
		ID:             p.ID,
		Title:          p.Title,
		SourceMaterial: p.SourceMaterial,
		WordCount:      p.WordCount,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

type ExerciseTemplateView struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	DefaultTaxonomyLevel *string   `json:"defaultTaxonomyLevel"`
}

func NewExerciseTemplateView(t *types.ExerciseTemplate) ExerciseTemplateView {
	return ExerciseTemplateView{
		ID:                   t.ID,
		Name:                 t.Name,
		Description:          t.Description,
		DefaultTaxonomyLevel: t.DefaultTaxonomyLevel,
	}
}

// Page is a paginated list envelope.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

// PageRequest is normalized by Resolve: page >= 1, pageSize in 1..MaxPageSize.
type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) Resolve() (PageRequest, error) {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	if p.Page < 1 {
		return p, validation("page", "page must be >= 1")
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return p, validation("page", "pageSize must be between 1 and 200")
	}
	return p, nil
}

func (p PageRequest) Offset() int { return (p.Page - 1) * p.PageSize }

// JobView is the public shape of a job run. Payload is not exposed.
type JobView struct {
	ID          uuid.UUID       `json:"id"`
	JobType     string          `json:"jobType"`
	EntityType  string          `json:"entityType,omitempty"`
	EntityID    *uuid.UUID      `json:"entityId,omitempty"`
	Status      string          `json:"status"`
	Stage       string          `json:"stage"`
	Progress    int             `json:"progress"`
	Attempts    int             `json:"attempts"`
	Error       string          `json:"error,omitempty"`
	ErrorCode   string          `json:"errorCode,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	LastErrorAt *time.Time      `json:"lastErrorAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func NewJobView(j *types.JobRun) JobView {
	if j == nil {
		return JobView{}
	}
	v := JobView{
		ID:          j.ID,
		JobType:     j.JobType,
		EntityType:  j.EntityType,
		EntityID:    j.EntityID,
		Status:      j.Status,
		Stage:       j.Stage,
		Progress:    j.Progress,
		Attempts:    j.Attempts,
		Error:       j.Error,
		ErrorCode:   j.ErrorCode,
		LastErrorAt: j.LastErrorAt,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if raw := strings.TrimSpace(string(j.Result)); raw != "" && raw != "null" && raw != "{}" {
		v.Result = json.RawMessage(j.Result)
	}
	return v
}
