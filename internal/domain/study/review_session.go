package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DateLayout is the wire format of review dates.
const DateLayout = "2006-01-02"

type ReviewSession struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	StudyPlanID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"study_plan_id"`
	StudyPlan          *StudyPlan `gorm:"foreignKey:StudyPlanID;constraint:OnDelete:CASCADE" json:"-"`
	ExerciseTemplateID *uuid.UUID `gorm:"type:uuid;index" json:"exercise_template_id,omitempty"`
	ExerciseLabel      string     `gorm:"column:exercise_label;not null" json:"exercise_label"`
	ReviewDate         time.Time  `gorm:"column:review_date;type:date;not null;index" json:"review_date"`
	TaxonomyLevel      string     `gorm:"column:taxonomy_level;not null;index" json:"taxonomy_level"`
	Status             string     `gorm:"column:status;not null;index" json:"status"`
	IsAIGenerated      bool       `gorm:"column:is_ai_generated;not null;index" json:"is_ai_generated"`
	IsCompleted        bool       `gorm:"column:is_completed;not null;index" json:"is_completed"`

	// Content is validated on every read; see ParseContent.
	Content datatypes.JSON `gorm:"column:content;type:jsonb;not null" json:"content"`
	// Metadata holds the EditMetadata sidecar.
	Metadata datatypes.JSONType[EditMetadata] `gorm:"column:metadata;type:jsonb" json:"-"`

	Notes           *string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
	StatusChangedAt *time.Time `gorm:"column:status_changed_at" json:"status_changed_at,omitempty"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (ReviewSession) TableName() string { return "review_session" }

func (s *ReviewSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ParsedContent decodes Content, enforcing the question/answer invariant.
func (s *ReviewSession) ParsedContent() (SessionContent, error) {
	return ParseContent(s.Content)
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, raw)
}

// ReviewSessionFeedback is a user's rating of a completed session. One row
// per (session, user).
type ReviewSessionFeedback struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ReviewSessionID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_feedback_session_user,priority:1" json:"review_session_id"`
	ReviewSession   *ReviewSession `gorm:"foreignKey:ReviewSessionID;constraint:OnDelete:CASCADE" json:"-"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_feedback_session_user,priority:2" json:"user_id"`
	Rating          int            `gorm:"column:rating;not null" json:"rating"`
	Comment         *string        `gorm:"column:comment;type:text" json:"comment,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
}

func (ReviewSessionFeedback) TableName() string { return "review_session_feedback" }

func (f *ReviewSessionFeedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
