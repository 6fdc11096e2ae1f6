package study

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudyPlan is a user's source material. Titles are unique per user
// ignoring case, enforced through TitleKey.
type StudyPlan struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_study_plan_user_title,priority:1" json:"user_id"`
	Title          string    `gorm:"column:title;not null" json:"title"`
	TitleKey       string    `gorm:"column:title_key;not null;uniqueIndex:idx_study_plan_user_title,priority:2" json:"-"`
	SourceMaterial string    `gorm:"column:source_material;type:text;not null" json:"source_material"`
	WordCount      int       `gorm:"column:word_count;not null" json:"word_count"`
	Status         string    `gorm:"column:status;not null;index" json:"status"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (StudyPlan) TableName() string { return "study_plan" }

func (p *StudyPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.TitleKey == "" {
		p.TitleKey = TitleKey(p.Title)
	}
	return nil
}

func (p *StudyPlan) IsArchived() bool {
	return PlanStatus(p.Status) == PlanArchived
}

// TitleKey is the case-folded form used for per-user uniqueness.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// CountWords counts whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.FieldsFunc(text, unicode.IsSpace))
}
