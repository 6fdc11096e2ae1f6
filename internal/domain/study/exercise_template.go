package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExerciseTemplate is global reference data describing a kind of exercise.
type ExerciseTemplate struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name                 string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description          string    `gorm:"column:description;type:text" json:"description,omitempty"`
	Prompt               string    `gorm:"column:prompt;type:text" json:"prompt,omitempty"`
	DefaultTaxonomyLevel *string   `gorm:"column:default_taxonomy_level" json:"default_taxonomy_level,omitempty"`
	IsActive             bool      `gorm:"column:is_active;not null;index" json:"is_active"`
	CreatedAt            time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time `gorm:"not null" json:"updated_at"`
}

func (ExerciseTemplate) TableName() string { return "exercise_template" }

func (t *ExerciseTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
