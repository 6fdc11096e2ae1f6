package study

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

type ExerciseTemplateRepo interface {
	// FindActiveByIDs returns the active templates among ids in one query.
	FindActiveByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ExerciseTemplate, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ExerciseTemplate, error)
	ListActive(dbc dbctx.Context) ([]*types.ExerciseTemplate, error)
	// UpsertByName inserts templates or refreshes the existing row with the
	// same name.
	UpsertByName(dbc dbctx.Context, rows []*types.ExerciseTemplate) error
}

type exerciseTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExerciseTemplateRepo(db *gorm.DB, baseLog *logger.Logger) ExerciseTemplateRepo {
	return &exerciseTemplateRepo{db: db, log: baseLog.With("repo", "ExerciseTemplateRepo")}
}

func (r *exerciseTemplateRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Context())
}

func (r *exerciseTemplateRepo) FindActiveByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.ExerciseTemplate, error) {
	var out []*types.ExerciseTemplate
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *exerciseTemplateRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ExerciseTemplate, error) {
	var out []*types.ExerciseTemplate
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *exerciseTemplateRepo) ListActive(dbc dbctx.Context) ([]*types.ExerciseTemplate, error) {
	var out []*types.ExerciseTemplate
	if err := r.tx(dbc).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *exerciseTemplateRepo) UpsertByName(dbc dbctx.Context, rows []*types.ExerciseTemplate) error {
	if len(rows) == 0 {
		return nil
	}
	return r.tx(dbc).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "prompt", "default_taxonomy_level", "is_active", "updated_at"}),
		}).
		Create(&rows).Error
}
