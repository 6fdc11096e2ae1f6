package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

// ReviewSessionFilter narrows List. Nil fields do not filter.
type ReviewSessionFilter struct {
	StudyPlanID   *uuid.UUID
	DateFrom      *time.Time
	DateTo        *time.Time
	Status        *string
	IsCompleted   *bool
	TaxonomyLevel *string
	IsAIGenerated *bool
	Descending    bool
	Limit         int
	Offset        int
}

// SessionStatRow is the slice of a session needed for plan statistics.
type SessionStatRow struct {
	Status   string
	Metadata datatypes.JSONType[types.EditMetadata]
}

type ReviewSessionRepo interface {
	// Create inserts rows in one statement, preserving slice order.
	Create(dbc dbctx.Context, rows []*types.ReviewSession) ([]*types.ReviewSession, error)
	GetByIDForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.ReviewSession, error)
	List(dbc dbctx.Context, userID uuid.UUID, f ReviewSessionFilter) ([]*types.ReviewSession, int64, error)
	UpdateFields(dbc dbctx.Context, userID, id uuid.UUID, updates map[string]interface{}) (bool, error)
	// UpdateStatusForPlan moves every session of a plan in fromStatus to
	// toStatus and returns the number of rows changed.
	UpdateStatusForPlan(dbc dbctx.Context, userID, planID uuid.UUID, fromStatus, toStatus string, at time.Time) (int64, error)
	Delete(dbc dbctx.Context, userID, id uuid.UUID) (bool, error)
	DeleteByPlan(dbc dbctx.Context, userID, planID uuid.UUID) (int64, error)
	AIStatsRows(dbc dbctx.Context, userID, planID uuid.UUID) ([]SessionStatRow, error)
}

type reviewSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewSessionRepo(db *gorm.DB, baseLog *logger.Logger) ReviewSessionRepo {
	return &reviewSessionRepo{db: db, log: baseLog.With("repo", "ReviewSessionRepo")}
}

func (r *reviewSessionRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Context())
}

func (r *reviewSessionRepo) Create(dbc dbctx.Context, rows []*types.ReviewSession) ([]*types.ReviewSession, error) {
	if len(rows) == 0 {
		return []*types.ReviewSession{}, nil
	}
	if err := r.tx(dbc).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *reviewSessionRepo) GetByIDForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.ReviewSession, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var out []*types.ReviewSession
	if err := r.tx(dbc).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *reviewSessionRepo) List(dbc dbctx.Context, userID uuid.UUID, f ReviewSessionFilter) ([]*types.ReviewSession, int64, error) {
	q := r.tx(dbc).Model(&types.ReviewSession{}).Where("user_id = ?", userID)
	if f.StudyPlanID != nil {
		q = q.Where("study_plan_id = ?", *f.StudyPlanID)
	}
	if f.DateFrom != nil {
		q = q.Where("review_date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("review_date <= ?", *f.DateTo)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.IsCompleted != nil {
		q = q.Where("is_completed = ?", *f.IsCompleted)
	}
	if f.TaxonomyLevel != nil {
		q = q.Where("taxonomy_level = ?", *f.TaxonomyLevel)
	}
	if f.IsAIGenerated != nil {
		q = q.Where("is_ai_generated = ?", *f.IsAIGenerated)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if f.Descending {
		dir = "DESC"
	}
	q = q.Order("review_date " + dir).Order("created_at " + dir).Order("id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var out []*types.ReviewSession
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *reviewSessionRepo) UpdateFields(dbc dbctx.Context, userID, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := r.tx(dbc).
		Model(&types.ReviewSession{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *reviewSessionRepo) UpdateStatusForPlan(dbc dbctx.Context, userID, planID uuid.UUID, fromStatus, toStatus string, at time.Time) (int64, error) {
	res := r.tx(dbc).
		Model(&types.ReviewSession{}).
		Where("user_id = ? AND study_plan_id = ? AND status = ?", userID, planID, fromStatus).
		Updates(map[string]interface{}{
			"status":            toStatus,
			"status_changed_at": at,
			"updated_at":        at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *reviewSessionRepo) Delete(dbc dbctx.Context, userID, id uuid.UUID) (bool, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return false, nil
	}
	res := r.tx(dbc).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.ReviewSession{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *reviewSessionRepo) DeleteByPlan(dbc dbctx.Context, userID, planID uuid.UUID) (int64, error) {
	res := r.tx(dbc).
		Where("user_id = ? AND study_plan_id = ?", userID, planID).
		Delete(&types.ReviewSession{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *reviewSessionRepo) AIStatsRows(dbc dbctx.Context, userID, planID uuid.UUID) ([]SessionStatRow, error) {
	var out []SessionStatRow
	if err := r.tx(dbc).
		Model(&types.ReviewSession{}).
		Select("status, metadata").
		Where("user_id = ? AND study_plan_id = ? AND is_ai_generated = ?", userID, planID, true).
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
