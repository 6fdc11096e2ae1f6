package study

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

type StudyPlanFilter struct {
	Status string
	// Search matches a case-insensitive title substring.
	Search string
	Limit  int
	Offset int
}

type StudyPlanRepo interface {
	Create(dbc dbctx.Context, plan *types.StudyPlan) (*types.StudyPlan, error)
	GetByIDForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.StudyPlan, error)
	// LockForShare re-reads the plan under FOR SHARE so concurrent deletes
	// block until the caller's transaction ends.
	LockForShare(dbc dbctx.Context, userID, id uuid.UUID) (*types.StudyPlan, error)
	List(dbc dbctx.Context, userID uuid.UUID, f StudyPlanFilter) ([]*types.StudyPlan, int64, error)
	UpdateFields(dbc dbctx.Context, userID, id uuid.UUID, updates map[string]interface{}) (bool, error)
	Delete(dbc dbctx.Context, userID, id uuid.UUID) (bool, error)
}

type studyPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudyPlanRepo(db *gorm.DB, baseLog *logger.Logger) StudyPlanRepo {
	return &studyPlanRepo{db: db, log: baseLog.With("repo", "StudyPlanRepo")}
}

func (r *studyPlanRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Context())
}

func (r *studyPlanRepo) Create(dbc dbctx.Context, plan *types.StudyPlan) (*types.StudyPlan, error) {
	if err := r.tx(dbc).Create(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *studyPlanRepo) GetByIDForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.StudyPlan, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var out []*types.StudyPlan
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

func (r *studyPlanRepo) LockForShare(dbc dbctx.Context, userID, id uuid.UUID) (*types.StudyPlan, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var out []*types.StudyPlan
	if err := r.tx(dbc).
		Clauses(clause.Locking{Strength: "SHARE"}).
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

func (r *studyPlanRepo) List(dbc dbctx.Context, userID uuid.UUID, f StudyPlanFilter) ([]*types.StudyPlan, int64, error) {
	q := r.tx(dbc).Model(&types.StudyPlan{}).Where("user_id = ?", userID)
	if s := strings.TrimSpace(f.Status); s != "" {
		q = q.Where("status = ?", s)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		q = q.Where("title_key LIKE ? ESCAPE '\\'", "%"+escapeLike(s)+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.StudyPlan
	q = q.Order("created_at DESC").Order("id")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *studyPlanRepo) UpdateFields(dbc dbctx.Context, userID, id uuid.UUID, updates map[string]interface{}) (bool, error) {
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
		Model(&types.StudyPlan{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *studyPlanRepo) Delete(dbc dbctx.Context, userID, id uuid.UUID) (bool, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return false, nil
	}
	res := r.tx(dbc).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.StudyPlan{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
