package study

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
)

type ReviewSessionFeedbackRepo interface {
	Create(dbc dbctx.Context, fb *types.ReviewSessionFeedback) (*types.ReviewSessionFeedback, error)
	Exists(dbc dbctx.Context, sessionID, userID uuid.UUID) (bool, error)
	DeleteByPlan(dbc dbctx.Context, userID, planID uuid.UUID) (int64, error)
}

type reviewSessionFeedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewSessionFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) ReviewSessionFeedbackRepo {
	return &reviewSessionFeedbackRepo{db: db, log: baseLog.With("repo", "ReviewSessionFeedbackRepo")}
}

func (r *reviewSessionFeedbackRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Context())
}

func (r *reviewSessionFeedbackRepo) Create(dbc dbctx.Context, fb *types.ReviewSessionFeedback) (*types.ReviewSessionFeedback, error) {
	if err := r.tx(dbc).Create(fb).Error; err != nil {
		return nil, err
	}
	return fb, nil
}

func (r *reviewSessionFeedbackRepo) Exists(dbc dbctx.Context, sessionID, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.tx(dbc).
		Model(&types.ReviewSessionFeedback{}).
		Where("review_session_id = ? AND user_id = ?", sessionID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *reviewSessionFeedbackRepo) DeleteByPlan(dbc dbctx.Context, userID, planID uuid.UUID) (int64, error) {
	sub := r.tx(dbc).
		Model(&types.ReviewSession{}).
		Select("id").
		Where("user_id = ? AND study_plan_id = ?", userID, planID)
	res := r.tx(dbc).
		Where("review_session_id IN (?)", sub).
		Delete(&types.ReviewSessionFeedback{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
