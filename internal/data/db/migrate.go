package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	// Workers poll runnable jobs oldest first.
	if err := db.Exec(`
    CREATE INDEX IF NOT EXISTS idx_job_run_runnable
    ON job_run (created_at)
    WHERE status IN ('queued', 'failed', 'running') AND deleted_at IS NULL
  `).Error; err != nil {
		return fmt.Errorf("create idx_job_run_runnable: %w", err)
	}
	if err := db.Exec(`
    CREATE INDEX IF NOT EXISTS idx_review_session_plan_date
    ON review_session (study_plan_id, review_date)
  `).Error; err != nil {
		return fmt.Errorf("create idx_review_session_plan_date: %w", err)
	}
	return nil
}
