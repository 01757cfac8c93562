package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormJobRepository is a GORM implementation of JobRepository
type GormJobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db *gorm.DB) JobRepository {
	return &GormJobRepository{db: db}
}

func (r *GormJobRepository) Insert(ctx context.Context, job *models.Job) (bool, error) {
	result := conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedup_key"}},
			DoNothing: true,
		}).
		Create(job)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *GormJobRepository) FindByID(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := conn(ctx, r.db).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *GormJobRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Job, error) {
	var jobs []models.Job
	if err := conn(ctx, r.db).
		Where("status = ? AND run_at <= ?", models.JobStatusPending, now).
		Order("run_at ASC, id ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *GormJobRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	result := conn(ctx, r.db).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, models.JobStatusPending).
		Updates(map[string]interface{}{
			"status":    models.JobStatusRunning,
			"locked_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *GormJobRepository) MarkDone(ctx context.Context, id string, attempts int) error {
	return conn(ctx, r.db).Model(&models.Job{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.JobStatusDone,
			"attempts":   attempts,
			"locked_at":  nil,
			"last_error": "",
		}).Error
}

func (r *GormJobRepository) Reschedule(ctx context.Context, id string, attempts int, runAt time.Time, lastErr string) error {
	return conn(ctx, r.db).Model(&models.Job{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.JobStatusPending,
			"attempts":   attempts,
			"run_at":     runAt,
			"locked_at":  nil,
			"last_error": lastErr,
		}).Error
}

func (r *GormJobRepository) MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error {
	return conn(ctx, r.db).Model(&models.Job{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.JobStatusFailed,
			"attempts":   attempts,
			"locked_at":  nil,
			"last_error": lastErr,
		}).Error
}

func (r *GormJobRepository) ResetRunning(ctx context.Context) (int64, error) {
	result := conn(ctx, r.db).Model(&models.Job{}).
		Where("status = ?", models.JobStatusRunning).
		Updates(map[string]interface{}{
			"status":    models.JobStatusPending,
			"locked_at": nil,
		})
	return result.RowsAffected, result.Error
}
