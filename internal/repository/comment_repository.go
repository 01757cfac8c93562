package repository

import (
	"context"

	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return conn(ctx, r.db).Omit("User").Create(comment).Error
}

func (r *GormCommentRepository) FindByID(ctx context.Context, id string, preload ...string) (*models.Comment, error) {
	var comment models.Comment
	query := conn(ctx, r.db)
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *GormCommentRepository) ListByTask(ctx context.Context, taskID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := conn(ctx, r.db).Preload("User").
		Where("task_id = ?", taskID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
