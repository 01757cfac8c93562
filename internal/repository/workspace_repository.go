package repository

import (
	"context"

	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormWorkspaceRepository is a GORM implementation of WorkspaceRepository
type GormWorkspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &GormWorkspaceRepository{db: db}
}

func (r *GormWorkspaceRepository) Create(ctx context.Context, workspace *models.Workspace) error {
	return conn(ctx, r.db).Omit("Owner", "Members", "Projects").Create(workspace).Error
}

// FindByID finds a workspace by ID with optional preloading
func (r *GormWorkspaceRepository) FindByID(ctx context.Context, id string, preload ...string) (*models.Workspace, error) {
	var workspace models.Workspace
	query := conn(ctx, r.db)

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.Where("id = ?", id).First(&workspace).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

func (r *GormWorkspaceRepository) ListForUser(ctx context.Context, userID string) ([]models.Workspace, error) {
	var workspaces []models.Workspace

	db := conn(ctx, r.db)
	memberOf := db.Session(&gorm.Session{NewDB: true}).Model(&models.WorkspaceMember{}).
		Select("workspace_id").Where("user_id = ?", userID)

	err := db.
		Preload("Owner").
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Members.User").
		Preload("Projects", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Projects.Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Projects.Tasks.Assignee").
		Preload("Projects.Tasks.Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Projects.Tasks.Comments.User").
		Where("id IN (?)", memberOf).
		Order("id ASC").
		Find(&workspaces).Error
	if err != nil {
		return nil, err
	}
	return workspaces, nil
}

func (r *GormWorkspaceRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return conn(ctx, r.db).Model(&models.Workspace{}).Where("id = ?", id).Updates(fields).Error
}

// Delete deletes a workspace and all related data in a transaction
func (r *GormWorkspaceRepository) Delete(ctx context.Context, id string) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var projectIDs []string
		if err := tx.Model(&models.Project{}).Where("workspace_id = ?", id).
			Pluck("id", &projectIDs).Error; err != nil {
			return err
		}

		if len(projectIDs) > 0 {
			var taskIDs []string
			if err := tx.Model(&models.Task{}).Where("project_id IN ?", projectIDs).
				Pluck("id", &taskIDs).Error; err != nil {
				return err
			}
			if len(taskIDs) > 0 {
				if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.Comment{}).Error; err != nil {
					return err
				}
				if err := tx.Where("id IN ?", taskIDs).Delete(&models.Task{}).Error; err != nil {
					return err
				}
			}
			if err := tx.Where("project_id IN ?", projectIDs).Delete(&models.ProjectMember{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", projectIDs).Delete(&models.Project{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("workspace_id = ?", id).Delete(&models.WorkspaceMember{}).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", id).Delete(&models.Workspace{}).Error
	})
}

func (r *GormWorkspaceRepository) AddMember(ctx context.Context, member *models.WorkspaceMember) error {
	return conn(ctx, r.db).Omit("User").Create(member).Error
}

func (r *GormWorkspaceRepository) FindMember(ctx context.Context, workspaceID, userID string) (*models.WorkspaceMember, error) {
	var member models.WorkspaceMember
	if err := conn(ctx, r.db).Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *GormWorkspaceRepository) UpdateMemberRole(ctx context.Context, workspaceID, userID string, role models.WorkspaceRole) error {
	return conn(ctx, r.db).Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Update("role", role).Error
}

func (r *GormWorkspaceRepository) RemoveMember(ctx context.Context, workspaceID, userID string) error {
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		var projectIDs []string
		if err := tx.Model(&models.Project{}).Where("workspace_id = ?", workspaceID).
			Pluck("id", &projectIDs).Error; err != nil {
			return err
		}
		if len(projectIDs) > 0 {
			if err := tx.Where("user_id = ? AND project_id IN ?", userID, projectIDs).
				Delete(&models.ProjectMember{}).Error; err != nil {
				return err
			}
			// Tasks the user held in this workspace become unassigned.
			if err := tx.Model(&models.Task{}).Where("assignee_id = ? AND project_id IN ?", userID, projectIDs).
				Update("assignee_id", nil).Error; err != nil {
				return err
			}
		}
		return tx.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
			Delete(&models.WorkspaceMember{}).Error
	})
}
