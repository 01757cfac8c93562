package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

// CommentService handles comment business logic
type CommentService struct {
	commentRepo   repository.CommentRepository
	taskRepo      repository.TaskRepository
	projectRepo   repository.ProjectRepository
	workspaceRepo repository.WorkspaceRepository
}

func NewCommentService(commentRepo repository.CommentRepository, taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, workspaceRepo repository.WorkspaceRepository) *CommentService {
	return &CommentService{
		commentRepo:   commentRepo,
		taskRepo:      taskRepo,
		projectRepo:   projectRepo,
		workspaceRepo: workspaceRepo,
	}
}

// Create adds a comment authored by requesterID. Any project member may comment.
func (s *CommentService) Create(ctx context.Context, requesterID, taskID, content string) (*models.Comment, error) {
	if taskID == "" {
		return nil, ErrTaskIDRequired
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrContentRequired
	}
	if utf8.RuneCountInString(content) > constants.MaxCommentLength {
		return nil, ErrContentTooLong
	}

	project, err := s.projectForTask(ctx, taskID, "Members.User")
	if err != nil {
		return nil, err
	}

	if d := policy.Decide(requesterID, policy.ActionCommentCreate, policy.ForProject(project, nil)); !d.Allowed {
		return nil, d.Err
	}

	comment := &models.Comment{
		TaskID:  taskID,
		UserID:  requesterID,
		Content: content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	created, err := s.commentRepo.FindByID(ctx, comment.ID, "User")
	if err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	return created, nil
}

// ListForTask returns the task's comments oldest first. The requester must
// belong to the workspace that owns the task.
func (s *CommentService) ListForTask(ctx context.Context, requesterID, taskID string) ([]models.Comment, error) {
	project, err := s.projectForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if _, err := s.workspaceRepo.FindMember(ctx, project.WorkspaceID, requesterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, policy.ErrNotWorkspaceMember
		}
		return nil, fmt.Errorf("failed to verify workspace membership: %w", err)
	}

	comments, err := s.commentRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (s *CommentService) projectForTask(ctx context.Context, taskID string, preload ...string) (*models.Project, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	project, err := s.projectRepo.FindByID(ctx, task.ProjectID, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}
