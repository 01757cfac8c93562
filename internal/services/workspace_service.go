package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

// WorkspaceService handles workspace business logic
type WorkspaceService struct {
	workspaceRepo repository.WorkspaceRepository
	userRepo      repository.UserRepository
}

func NewWorkspaceService(workspaceRepo repository.WorkspaceRepository, userRepo repository.UserRepository) *WorkspaceService {
	return &WorkspaceService{
		workspaceRepo: workspaceRepo,
		userRepo:      userRepo,
	}
}

// AddWorkspaceMemberInput represents input for adding a workspace member
type AddWorkspaceMemberInput struct {
	WorkspaceID string
	Email       string
	Role        models.WorkspaceRole
	Message     string
}

// ListForUser returns every workspace the user belongs to with owner,
// members and the project/task/comment tree loaded.
func (s *WorkspaceService) ListForUser(ctx context.Context, userID string) ([]models.Workspace, error) {
	workspaces, err := s.workspaceRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return workspaces, nil
}

// AddMember adds an existing user to a workspace. Only workspace admins may do this.
func (s *WorkspaceService) AddMember(ctx context.Context, requesterID string, input AddWorkspaceMemberInput) (*models.WorkspaceMember, error) {
	input.Email = strings.TrimSpace(input.Email)
	if input.WorkspaceID == "" {
		return nil, ErrWorkspaceIDRequired
	}
	if input.Email == "" {
		return nil, ErrEmailRequired
	}
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}

	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	workspace, err := s.workspaceRepo.FindByID(ctx, input.WorkspaceID, "Members")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}

	rc := policy.Resource{WorkspaceRoles: policy.WorkspaceRoles(workspace.Members)}
	if d := policy.Decide(requesterID, policy.ActionWorkspaceMemberAdd, rc); !d.Allowed {
		return nil, d.Err
	}

	if _, exists := rc.WorkspaceRoles[user.ID]; exists {
		return nil, ErrAlreadyWorkspaceMember
	}

	member := &models.WorkspaceMember{
		UserID:      user.ID,
		WorkspaceID: workspace.ID,
		Role:        input.Role,
		Message:     input.Message,
	}
	if err := s.workspaceRepo.AddMember(ctx, member); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyWorkspaceMember
		}
		return nil, fmt.Errorf("failed to add workspace member: %w", err)
	}

	member.User = user
	return member, nil
}
