package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var projectDetailPreloads = []string{"Owner", "Members.User", "Tasks.Assignee", "Tasks.Comments.User"}

// ProjectService handles project business logic
type ProjectService struct {
	projectRepo   repository.ProjectRepository
	workspaceRepo repository.WorkspaceRepository
	userRepo      repository.UserRepository
	log           *logrus.Logger
}

func NewProjectService(projectRepo repository.ProjectRepository, workspaceRepo repository.WorkspaceRepository, userRepo repository.UserRepository, log *logrus.Logger) *ProjectService {
	return &ProjectService{
		projectRepo:   projectRepo,
		workspaceRepo: workspaceRepo,
		userRepo:      userRepo,
		log:           log,
	}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	WorkspaceID   string
	Name          string
	Description   string
	Status        models.ProjectStatus
	Priority      models.Priority
	Progress      int
	StartDate     *time.Time
	EndDate       *time.Time
	TeamMembers   []string // emails
	TeamLeadEmail string
}

// UpdateProjectInput represents input for updating a project. Nil scalar
// fields are left unchanged; the dates are always replaced.
type UpdateProjectInput struct {
	WorkspaceID string
	ProjectID   string
	Name        *string
	Description *string
	Status      *models.ProjectStatus
	Priority    *models.Priority
	Progress    *int
	StartDate   *time.Time
	EndDate     *time.Time
}

func (s *ProjectService) Create(ctx context.Context, requesterID string, input CreateProjectInput) (*models.Project, error) {
	if input.WorkspaceID == "" {
		return nil, ErrWorkspaceIDRequired
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrNameRequired
	}
	if input.Status == "" {
		input.Status = models.ProjectStatusActive
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if err := validateProjectFields(&input.Status, &input.Priority, &input.Progress); err != nil {
		return nil, err
	}

	workspace, err := s.workspaceRepo.FindByID(ctx, input.WorkspaceID, "Members.User")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}

	rc := policy.Resource{WorkspaceRoles: policy.WorkspaceRoles(workspace.Members)}
	if d := policy.Decide(requesterID, policy.ActionProjectCreate, rc); !d.Allowed {
		return nil, d.Err
	}

	teamLead, err := s.resolveTeamLead(ctx, requesterID, input.TeamLeadEmail, rc)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		WorkspaceID: workspace.ID,
		Name:        input.Name,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		Progress:    input.Progress,
		TeamLead:    teamLead,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}

	if err := s.projectRepo.Create(ctx, project, initialMembers(workspace.Members, input.TeamMembers, teamLead)); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateProjectMember
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	created, err := s.projectRepo.FindByID(ctx, project.ID, projectDetailPreloads...)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return created, nil
}

// resolveTeamLead maps the team lead email to a workspace member, falling
// back to the requester when it does not resolve.
func (s *ProjectService) resolveTeamLead(ctx context.Context, requesterID, email string, rc policy.Resource) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return requesterID, nil
	}

	entry := s.log.WithFields(logrus.Fields{"team_lead_email": email, "requester_id": requesterID})

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			entry.Warn("team lead email did not resolve, using requester")
			return requesterID, nil
		}
		return "", fmt.Errorf("failed to find team lead: %w", err)
	}

	if _, ok := rc.WorkspaceRoles[user.ID]; !ok {
		entry.WithField("user_id", user.ID).Warn("team lead is not a workspace member, using requester")
		return requesterID, nil
	}
	return user.ID, nil
}

// initialMembers selects the workspace members named by email plus the team lead.
func initialMembers(workspaceMembers []models.WorkspaceMember, emails []string, teamLead string) []models.ProjectMember {
	wanted := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		wanted[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}

	seen := map[string]struct{}{teamLead: {}}
	members := []models.ProjectMember{{UserID: teamLead}}
	for _, m := range workspaceMembers {
		if m.User == nil {
			continue
		}
		if _, ok := wanted[strings.ToLower(m.User.Email)]; !ok {
			continue
		}
		if _, dup := seen[m.UserID]; dup {
			continue
		}
		seen[m.UserID] = struct{}{}
		members = append(members, models.ProjectMember{UserID: m.UserID})
	}
	return members
}

func (s *ProjectService) Update(ctx context.Context, requesterID string, input UpdateProjectInput) (*models.Project, error) {
	if input.WorkspaceID == "" {
		return nil, ErrWorkspaceIDRequired
	}
	if input.ProjectID == "" {
		return nil, ErrProjectIDRequired
	}
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, ErrNameRequired
		}
		input.Name = &trimmed
	}
	if err := validateProjectFields(input.Status, input.Priority, input.Progress); err != nil {
		return nil, err
	}

	workspace, err := s.workspaceRepo.FindByID(ctx, input.WorkspaceID, "Members")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}

	project, err := s.projectRepo.FindByID(ctx, input.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	if project.WorkspaceID != workspace.ID {
		return nil, ErrProjectNotFound
	}

	if d := policy.Decide(requesterID, policy.ActionProjectUpdate, policy.ForProject(project, workspace.Members)); !d.Allowed {
		return nil, d.Err
	}

	fields := map[string]interface{}{
		"start_date": input.StartDate,
		"end_date":   input.EndDate,
	}
	if input.Name != nil {
		fields["name"] = *input.Name
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Status != nil {
		fields["status"] = *input.Status
	}
	if input.Priority != nil {
		fields["priority"] = *input.Priority
	}
	if input.Progress != nil {
		fields["progress"] = *input.Progress
	}

	if err := s.projectRepo.UpdateFields(ctx, project.ID, fields); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	updated, err := s.projectRepo.FindByID(ctx, project.ID, "Owner", "Members.User")
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return updated, nil
}

// AddMember adds a workspace member to the project. Only the team lead may do this.
func (s *ProjectService) AddMember(ctx context.Context, requesterID, projectID, email string) (*models.ProjectMember, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	project, err := s.projectRepo.FindByID(ctx, projectID, "Members.User")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if d := policy.Decide(requesterID, policy.ActionProjectMemberAdd, policy.ForProject(project, nil)); !d.Allowed {
		return nil, d.Err
	}

	for _, m := range project.Members {
		if m.User != nil && strings.EqualFold(m.User.Email, email) {
			return nil, ErrAlreadyProjectMember
		}
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.workspaceRepo.FindMember(ctx, project.WorkspaceID, user.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, policy.ErrNotWorkspaceMember
		}
		return nil, fmt.Errorf("failed to verify workspace membership: %w", err)
	}

	member := &models.ProjectMember{UserID: user.ID, ProjectID: project.ID}
	if err := s.projectRepo.AddMember(ctx, member); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyProjectMember
		}
		return nil, fmt.Errorf("failed to add project member: %w", err)
	}

	member.User = user
	return member, nil
}

// Get returns a project with members and tasks. Users outside the owning
// workspace see it as missing.
func (s *ProjectService) Get(ctx context.Context, requesterID, projectID string) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID, projectDetailPreloads...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	workspace, err := s.workspaceRepo.FindByID(ctx, project.WorkspaceID, "Members")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}

	if d := policy.Decide(requesterID, policy.ActionProjectView, policy.ForProject(project, workspace.Members)); !d.Allowed {
		return nil, ErrProjectNotFound
	}

	return project, nil
}

func validateProjectFields(status *models.ProjectStatus, priority *models.Priority, progress *int) error {
	if status != nil && !status.Valid() {
		return ErrInvalidStatus
	}
	if priority != nil && !priority.Valid() {
		return ErrInvalidPriority
	}
	if progress != nil && (*progress < 0 || *progress > 100) {
		return ErrInvalidProgress
	}
	return nil
}
