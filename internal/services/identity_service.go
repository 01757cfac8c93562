package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/dto"
	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

// Identity provider event types mirrored into the local store.
const (
	IdentityUserCreated         = "user.created"
	IdentityUserUpdated         = "user.updated"
	IdentityUserDeleted         = "user.deleted"
	IdentityOrganizationCreated = "organization.created"
	IdentityOrganizationUpdated = "organization.updated"
	IdentityOrganizationDeleted = "organization.deleted"
	IdentityMembershipCreated   = "organizationMembership.created"
	IdentityMembershipUpdated   = "organizationMembership.updated"
	IdentityMembershipDeleted   = "organizationMembership.deleted"
)

// IdentityJobName is the dispatcher job name for a provider event type.
func IdentityJobName(eventType string) string {
	return "identity." + eventType
}

// IdentityService keeps users, workspaces and memberships in sync with the
// identity provider. Every handler tolerates redelivery.
type IdentityService struct {
	userRepo      repository.UserRepository
	workspaceRepo repository.WorkspaceRepository
	log           *logrus.Logger
	handlers      map[string]events.Handler
}

func NewIdentityService(userRepo repository.UserRepository, workspaceRepo repository.WorkspaceRepository, log *logrus.Logger) *IdentityService {
	s := &IdentityService{
		userRepo:      userRepo,
		workspaceRepo: workspaceRepo,
		log:           log,
	}
	s.handlers = map[string]events.Handler{
		IdentityUserCreated:         s.UserCreated,
		IdentityUserUpdated:         s.UserUpdated,
		IdentityUserDeleted:         s.UserDeleted,
		IdentityOrganizationCreated: s.OrganizationCreated,
		IdentityOrganizationUpdated: s.OrganizationUpdated,
		IdentityOrganizationDeleted: s.OrganizationDeleted,
		IdentityMembershipCreated:   s.MembershipCreated,
		IdentityMembershipUpdated:   s.MembershipUpdated,
		IdentityMembershipDeleted:   s.MembershipDeleted,
	}
	return s
}

// Supports reports whether eventType has a sync handler.
func (s *IdentityService) Supports(eventType string) bool {
	_, ok := s.handlers[eventType]
	return ok
}

// Register binds every identity job to d.
func (s *IdentityService) Register(d *events.Dispatcher) {
	for eventType, h := range s.handlers {
		d.Register(IdentityJobName(eventType), h)
	}
}

func (s *IdentityService) UserCreated(ctx context.Context, raw []byte) error {
	var data dto.IdentityUser
	if err := decode(raw, &data); err != nil {
		return err
	}
	email := data.PrimaryEmail()
	if data.ID == "" || email == "" {
		return events.Permanent(errors.New("user.created requires an id and an email address"))
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		// Pre-invited or redelivered: keep the row, refresh the profile.
		fields := map[string]interface{}{}
		if name := data.FullName(); name != "" {
			fields["name"] = name
		}
		if data.ImageURL != nil && *data.ImageURL != "" {
			fields["image"] = *data.ImageURL
		}
		return s.userRepo.UpdateFields(ctx, existing.ID, fields)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	user := &models.User{
		ID:    data.ID,
		Email: email,
		Name:  data.FullName(),
	}
	if data.ImageURL != nil {
		user.Image = *data.ImageURL
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("Created user from identity provider")
	return nil
}

func (s *IdentityService) UserUpdated(ctx context.Context, raw []byte) error {
	var data dto.IdentityUser
	if err := decode(raw, &data); err != nil {
		return err
	}

	if _, err := s.userRepo.FindByID(ctx, data.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WithField("user_id", data.ID).Warn("Ignoring update for unknown user")
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	fields := map[string]interface{}{}
	if email := data.PrimaryEmail(); email != "" {
		fields["email"] = email
	}
	if data.HasName() {
		fields["name"] = data.FullName()
	}
	if data.ImageURL != nil {
		fields["image"] = *data.ImageURL
	}
	if err := s.userRepo.UpdateFields(ctx, data.ID, fields); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *IdentityService) UserDeleted(ctx context.Context, raw []byte) error {
	var data dto.IdentityUser
	if err := decode(raw, &data); err != nil {
		return err
	}

	if _, err := s.userRepo.FindByID(ctx, data.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}
	if err := s.userRepo.Delete(ctx, data.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.log.WithField("user_id", data.ID).Info("Deleted user")
	return nil
}

func (s *IdentityService) OrganizationCreated(ctx context.Context, raw []byte) error {
	var data dto.IdentityOrganization
	if err := decode(raw, &data); err != nil {
		return err
	}
	if data.ID == "" || data.CreatedBy == "" {
		return events.Permanent(errors.New("organization.created requires an id and a creator"))
	}

	if _, err := s.workspaceRepo.FindByID(ctx, data.ID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to find workspace: %w", err)
		}
		workspace := &models.Workspace{
			ID:       data.ID,
			Name:     deref(data.Name),
			Slug:     deref(data.Slug),
			OwnerID:  data.CreatedBy,
			ImageURL: deref(data.ImageURL),
		}
		if err := s.workspaceRepo.Create(ctx, workspace); err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to create workspace: %w", err)
		}
		s.log.WithField("workspace_id", data.ID).Info("Created workspace from identity provider")
	}

	return s.ensureMember(ctx, data.ID, data.CreatedBy, models.RoleAdmin)
}

func (s *IdentityService) OrganizationUpdated(ctx context.Context, raw []byte) error {
	var data dto.IdentityOrganization
	if err := decode(raw, &data); err != nil {
		return err
	}

	if _, err := s.workspaceRepo.FindByID(ctx, data.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WithField("workspace_id", data.ID).Warn("Ignoring update for unknown workspace")
			return nil
		}
		return fmt.Errorf("failed to find workspace: %w", err)
	}

	fields := map[string]interface{}{}
	if data.Name != nil {
		fields["name"] = *data.Name
	}
	if data.Slug != nil {
		fields["slug"] = *data.Slug
	}
	if data.ImageURL != nil {
		fields["image_url"] = *data.ImageURL
	}
	if err := s.workspaceRepo.UpdateFields(ctx, data.ID, fields); err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	return nil
}

func (s *IdentityService) OrganizationDeleted(ctx context.Context, raw []byte) error {
	var data dto.IdentityOrganization
	if err := decode(raw, &data); err != nil {
		return err
	}

	if _, err := s.workspaceRepo.FindByID(ctx, data.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find workspace: %w", err)
	}
	if err := s.workspaceRepo.Delete(ctx, data.ID); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	s.log.WithField("workspace_id", data.ID).Info("Deleted workspace")
	return nil
}

// MembershipCreated fails while the workspace is unknown so the dispatcher
// retries once organization.created has been processed.
func (s *IdentityService) MembershipCreated(ctx context.Context, raw []byte) error {
	var data dto.IdentityMembership
	if err := decode(raw, &data); err != nil {
		return err
	}
	workspaceID, userID := data.Organization.ID, data.PublicUserData.UserID

	if _, err := s.workspaceRepo.FindByID(ctx, workspaceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("workspace %s not found", workspaceID)
		}
		return fmt.Errorf("failed to find workspace: %w", err)
	}

	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to find user: %w", err)
		}
		placeholder := &models.User{
			ID:    userID,
			Email: data.PublicUserData.Identifier,
			Name:  data.PublicUserData.DisplayName(),
			Image: deref(data.PublicUserData.ImageURL),
		}
		if err := s.userRepo.Create(ctx, placeholder); err != nil {
			return fmt.Errorf("failed to create placeholder user: %w", err)
		}
		s.log.WithField("user_id", userID).Warn("Created placeholder user for membership")
	}

	return s.ensureMember(ctx, workspaceID, userID, providerRole(data.Role))
}

func (s *IdentityService) MembershipUpdated(ctx context.Context, raw []byte) error {
	var data dto.IdentityMembership
	if err := decode(raw, &data); err != nil {
		return err
	}
	if err := s.workspaceRepo.UpdateMemberRole(ctx, data.Organization.ID, data.PublicUserData.UserID, providerRole(data.Role)); err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	return nil
}

func (s *IdentityService) MembershipDeleted(ctx context.Context, raw []byte) error {
	var data dto.IdentityMembership
	if err := decode(raw, &data); err != nil {
		return err
	}
	if err := s.workspaceRepo.RemoveMember(ctx, data.Organization.ID, data.PublicUserData.UserID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

func (s *IdentityService) ensureMember(ctx context.Context, workspaceID, userID string, role models.WorkspaceRole) error {
	if _, err := s.workspaceRepo.FindMember(ctx, workspaceID, userID); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to find member: %w", err)
	}

	member := &models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
	}
	if err := s.workspaceRepo.AddMember(ctx, member); err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func providerRole(role string) models.WorkspaceRole {
	if role == dto.ProviderAdminRole {
		return models.RoleAdmin
	}
	return models.RoleMember
}

func decode(raw []byte, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return events.Permanent(fmt.Errorf("decode identity payload: %w", err))
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
