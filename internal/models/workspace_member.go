package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkspaceRole string

const (
	RoleAdmin  WorkspaceRole = "ADMIN"
	RoleMember WorkspaceRole = "MEMBER"
)

// Valid reports whether r is one of the known workspace roles.
func (r WorkspaceRole) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// WorkspaceMember is unique per (user, workspace).
type WorkspaceMember struct {
	ID          string        `gorm:"primarykey;type:varchar(36)" json:"id"`
	UserID      string        `gorm:"type:varchar(64);not null;uniqueIndex:idx_workspace_member_user" json:"userId"`
	WorkspaceID string        `gorm:"type:varchar(64);not null;uniqueIndex:idx_workspace_member_user;index" json:"workspaceId"`
	Role        WorkspaceRole `gorm:"type:varchar(20);not null;default:'MEMBER'" json:"role"`
	Message     string        `gorm:"type:text" json:"message"`
	CreatedAt   time.Time     `json:"createdAt"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (m *WorkspaceMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
