package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectMember makes a user eligible for task assignment within a project.
type ProjectMember struct {
	ID        string `gorm:"primarykey;type:varchar(36)" json:"id"`
	UserID    string `gorm:"type:varchar(64);not null;uniqueIndex:idx_project_member_user" json:"userId"`
	ProjectID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_project_member_user;index" json:"projectId"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
