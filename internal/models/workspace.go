package models

import "time"

// Workspace is a tenant. ID is the identity provider's organization id.
type Workspace struct {
	ID        string    `gorm:"primarykey;type:varchar(64)" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug      string    `gorm:"type:varchar(255);index" json:"slug"`
	OwnerID   string    `gorm:"type:varchar(64);index;not null" json:"ownerId"`
	ImageURL  string    `gorm:"type:text" json:"image_url"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	Owner    *User             `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members  []WorkspaceMember `gorm:"foreignKey:WorkspaceID" json:"members"`
	Projects []Project         `gorm:"foreignKey:WorkspaceID" json:"projects"`
}
