package models

import "time"

// User mirrors an identity-provider account. ID is the provider-issued id.
type User struct {
	ID        string    `gorm:"primarykey;type:varchar(64)" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Image     string    `gorm:"type:text" json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
