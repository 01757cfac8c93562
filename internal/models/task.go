package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

func (s TaskStatus) Valid() bool {
	return s == TaskStatusTodo || s == TaskStatusInProgress || s == TaskStatusDone
}

type TaskType string

const (
	TaskTypeTask        TaskType = "TASK"
	TaskTypeBug         TaskType = "BUG"
	TaskTypeFeature     TaskType = "FEATURE"
	TaskTypeImprovement TaskType = "IMPROVEMENT"
	TaskTypeOther       TaskType = "OTHER"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeTask, TaskTypeBug, TaskTypeFeature, TaskTypeImprovement, TaskTypeOther:
		return true
	}
	return false
}

type Task struct {
	ID          string     `gorm:"primarykey;type:varchar(36)" json:"id"`
	ProjectID   string     `gorm:"type:varchar(36);not null;index" json:"projectId"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Type        TaskType   `gorm:"type:varchar(20);not null;default:'TASK'" json:"type"`
	Status      TaskStatus `gorm:"type:varchar(20);not null;default:'TODO'" json:"status"`
	Priority    Priority   `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"priority"`
	AssigneeID  *string    `gorm:"type:varchar(64);index" json:"assigneeId"`
	DueDate     *time.Time `gorm:"index" json:"due_date"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// Relations
	Assignee *User     `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Project  *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Comments []Comment `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
