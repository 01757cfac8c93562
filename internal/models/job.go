package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

// Job is a persisted unit of background work. Pending jobs become runnable at RunAt.
type Job struct {
	ID        string     `gorm:"primarykey;type:varchar(36)" json:"id"`
	Name      string     `gorm:"type:varchar(100);not null;index" json:"name"`
	Payload   string     `gorm:"type:text;not null" json:"payload"`
	DedupKey  *string    `gorm:"type:varchar(255);uniqueIndex" json:"dedup_key,omitempty"`
	Status    JobStatus  `gorm:"type:varchar(20);not null;default:'pending';index:idx_jobs_status_run_at" json:"status"`
	Attempts  int        `gorm:"not null;default:0" json:"attempts"`
	RunAt     time.Time  `gorm:"not null;index:idx_jobs_status_run_at" json:"run_at"`
	LockedAt  *time.Time `json:"locked_at,omitempty"`
	LastError string     `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}
