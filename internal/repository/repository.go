package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error

	FindByID(ctx context.Context, id string) (*models.User, error)

	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateFields overwrites only the given columns.
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error

	// Delete removes the user together with their comments and memberships,
	// and clears any task assignments pointing at them.
	Delete(ctx context.Context, id string) error
}

// WorkspaceRepository defines the interface for workspace data access
type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *models.Workspace) error

	// FindByID finds a workspace by ID with optional preloading
	FindByID(ctx context.Context, id string, preload ...string) (*models.Workspace, error)

	// ListForUser returns the workspaces the user is a member of, fully expanded.
	ListForUser(ctx context.Context, userID string) ([]models.Workspace, error)

	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error

	// Delete removes the workspace and everything it owns, children first.
	Delete(ctx context.Context, id string) error

	AddMember(ctx context.Context, member *models.WorkspaceMember) error

	FindMember(ctx context.Context, workspaceID, userID string) (*models.WorkspaceMember, error)

	UpdateMemberRole(ctx context.Context, workspaceID, userID string, role models.WorkspaceRole) error

	// RemoveMember deletes the membership and the user's project memberships
	// inside the workspace.
	RemoveMember(ctx context.Context, workspaceID, userID string) error
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create inserts the project and its initial members atomically.
	Create(ctx context.Context, project *models.Project, members []models.ProjectMember) error

	FindByID(ctx context.Context, id string, preload ...string) (*models.Project, error)

	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error

	AddMember(ctx context.Context, member *models.ProjectMember) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error

	FindByID(ctx context.Context, id string, preload ...string) (*models.Task, error)

	// FindByIDs returns the tasks that exist among ids, in id order.
	FindByIDs(ctx context.Context, ids []string) ([]models.Task, error)

	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error

	// DeleteWithComments removes the tasks and their comments in one transaction.
	DeleteWithComments(ctx context.Context, ids []string) (int64, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error

	FindByID(ctx context.Context, id string, preload ...string) (*models.Comment, error)

	// ListByTask returns the task's comments oldest first.
	ListByTask(ctx context.Context, taskID string) ([]models.Comment, error)
}

// JobRepository persists background jobs for the event dispatcher.
type JobRepository interface {
	// Insert stores a pending job. A job whose dedup key already exists is
	// skipped and reported as not inserted.
	Insert(ctx context.Context, job *models.Job) (bool, error)

	FindByID(ctx context.Context, id string) (*models.Job, error)

	// ListDue returns up to limit pending jobs whose run_at is not after now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Job, error)

	// Claim moves a pending job to running. It reports false when another
	// worker got there first.
	Claim(ctx context.Context, id string, now time.Time) (bool, error)

	MarkDone(ctx context.Context, id string, attempts int) error

	// Reschedule puts a running job back to pending at runAt after a failure.
	Reschedule(ctx context.Context, id string, attempts int, runAt time.Time, lastErr string) error

	MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error

	// ResetRunning requeues jobs left running by a previous process.
	ResetRunning(ctx context.Context) (int64, error)
}
