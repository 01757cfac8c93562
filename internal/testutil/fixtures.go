package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/gorm"
)

func CreateUser(t *testing.T, db *gorm.DB, id, email string) *models.User {
	t.Helper()
	user := &models.User{ID: id, Email: email, Name: id}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateWorkspace creates a workspace owned by ownerID and makes the owner an ADMIN.
func CreateWorkspace(t *testing.T, db *gorm.DB, id, ownerID string) *models.Workspace {
	t.Helper()
	ws := &models.Workspace{ID: id, Name: id, Slug: id, OwnerID: ownerID}
	require.NoError(t, db.Omit("Owner", "Members", "Projects").Create(ws).Error)
	AddWorkspaceMember(t, db, id, ownerID, models.RoleAdmin)
	return ws
}

func AddWorkspaceMember(t *testing.T, db *gorm.DB, workspaceID, userID string, role models.WorkspaceRole) *models.WorkspaceMember {
	t.Helper()
	member := &models.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID, Role: role}
	require.NoError(t, db.Omit("User").Create(member).Error)
	return member
}

// CreateProject creates a project led by teamLead, who also becomes a project member.
func CreateProject(t *testing.T, db *gorm.DB, workspaceID, name, teamLead string) *models.Project {
	t.Helper()
	project := &models.Project{
		WorkspaceID: workspaceID,
		Name:        name,
		Status:      models.ProjectStatusActive,
		Priority:    models.PriorityMedium,
		TeamLead:    teamLead,
	}
	require.NoError(t, db.Omit("Owner", "Members", "Tasks").Create(project).Error)
	AddProjectMember(t, db, project.ID, teamLead)
	return project
}

func AddProjectMember(t *testing.T, db *gorm.DB, projectID, userID string) *models.ProjectMember {
	t.Helper()
	member := &models.ProjectMember{ProjectID: projectID, UserID: userID}
	require.NoError(t, db.Omit("User").Create(member).Error)
	return member
}

func CreateTask(t *testing.T, db *gorm.DB, projectID, title string, assigneeID *string) *models.Task {
	t.Helper()
	task := &models.Task{
		ProjectID:  projectID,
		Title:      title,
		Type:       models.TaskTypeTask,
		Status:     models.TaskStatusTodo,
		Priority:   models.PriorityMedium,
		AssigneeID: assigneeID,
	}
	require.NoError(t, db.Omit("Assignee", "Project", "Comments").Create(task).Error)
	return task
}

func CreateComment(t *testing.T, db *gorm.DB, taskID, userID, content string, at time.Time) *models.Comment {
	t.Helper()
	comment := &models.Comment{TaskID: taskID, UserID: userID, Content: content, CreatedAt: at}
	require.NoError(t, db.Omit("User").Create(comment).Error)
	return comment
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
