package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/notify"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/testutil"
	"gorm.io/gorm"
)

const (
	adminID    = "user_admin"
	memberID   = "user_member"
	outsiderID = "user_outsider"
	orgID      = "org_1"
)

// fixture is a workspace with an admin and a member, and a project led by
// the member.
type fixture struct {
	db        *gorm.DB
	users     repository.UserRepository
	workspace repository.WorkspaceRepository
	projects  repository.ProjectRepository
	tasks     repository.TaskRepository
	comments  repository.CommentRepository
	jobs      repository.JobRepository
	tx        repository.Transactor
	project   *models.Project
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)

	testutil.CreateUser(t, db, adminID, "admin@example.com")
	testutil.CreateUser(t, db, memberID, "member@example.com")
	testutil.CreateUser(t, db, outsiderID, "outsider@example.com")
	testutil.CreateWorkspace(t, db, orgID, adminID)
	testutil.AddWorkspaceMember(t, db, orgID, memberID, models.RoleMember)

	return &fixture{
		db:        db,
		users:     repository.NewUserRepository(db),
		workspace: repository.NewWorkspaceRepository(db),
		projects:  repository.NewProjectRepository(db),
		tasks:     repository.NewTaskRepository(db),
		comments:  repository.NewCommentRepository(db),
		jobs:      repository.NewJobRepository(db),
		tx:        repository.NewTransactor(db),
		project:   testutil.CreateProject(t, db, orgID, "Launch", memberID),
	}
}

// recordingPublisher fails every Publish while err is set.
type recordingPublisher struct {
	published []events.Event
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, ev)
	return nil
}

func (p *recordingPublisher) named(name string) []events.Event {
	var out []events.Event
	for _, ev := range p.published {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

type recordingNotifier struct {
	assigned  []notify.TaskAssignedEvent
	reminders []notify.TaskReminderEvent
}

func (n *recordingNotifier) NotifyTaskAssigned(_ context.Context, e notify.TaskAssignedEvent) error {
	n.assigned = append(n.assigned, e)
	return nil
}

func (n *recordingNotifier) NotifyTaskReminder(_ context.Context, e notify.TaskReminderEvent) error {
	n.reminders = append(n.reminders, e)
	return nil
}

type stubDrafter struct {
	drafts []GeneratedTask
	err    error
	gotFor string
}

func (d *stubDrafter) GenerateTasksFromText(_ context.Context, projectName, _ string) ([]GeneratedTask, error) {
	d.gotFor = projectName
	return d.drafts, d.err
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func mustJSONRaw(s string) json.RawMessage {
	return json.RawMessage(s)
}
