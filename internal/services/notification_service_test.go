package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/logging"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/testutil"
)

// NotificationServiceTestSuite drives tasks through the real dispatcher.
type NotificationServiceTestSuite struct {
	suite.Suite
	fx         *fixture
	now        time.Time
	notifier   *recordingNotifier
	dispatcher *events.Dispatcher
	tasks      *TaskService
}

func (suite *NotificationServiceTestSuite) SetupTest() {
	suite.fx = newFixture(suite.T())
	suite.now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return suite.now }

	suite.notifier = &recordingNotifier{}
	suite.dispatcher = events.NewDispatcher(suite.fx.jobs, events.Options{
		PollInterval: time.Second,
		BatchSize:    10,
		MaxAttempts:  3,
		RetryBackoff: time.Minute,
		Now:          clock,
	}, logging.Discard())

	notifications := NewNotificationService(suite.fx.tasks, suite.notifier, suite.dispatcher, logging.Discard())
	notifications.now = clock
	notifications.Register(suite.dispatcher)

	suite.tasks = NewTaskService(suite.fx.tasks, suite.fx.projects, suite.fx.tx, suite.dispatcher, nil)
	suite.tasks.now = clock
}

func (suite *NotificationServiceTestSuite) runDue() int {
	ran, err := suite.dispatcher.RunOnce(context.Background())
	suite.Require().NoError(err)
	return ran
}

func (suite *NotificationServiceTestSuite) createTask(due *time.Time) *models.Task {
	task, err := suite.tasks.Create(context.Background(), memberID, CreateTaskInput{
		ProjectID:  suite.fx.project.ID,
		Title:      "Prepare demo",
		AssigneeID: testutil.Ptr(memberID),
		DueDate:    due,
		Origin:     "https://app.example.com",
	})
	suite.Require().NoError(err)
	return task
}

func (suite *NotificationServiceTestSuite) TestAssignmentThenReminder() {
	due := suite.now.Add(24 * time.Hour)
	task := suite.createTask(&due)

	suite.Equal(1, suite.runDue())
	suite.Require().Len(suite.notifier.assigned, 1)
	sent := suite.notifier.assigned[0]
	suite.Equal(task.ID, sent.TaskID)
	suite.Equal("Launch", sent.ProjectName)
	suite.Equal("member@example.com", sent.AssigneeEmail)
	suite.Equal("https://app.example.com", sent.Origin)

	// The reminder waits for the due date.
	suite.Zero(suite.runDue())
	suite.Empty(suite.notifier.reminders)

	suite.now = due.Add(time.Second)
	suite.Equal(1, suite.runDue())
	suite.Require().Len(suite.notifier.reminders, 1)
	suite.Equal(task.ID, suite.notifier.reminders[0].TaskID)
}

func (suite *NotificationServiceTestSuite) TestReminderSkippedWhenDone() {
	due := suite.now.Add(24 * time.Hour)
	task := suite.createTask(&due)
	suite.Equal(1, suite.runDue())

	done := models.TaskStatusDone
	_, err := suite.tasks.Update(context.Background(), memberID, task.ID, UpdateTaskInput{Status: &done})
	suite.Require().NoError(err)

	suite.now = due.Add(time.Second)
	suite.Equal(1, suite.runDue())
	suite.Empty(suite.notifier.reminders)
}

func (suite *NotificationServiceTestSuite) TestReminderSkippedWhenTaskDeleted() {
	due := suite.now.Add(time.Hour)
	task := suite.createTask(&due)
	suite.Equal(1, suite.runDue())

	_, err := suite.tasks.Delete(context.Background(), memberID, []string{task.ID})
	suite.Require().NoError(err)

	suite.now = due.Add(time.Second)
	suite.Equal(1, suite.runDue())
	suite.Empty(suite.notifier.reminders)
}

func (suite *NotificationServiceTestSuite) TestStaleReminderDroppedAfterDueDateMoves() {
	due := suite.now.Add(time.Hour)
	task := suite.createTask(&due)
	suite.Equal(1, suite.runDue())

	later := suite.now.Add(48 * time.Hour)
	_, err := suite.tasks.Update(context.Background(), memberID, task.ID, UpdateTaskInput{DueDateSet: true, DueDate: &later})
	suite.Require().NoError(err)

	suite.now = due.Add(time.Second)
	suite.Equal(1, suite.runDue())
	suite.Empty(suite.notifier.reminders)

	suite.now = later.Add(time.Second)
	suite.Equal(1, suite.runDue())
	suite.Len(suite.notifier.reminders, 1)
}

func (suite *NotificationServiceTestSuite) TestNoReminderWithoutFutureDueDate() {
	suite.createTask(nil)
	suite.Equal(1, suite.runDue())
	suite.Len(suite.notifier.assigned, 1)

	var pending int64
	suite.Require().NoError(suite.fx.db.Model(&models.Job{}).Where("status = ?", models.JobStatusPending).Count(&pending).Error)
	suite.Zero(pending)
}

func (suite *NotificationServiceTestSuite) TestUnassignedTaskSendsNothing() {
	_, err := suite.tasks.Create(context.Background(), memberID, CreateTaskInput{ProjectID: suite.fx.project.ID, Title: "Solo"})
	suite.Require().NoError(err)

	suite.Equal(1, suite.runDue())
	suite.Empty(suite.notifier.assigned)
}

func (suite *NotificationServiceTestSuite) TestMalformedPayloadFailsPermanently() {
	service := NewNotificationService(suite.fx.tasks, suite.notifier, suite.dispatcher, logging.Discard())
	err := service.HandleTaskAssigned(context.Background(), []byte("{"))
	suite.Error(err)

	suite.NoError(service.HandleTaskReminder(context.Background(), mustJSON(suite.T(), TaskReminderPayload{TaskID: "missing"})))
}

func TestNotificationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceTestSuite))
}
