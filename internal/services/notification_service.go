package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/notify"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

// Job names for task notifications.
const (
	JobTaskAssigned = "task.assigned"
	JobTaskReminder = "task.reminder"
)

type TaskAssignedPayload struct {
	TaskID string `json:"taskId"`
	Origin string `json:"origin"`
}

// TaskReminderPayload carries the due date the reminder was scheduled for so
// a reminder made stale by a due date change can be dropped.
type TaskReminderPayload struct {
	TaskID  string    `json:"taskId"`
	Origin  string    `json:"origin"`
	DueDate time.Time `json:"dueDate"`
}

func assignedEvent(taskID, origin string) events.Event {
	return events.Event{
		Name:    JobTaskAssigned,
		Payload: TaskAssignedPayload{TaskID: taskID, Origin: origin},
	}
}

func reminderEvent(taskID, origin string, due time.Time) events.Event {
	due = due.UTC()
	return events.Event{
		Name:     JobTaskReminder,
		Payload:  TaskReminderPayload{TaskID: taskID, Origin: origin, DueDate: due},
		RunAt:    due,
		DedupKey: fmt.Sprintf("task.reminder:%s:%d", taskID, due.Unix()),
	}
}

// NotificationService sends task assignment mail and due date reminders.
type NotificationService struct {
	taskRepo  repository.TaskRepository
	notifier  notify.Notifier
	publisher events.Publisher
	log       *logrus.Logger
	now       func() time.Time
}

func NewNotificationService(taskRepo repository.TaskRepository, notifier notify.Notifier, publisher events.Publisher, log *logrus.Logger) *NotificationService {
	return &NotificationService{
		taskRepo:  taskRepo,
		notifier:  notifier,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Register binds the notification jobs to d.
func (s *NotificationService) Register(d *events.Dispatcher) {
	d.Register(JobTaskAssigned, s.HandleTaskAssigned)
	d.Register(JobTaskReminder, s.HandleTaskReminder)
}

func (s *NotificationService) HandleTaskAssigned(ctx context.Context, raw []byte) error {
	var payload TaskAssignedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return events.Permanent(fmt.Errorf("decode %s payload: %w", JobTaskAssigned, err))
	}

	task, err := s.loadTask(ctx, payload.TaskID)
	if err != nil || task == nil {
		return err
	}
	if task.Assignee == nil {
		s.log.WithField("task_id", task.ID).Debug("task has no assignee, skipping notification")
		return nil
	}

	if err := s.notifier.NotifyTaskAssigned(ctx, notify.TaskAssignedEvent{
		TaskID:        task.ID,
		Title:         task.Title,
		Description:   task.Description,
		ProjectName:   projectName(task),
		AssigneeName:  task.Assignee.Name,
		AssigneeEmail: task.Assignee.Email,
		DueDate:       task.DueDate,
		Origin:        payload.Origin,
	}); err != nil {
		return fmt.Errorf("failed to send assignment notification: %w", err)
	}

	if task.DueDate == nil || !task.DueDate.After(s.now()) {
		return nil
	}
	if err := s.publisher.Publish(ctx, reminderEvent(task.ID, payload.Origin, *task.DueDate)); err != nil {
		return fmt.Errorf("failed to schedule task reminder: %w", err)
	}
	return nil
}

// HandleTaskReminder re-reads the task and reminds the assignee only if the
// task is still open and still due at the scheduled time.
func (s *NotificationService) HandleTaskReminder(ctx context.Context, raw []byte) error {
	var payload TaskReminderPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return events.Permanent(fmt.Errorf("decode %s payload: %w", JobTaskReminder, err))
	}

	task, err := s.loadTask(ctx, payload.TaskID)
	if err != nil || task == nil {
		return err
	}

	entry := s.log.WithField("task_id", task.ID)
	switch {
	case task.Assignee == nil:
		entry.Debug("task has no assignee, skipping reminder")
		return nil
	case task.Status == models.TaskStatusDone:
		entry.Debug("task is done, skipping reminder")
		return nil
	case !payload.DueDate.IsZero() && (task.DueDate == nil || !task.DueDate.Equal(payload.DueDate)):
		entry.Debug("due date changed, skipping stale reminder")
		return nil
	}

	if err := s.notifier.NotifyTaskReminder(ctx, notify.TaskReminderEvent{
		TaskID:        task.ID,
		Title:         task.Title,
		Description:   task.Description,
		ProjectName:   projectName(task),
		AssigneeName:  task.Assignee.Name,
		AssigneeEmail: task.Assignee.Email,
		DueDate:       task.DueDate,
		Origin:        payload.Origin,
	}); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	return nil
}

// loadTask returns nil without error when the task no longer exists.
func (s *NotificationService) loadTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id, "Assignee", "Project")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.WithField("task_id", id).Info("task no longer exists, skipping notification")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return task, nil
}

func projectName(task *models.Task) string {
	if task.Project == nil {
		return ""
	}
	return task.Project.Name
}
