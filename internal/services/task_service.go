package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

// TaskDrafter turns free text into task drafts.
type TaskDrafter interface {
	GenerateTasksFromText(ctx context.Context, projectName, text string) ([]GeneratedTask, error)
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	tx          repository.Transactor
	publisher   events.Publisher
	drafter     TaskDrafter
	now         func() time.Time
}

// NewTaskService creates a new TaskService. Task writes and the events they
// publish share one transaction, so publisher should write through the same
// database. drafter may be nil when no AI backend is configured.
func NewTaskService(taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, tx repository.Transactor, publisher events.Publisher, drafter TaskDrafter) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		tx:          tx,
		publisher:   publisher,
		drafter:     drafter,
		now:         time.Now,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID   string
	Title       string
	Description string
	Type        models.TaskType
	Status      models.TaskStatus
	Priority    models.Priority
	AssigneeID  *string
	DueDate     *time.Time
	// Origin is the requesting client's origin, used for links in notifications.
	Origin string
}

// UpdateTaskInput represents input for updating a task. Only the fields that
// are set are written; AssigneeSet/DueDateSet distinguish null from absent.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Type        *models.TaskType
	Status      *models.TaskStatus
	Priority    *models.Priority
	AssigneeSet bool
	AssigneeID  *string
	DueDateSet  bool
	DueDate     *time.Time
	Origin      string
}

func (s *TaskService) Create(ctx context.Context, requesterID string, input CreateTaskInput) (*models.Task, error) {
	if input.ProjectID == "" {
		return nil, ErrProjectIDRequired
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, ErrTitleRequired
	}
	if input.Type == "" {
		input.Type = models.TaskTypeTask
	}
	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if input.Priority == "" {
		input.Priority = models.PriorityMedium
	}
	if err := validateTaskFields(&input.Type, &input.Status, &input.Priority); err != nil {
		return nil, err
	}
	if input.AssigneeID != nil && *input.AssigneeID == "" {
		input.AssigneeID = nil
	}

	project, err := s.projectRepo.FindByID(ctx, input.ProjectID, "Members")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	rc := policy.ForProject(project, nil).WithAssignee(input.AssigneeID)
	if d := policy.Decide(requesterID, policy.ActionTaskCreate, rc); !d.Allowed {
		return nil, d.Err
	}

	task := &models.Task{
		ProjectID:   project.ID,
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Status:      input.Status,
		Priority:    input.Priority,
		AssigneeID:  input.AssigneeID,
		DueDate:     input.DueDate,
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.taskRepo.Create(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		if err := s.publisher.Publish(ctx, assignedEvent(task.ID, input.Origin)); err != nil {
			return fmt.Errorf("failed to publish task assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.taskRepo.FindByID(ctx, task.ID, "Assignee")
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return created, nil
}

func (s *TaskService) Update(ctx context.Context, requesterID, taskID string, input UpdateTaskInput) (*models.Task, error) {
	if input.Title != nil {
		trimmed := strings.TrimSpace(*input.Title)
		if trimmed == "" {
			return nil, ErrTitleRequired
		}
		input.Title = &trimmed
	}
	if err := validateTaskFields(input.Type, input.Status, input.Priority); err != nil {
		return nil, err
	}
	if input.AssigneeSet && input.AssigneeID != nil && *input.AssigneeID == "" {
		input.AssigneeID = nil
	}

	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	project, err := s.projectRepo.FindByID(ctx, task.ProjectID, "Members")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	rc := policy.ForProject(project, nil)
	if input.AssigneeSet {
		rc = rc.WithAssignee(input.AssigneeID)
	}
	if d := policy.Decide(requesterID, policy.ActionTaskUpdate, rc); !d.Allowed {
		return nil, d.Err
	}

	fields := map[string]interface{}{}
	if input.Title != nil {
		fields["title"] = *input.Title
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Type != nil {
		fields["type"] = *input.Type
	}
	if input.Status != nil {
		fields["status"] = *input.Status
	}
	if input.Priority != nil {
		fields["priority"] = *input.Priority
	}
	if input.AssigneeSet {
		fields["assignee_id"] = input.AssigneeID
	}
	if input.DueDateSet {
		fields["due_date"] = input.DueDate
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.taskRepo.UpdateFields(ctx, task.ID, fields); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return s.publishChanges(ctx, task, input)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.taskRepo.FindByID(ctx, task.ID, "Assignee")
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return updated, nil
}

// publishChanges notifies a new assignee, or reschedules the reminder when
// only the due date moved.
func (s *TaskService) publishChanges(ctx context.Context, before *models.Task, input UpdateTaskInput) error {
	if input.AssigneeSet && input.AssigneeID != nil && !sameString(before.AssigneeID, input.AssigneeID) {
		if err := s.publisher.Publish(ctx, assignedEvent(before.ID, input.Origin)); err != nil {
			return fmt.Errorf("failed to publish task assignment: %w", err)
		}
		return nil
	}

	assignee := before.AssigneeID
	if input.AssigneeSet {
		assignee = input.AssigneeID
	}
	if !input.DueDateSet || input.DueDate == nil || assignee == nil || sameTime(before.DueDate, input.DueDate) {
		return nil
	}
	if !input.DueDate.After(s.now()) {
		return nil
	}
	if err := s.publisher.Publish(ctx, reminderEvent(before.ID, input.Origin, *input.DueDate)); err != nil {
		return fmt.Errorf("failed to schedule task reminder: %w", err)
	}
	return nil
}

// Delete removes tasks and their comments. Every task must belong to the
// same project, whose team lead is the only one allowed to delete.
func (s *TaskService) Delete(ctx context.Context, requesterID string, taskIDs []string) (int64, error) {
	ids := uniqueStrings(taskIDs)
	if len(ids) == 0 {
		return 0, ErrTaskIDsRequired
	}
	if len(ids) > constants.MaxBulkDeleteTasks {
		return 0, ErrTooManyTasks
	}

	tasks, err := s.taskRepo.FindByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to find tasks: %w", err)
	}
	if len(tasks) == 0 {
		return 0, ErrTaskNotFound
	}

	projectID := tasks[0].ProjectID
	found := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if t.ProjectID != projectID {
			return 0, ErrTasksSpanProjects
		}
		found = append(found, t.ID)
	}

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrProjectNotFound
		}
		return 0, fmt.Errorf("failed to find project: %w", err)
	}

	if d := policy.Decide(requesterID, policy.ActionTaskDelete, policy.ForProject(project, nil)); !d.Allowed {
		return 0, d.Err
	}

	deleted, err := s.taskRepo.DeleteWithComments(ctx, found)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks: %w", err)
	}
	return deleted, nil
}

// GenerateDrafts asks the AI backend for task drafts for a project. Drafts
// are returned to the team lead, not stored.
func (s *TaskService) GenerateDrafts(ctx context.Context, requesterID, projectID, text string) ([]GeneratedTask, error) {
	if s.drafter == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if projectID == "" {
		return nil, ErrProjectIDRequired
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrTextRequired
	}

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if d := policy.Decide(requesterID, policy.ActionTaskGenerate, policy.ForProject(project, nil)); !d.Allowed {
		return nil, d.Err
	}

	drafts, err := s.drafter.GenerateTasksFromText(ctx, project.Name, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(drafts) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(drafts) > constants.MaxAIGeneratedTasks {
		return nil, fmt.Errorf("AI generated too many tasks (max %d)", constants.MaxAIGeneratedTasks)
	}

	valid := make([]GeneratedTask, 0, len(drafts))
	cutoff := s.now().Add(-24 * time.Hour)
	for _, d := range drafts {
		d.Title = strings.TrimSpace(d.Title)
		if d.Title == "" {
			continue
		}
		if d.DueDate != nil && d.DueDate.Before(cutoff) {
			d.DueDate = nil
		}
		if !d.Priority.Valid() {
			d.Priority = models.PriorityMedium
		}
		valid = append(valid, d)
	}

	if len(valid) == 0 {
		return nil, ErrAINoValidTasks
	}
	return valid, nil
}

func validateTaskFields(taskType *models.TaskType, status *models.TaskStatus, priority *models.Priority) error {
	if taskType != nil && !taskType.Valid() {
		return ErrInvalidType
	}
	if status != nil && !status.Valid() {
		return ErrInvalidStatus
	}
	if priority != nil && !priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// uniqueStrings drops blanks and duplicates, keeping the first occurrence.
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		if v == "" {
			continue
		}
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
