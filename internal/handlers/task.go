package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTask creates a task and queues the assignment notification. The
// request's Origin header is used for links in the email.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		ProjectID   string            `json:"projectId" binding:"required"`
		Type        models.TaskType   `json:"type"`
		Title       string            `json:"title" binding:"required"`
		Description string            `json:"description"`
		Status      models.TaskStatus `json:"status"`
		Priority    models.Priority   `json:"priority"`
		AssigneeID  *string           `json:"assigneeId"`
		DueDate     *string           `json:"due_date"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		apierrors.BadRequest(c, "Invalid due_date")
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), userID, services.CreateTaskInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		DueDate:     dueDate,
		Origin:      c.GetHeader("Origin"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task":    task,
		"message": "Task created successfully",
	})
}

// UpdateTask applies the fields present in the body. Unknown fields are ignored.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	// Parse raw JSON to detect which fields were sent
	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input, err := taskUpdateFromBody(rawReq)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	input.Origin = c.GetHeader("Origin")

	task, err := h.taskService.Update(c.Request.Context(), userID, c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task":    task,
		"message": "Task updated successfully",
	})
}

func taskUpdateFromBody(raw map[string]any) (services.UpdateTaskInput, error) {
	var input services.UpdateTaskInput

	str := func(key string) (*string, error) {
		v, ok := raw[key]
		if !ok {
			return nil, nil
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s must be a string", key)
		}
		return &s, nil
	}

	var err error
	if input.Title, err = str("title"); err != nil {
		return input, err
	}
	if input.Description, err = str("description"); err != nil {
		return input, err
	}

	for key, dst := range map[string]func(string){
		"type":     func(s string) { t := models.TaskType(s); input.Type = &t },
		"status":   func(s string) { st := models.TaskStatus(s); input.Status = &st },
		"priority": func(s string) { p := models.Priority(s); input.Priority = &p },
	} {
		v, err := str(key)
		if err != nil {
			return input, err
		}
		if v != nil {
			dst(*v)
		}
	}

	if v, ok := raw["assigneeId"]; ok {
		input.AssigneeSet = true
		if v != nil {
			s, ok := v.(string)
			if !ok {
				return input, fmt.Errorf("assigneeId must be a string or null")
			}
			input.AssigneeID = &s
		}
	}

	if v, ok := raw["due_date"]; ok {
		// due_date was provided (might be null)
		input.DueDateSet = true
		if v != nil {
			s, ok := v.(string)
			if !ok {
				return input, fmt.Errorf("due_date must be a string or null")
			}
			due, err := parseDate(&s)
			if err != nil {
				return input, fmt.Errorf("invalid due_date")
			}
			input.DueDate = due
		}
	}

	return input, nil
}

// DeleteTasks deletes a set of tasks of one project.
func (h *TaskHandler) DeleteTasks(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	type DeleteTasksRequest struct {
		TaskIDs []string `json:"taskIds" binding:"required,min=1"`
	}

	var req DeleteTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if _, err := h.taskService.Delete(c.Request.Context(), userID, req.TaskIDs); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// GenerateTasks drafts tasks for a project from free text using AI
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	type GenerateTasksRequest struct {
		ProjectID string `json:"projectId"`
		Text      string `json:"text"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.taskService.GenerateDrafts(c.Request.Context(), userID, req.ProjectID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": drafts,
	})
}
