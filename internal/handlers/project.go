package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// CreateProject creates a project in a workspace. Workspace admins only.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	type CreateProjectRequest struct {
		WorkspaceID string               `json:"workspaceId" binding:"required"`
		Name        string               `json:"name" binding:"required"`
		Description string               `json:"description"`
		Status      models.ProjectStatus `json:"status"`
		Priority    models.Priority      `json:"priority"`
		Progress    int                  `json:"progress"`
		StartDate   *string              `json:"start_date"`
		EndDate     *string              `json:"end_date"`
		TeamMembers []string             `json:"team_members"`
		TeamLead    string               `json:"team_lead"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		apierrors.BadRequest(c, "Invalid start_date")
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		apierrors.BadRequest(c, "Invalid end_date")
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), userID, services.CreateProjectInput{
		WorkspaceID:   req.WorkspaceID,
		Name:          req.Name,
		Description:   req.Description,
		Status:        req.Status,
		Priority:      req.Priority,
		Progress:      req.Progress,
		StartDate:     startDate,
		EndDate:       endDate,
		TeamMembers:   req.TeamMembers,
		TeamLeadEmail: req.TeamLead,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project": project,
		"message": "Project created successfully",
	})
}

// UpdateProject rewrites the project fields present in the body. The dates
// are always replaced, so an omitted date clears it.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	type UpdateProjectRequest struct {
		WorkspaceID string                `json:"workspaceId"`
		ID          string                `json:"id"`
		Name        *string               `json:"name"`
		Description *string               `json:"description"`
		Status      *models.ProjectStatus `json:"status"`
		Priority    *models.Priority      `json:"priority"`
		Progress    *int                  `json:"progress"`
		StartDate   *string               `json:"start_date"`
		EndDate     *string               `json:"end_date"`
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		apierrors.BadRequest(c, "Invalid start_date")
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		apierrors.BadRequest(c, "Invalid end_date")
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), userID, services.UpdateProjectInput{
		WorkspaceID: req.WorkspaceID,
		ProjectID:   req.ID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Progress:    req.Progress,
		StartDate:   startDate,
		EndDate:     endDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"project": project,
		"message": "Project updated successfully",
	})
}

// GetProject returns a single project to members of its workspace.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), userID, c.Param("projectId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

// AddMember adds a workspace member to the project by email
func (h *ProjectHandler) AddMember(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	type AddMemberRequest struct {
		Email string `json:"email"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.projectService.AddMember(c.Request.Context(), userID, c.Param("projectId"), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"member":  member,
		"message": "Member added successfully",
	})
}
