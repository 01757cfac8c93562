package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
)

type WorkspaceHandler struct {
	workspaceService *services.WorkspaceService
}

func NewWorkspaceHandler(workspaceService *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService}
}

// ListWorkspaces returns the workspaces of the current user with their
// projects, tasks and comments.
func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	workspaces, err := h.workspaceService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"workspaces": workspaces})
}

// AddMember adds an existing user to a workspace by email
func (h *WorkspaceHandler) AddMember(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	type AddMemberRequest struct {
		Email       string               `json:"email" binding:"required"`
		Role        models.WorkspaceRole `json:"role" binding:"required,oneof=ADMIN MEMBER"`
		WorkspaceID string               `json:"workspaceId" binding:"required"`
		Message     string               `json:"message"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	member, err := h.workspaceService.AddMember(c.Request.Context(), userID, services.AddWorkspaceMemberInput{
		WorkspaceID: req.WorkspaceID,
		Email:       req.Email,
		Role:        req.Role,
		Message:     req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"member":  member,
		"message": "Member added successfully",
	})
}
