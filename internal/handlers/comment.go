package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/services"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	type CreateCommentRequest struct {
		Content string `json:"content" binding:"required"`
		TaskID  string `json:"taskId" binding:"required"`
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), userID, req.TaskID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// ListComments returns a task's comments, oldest first
func (h *CommentHandler) ListComments(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	comments, err := h.commentService.ListForTask(c.Request.Context(), userID, c.Param("taskId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}
