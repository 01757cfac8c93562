package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/services"
)

// AuthHandler coordinates session-related HTTP handlers. Credentials are
// handled by the identity provider.
type AuthHandler struct {
	userService *services.UserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// CreateSession stores the principal of a verified bearer token in the
// session cookie.
func (h *AuthHandler) CreateSession(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, userID)
	if orgID := middleware.GetActiveOrgID(c); orgID != "" {
		session.Set(constants.ContextKeyActiveOrgID, orgID)
	} else {
		session.Delete(constants.ContextKeyActiveOrgID)
	}
	if err := session.Save(); err != nil {
		_ = c.Error(err)
		apierrors.InternalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Session created",
	})
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		_ = c.Error(err)
		apierrors.InternalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}
