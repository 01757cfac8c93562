package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
)

// TokenVerifier validates identity-provider session tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Principal, error)
}

// RequireAuth resolves the principal from a bearer token, falling back to
// the session cookie. Requests with neither are rejected with 401.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				apierrors.Unauthorized(c, "Malformed authorization header")
				return
			}

			principal, err := verifier.Verify(token)
			if err != nil {
				apierrors.Unauthorized(c, "Invalid or expired token")
				return
			}

			setPrincipal(c, principal.UserID, principal.ActiveOrgID)
			c.Next()
			return
		}

		session := sessions.Default(c)
		userID, _ := session.Get(constants.ContextKeyUserID).(string)
		if userID == "" {
			apierrors.Unauthorized(c, "")
			return
		}
		activeOrgID, _ := session.Get(constants.ContextKeyActiveOrgID).(string)

		setPrincipal(c, userID, activeOrgID)
		c.Next()
	}
}

func setPrincipal(c *gin.Context, userID, activeOrgID string) {
	c.Set(constants.ContextKeyUserID, userID)
	if activeOrgID != "" {
		c.Set(constants.ContextKeyActiveOrgID, activeOrgID)
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(constants.ContextKeyUserID)
	return userID, userID != ""
}

// GetActiveOrgID returns the provider's active organization, if the token or
// session carried one.
func GetActiveOrgID(c *gin.Context) string {
	return c.GetString(constants.ContextKeyActiveOrgID)
}
