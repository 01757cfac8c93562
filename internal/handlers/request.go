package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/middleware"
)

const dateOnly = "2006-01-02"

// parseDate accepts RFC 3339 timestamps or plain dates. Empty means no date.
func parseDate(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*value)

	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse(dateOnly, v); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("invalid date %q", v)
}

// requireUser returns the principal id, writing a 401 when it is missing.
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return "", false
	}
	return userID, true
}
