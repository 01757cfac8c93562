package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/services"
)

// respondError maps a service error onto the API error envelope. Unexpected
// errors are attached to the context for the request logger and the client
// only sees a generic message.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, policy.ErrDenied):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrConflict):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrValidation):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrUnavailable):
		apierrors.ServiceUnavailable(c, err.Error())
	default:
		_ = c.Error(err)
		apierrors.InternalError(c)
	}
}
