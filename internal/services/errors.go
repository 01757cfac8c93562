package services

import "errors"

// Error kinds. Handlers map a service error to a status by its kind.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("invalid input")
	ErrUnavailable = errors.New("service unavailable")
)

type serviceError struct {
	kind error
	msg  string
}

func (e *serviceError) Error() string { return e.msg }
func (e *serviceError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &serviceError{kind: kind, msg: msg}
}

var (
	ErrUserNotFound      = newError(ErrNotFound, "user not found")
	ErrWorkspaceNotFound = newError(ErrNotFound, "workspace not found")
	ErrProjectNotFound   = newError(ErrNotFound, "project not found")
	ErrTaskNotFound      = newError(ErrNotFound, "task not found")

	ErrAlreadyWorkspaceMember = newError(ErrConflict, "user is already a member of the workspace")
	ErrAlreadyProjectMember   = newError(ErrConflict, "user is already a member of the project")
	ErrDuplicateProjectMember = newError(ErrConflict, "duplicate project member")

	ErrWorkspaceIDRequired = newError(ErrValidation, "workspaceId is required")
	ErrEmailRequired       = newError(ErrValidation, "email is required")
	ErrInvalidRole         = newError(ErrValidation, "role must be ADMIN or MEMBER")
	ErrNameRequired        = newError(ErrValidation, "name is required")
	ErrProjectIDRequired   = newError(ErrValidation, "projectId is required")
	ErrTitleRequired       = newError(ErrValidation, "title is required")
	ErrTaskIDRequired      = newError(ErrValidation, "taskId is required")
	ErrTaskIDsRequired     = newError(ErrValidation, "taskIds must not be empty")
	ErrTooManyTasks        = newError(ErrValidation, "too many taskIds")
	ErrTasksSpanProjects   = newError(ErrValidation, "all tasks must belong to the same project")
	ErrContentRequired     = newError(ErrValidation, "content is required")
	ErrContentTooLong      = newError(ErrValidation, "content is too long")
	ErrInvalidStatus       = newError(ErrValidation, "invalid status")
	ErrInvalidPriority     = newError(ErrValidation, "invalid priority")
	ErrInvalidType         = newError(ErrValidation, "invalid type")
	ErrInvalidProgress     = newError(ErrValidation, "progress must be between 0 and 100")
	ErrTextRequired        = newError(ErrValidation, "text is required")

	ErrAIServiceNotConfigured = newError(ErrUnavailable, "AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)
