// Package policy decides whether a principal may perform an action on a
// workspace, project, task or comment. Decisions are computed from the
// resource state passed in and nothing is cached between calls.
package policy

import (
	"errors"
	"fmt"

	"github.com/yukikurage/project-management-api/internal/models"
)

type Action string

const (
	ActionWorkspaceMemberAdd Action = "workspace.member.add"
	ActionProjectCreate      Action = "project.create"
	ActionProjectUpdate      Action = "project.update"
	ActionProjectMemberAdd   Action = "project.member.add"
	ActionProjectView        Action = "project.view"
	ActionTaskCreate         Action = "task.create"
	ActionTaskUpdate         Action = "task.update"
	ActionTaskDelete         Action = "task.delete"
	ActionTaskGenerate       Action = "task.generate"
	ActionCommentCreate      Action = "comment.create"
)

// ErrDenied is wrapped by every denial reason.
var ErrDenied = errors.New("permission denied")

var (
	ErrNotWorkspaceMember       = fmt.Errorf("%w: user is not a member of the workspace", ErrDenied)
	ErrNotWorkspaceAdmin        = fmt.Errorf("%w: only workspace admins can perform this action", ErrDenied)
	ErrNotProjectEditor         = fmt.Errorf("%w: only workspace admins or the team lead can update the project", ErrDenied)
	ErrNotTeamLead              = fmt.Errorf("%w: only the project team lead can perform this action", ErrDenied)
	ErrAssigneeNotProjectMember = fmt.Errorf("%w: assignee is not a member of the project", ErrDenied)
	ErrNotProjectMember         = fmt.Errorf("%w: user is not a member of the project", ErrDenied)
	ErrUnknownAction            = fmt.Errorf("%w: unknown action", ErrDenied)
)

// Resource is the slice of store state a decision depends on. Callers load it
// fresh for every request.
type Resource struct {
	// WorkspaceRoles maps user id to role for the owning workspace.
	WorkspaceRoles map[string]models.WorkspaceRole
	TeamLead       string
	ProjectMembers map[string]struct{}
	// AssigneeID is checked against ProjectMembers when set.
	AssigneeID *string
}

type Decision struct {
	Allowed bool
	Err     error
}

func allow() Decision { return Decision{Allowed: true} }

func deny(err error) Decision { return Decision{Err: err} }

// Decide evaluates action for principalID against rc.
func Decide(principalID string, action Action, rc Resource) Decision {
	switch action {
	case ActionWorkspaceMemberAdd, ActionProjectCreate:
		if !rc.isAdmin(principalID) {
			return deny(ErrNotWorkspaceAdmin)
		}
		return allow()

	case ActionProjectView:
		if _, ok := rc.WorkspaceRoles[principalID]; !ok {
			return deny(ErrNotWorkspaceMember)
		}
		return allow()

	case ActionProjectUpdate:
		if !rc.isAdmin(principalID) && !rc.isTeamLead(principalID) {
			return deny(ErrNotProjectEditor)
		}
		return allow()

	case ActionProjectMemberAdd, ActionTaskGenerate:
		if !rc.isTeamLead(principalID) {
			return deny(ErrNotTeamLead)
		}
		return allow()

	case ActionTaskCreate, ActionTaskUpdate, ActionTaskDelete:
		// Workspace admins get no override here.
		if !rc.isTeamLead(principalID) {
			return deny(ErrNotTeamLead)
		}
		if rc.AssigneeID != nil && !rc.isProjectMember(*rc.AssigneeID) {
			return deny(ErrAssigneeNotProjectMember)
		}
		return allow()

	case ActionCommentCreate:
		if !rc.isProjectMember(principalID) {
			return deny(ErrNotProjectMember)
		}
		return allow()
	}

	return deny(ErrUnknownAction)
}

func (rc Resource) isAdmin(userID string) bool {
	return rc.WorkspaceRoles[userID] == models.RoleAdmin
}

func (rc Resource) isTeamLead(userID string) bool {
	return userID != "" && rc.TeamLead == userID
}

func (rc Resource) isProjectMember(userID string) bool {
	_, ok := rc.ProjectMembers[userID]
	return ok
}

// WorkspaceRoles indexes the members of a workspace by user id.
func WorkspaceRoles(members []models.WorkspaceMember) map[string]models.WorkspaceRole {
	roles := make(map[string]models.WorkspaceRole, len(members))
	for _, m := range members {
		roles[m.UserID] = m.Role
	}
	return roles
}

// ProjectMembers indexes the members of a project by user id.
func ProjectMembers(members []models.ProjectMember) map[string]struct{} {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m.UserID] = struct{}{}
	}
	return set
}

// ForProject builds the resource for project-scoped actions.
func ForProject(project *models.Project, workspaceMembers []models.WorkspaceMember) Resource {
	return Resource{
		WorkspaceRoles: WorkspaceRoles(workspaceMembers),
		TeamLead:       project.TeamLead,
		ProjectMembers: ProjectMembers(project.Members),
	}
}

// WithAssignee returns a copy of rc that also checks assigneeID.
func (rc Resource) WithAssignee(assigneeID *string) Resource {
	rc.AssigneeID = assigneeID
	return rc
}
