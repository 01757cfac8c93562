// Package clientstate holds the workspace selection state of an API client.
// Reduce is pure; Store adds persistence of the selection and keeps the
// identity provider's active organization in line with it.
package clientstate

import (
	"slices"

	"github.com/yukikurage/project-management-api/internal/models"
)

// State is the client's view of the user's workspaces. CurrentID is empty
// when no workspace is selected.
type State struct {
	Workspaces []models.Workspace
	CurrentID  string
	Loading    bool
}

// Current returns the selected workspace, if any.
func (s State) Current() (models.Workspace, bool) {
	i := s.index(s.CurrentID)
	if i < 0 {
		return models.Workspace{}, false
	}
	return s.Workspaces[i], true
}

func (s State) index(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.Workspaces, func(w models.Workspace) bool { return w.ID == id })
}

// Action is one of the state transitions below.
type Action interface {
	apply(State) State
}

type FetchPending struct{}

// FetchFulfilled replaces the workspace list. SavedID is the persisted
// selection; it is kept when still present, otherwise the first workspace
// is selected.
type FetchFulfilled struct {
	Workspaces []models.Workspace
	SavedID    string
}

// FetchRejected ends loading and keeps the previous list.
type FetchRejected struct {
	Err error
}

// SetCurrent selects a workspace. Unknown ids are ignored.
type SetCurrent struct {
	ID string
}

// AddWorkspace appends a workspace and selects it.
type AddWorkspace struct {
	Workspace models.Workspace
}

type UpdateWorkspace struct {
	Workspace models.Workspace
}

// DeleteWorkspace removes a workspace. Deleting the selected one selects
// the first remaining workspace.
type DeleteWorkspace struct {
	ID string
}

// AddProject adds a project to its workspace, or to the selected one when
// the project carries no workspace id.
type AddProject struct {
	Project models.Project
}

// AddTask, UpdateTask and DeleteTasks act on the selected workspace.
type AddTask struct {
	Task models.Task
}

type UpdateTask struct {
	Task models.Task
}

type DeleteTasks struct {
	IDs []string
}

// Reduce returns the state after action. The input state is not modified.
func Reduce(s State, action Action) State {
	if action == nil {
		return s
	}
	return action.apply(s)
}

func (FetchPending) apply(s State) State {
	s.Loading = true
	return s
}

func (a FetchFulfilled) apply(s State) State {
	s.Workspaces = slices.Clone(a.Workspaces)
	s.Loading = false
	switch {
	case s.index(a.SavedID) >= 0:
		s.CurrentID = a.SavedID
	case len(s.Workspaces) > 0:
		s.CurrentID = s.Workspaces[0].ID
	default:
		s.CurrentID = ""
	}
	return s
}

func (FetchRejected) apply(s State) State {
	s.Loading = false
	return s
}

func (a SetCurrent) apply(s State) State {
	if s.index(a.ID) >= 0 {
		s.CurrentID = a.ID
	}
	return s
}

func (a AddWorkspace) apply(s State) State {
	s.Workspaces = append(slices.Clone(s.Workspaces), a.Workspace)
	s.CurrentID = a.Workspace.ID
	return s
}

func (a UpdateWorkspace) apply(s State) State {
	i := s.index(a.Workspace.ID)
	if i < 0 {
		return s
	}
	s.Workspaces = slices.Clone(s.Workspaces)
	s.Workspaces[i] = a.Workspace
	return s
}

func (a DeleteWorkspace) apply(s State) State {
	if s.index(a.ID) < 0 {
		return s
	}
	s.Workspaces = slices.DeleteFunc(slices.Clone(s.Workspaces), func(w models.Workspace) bool { return w.ID == a.ID })
	if s.CurrentID == a.ID {
		s.CurrentID = ""
		if len(s.Workspaces) > 0 {
			s.CurrentID = s.Workspaces[0].ID
		}
	}
	return s
}

func (a AddProject) apply(s State) State {
	target := a.Project.WorkspaceID
	if target == "" {
		target = s.CurrentID
	}
	return s.withWorkspace(target, func(w *models.Workspace) {
		w.Projects = append(slices.Clone(w.Projects), a.Project)
	})
}

func (a AddTask) apply(s State) State {
	return s.withProject(a.Task.ProjectID, func(p *models.Project) {
		p.Tasks = append(slices.Clone(p.Tasks), a.Task)
	})
}

func (a UpdateTask) apply(s State) State {
	return s.withProject(a.Task.ProjectID, func(p *models.Project) {
		i := slices.IndexFunc(p.Tasks, func(t models.Task) bool { return t.ID == a.Task.ID })
		if i < 0 {
			return
		}
		p.Tasks = slices.Clone(p.Tasks)
		p.Tasks[i] = a.Task
	})
}

func (a DeleteTasks) apply(s State) State {
	if len(a.IDs) == 0 {
		return s
	}
	return s.withWorkspace(s.CurrentID, func(w *models.Workspace) {
		projects := slices.Clone(w.Projects)
		for i := range projects {
			projects[i].Tasks = slices.DeleteFunc(slices.Clone(projects[i].Tasks), func(t models.Task) bool {
				return slices.Contains(a.IDs, t.ID)
			})
		}
		w.Projects = projects
	})
}

// withWorkspace copies the list, applies fn to the copy of workspace id and
// returns the new state. Missing workspaces leave s unchanged.
func (s State) withWorkspace(id string, fn func(*models.Workspace)) State {
	i := s.index(id)
	if i < 0 {
		return s
	}
	s.Workspaces = slices.Clone(s.Workspaces)
	fn(&s.Workspaces[i])
	return s
}

func (s State) withProject(projectID string, fn func(*models.Project)) State {
	current, ok := s.Current()
	if !ok {
		return s
	}
	j := slices.IndexFunc(current.Projects, func(p models.Project) bool { return p.ID == projectID })
	if j < 0 {
		return s
	}
	return s.withWorkspace(current.ID, func(w *models.Workspace) {
		w.Projects = slices.Clone(w.Projects)
		fn(&w.Projects[j])
	})
}
