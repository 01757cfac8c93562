package clientstate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/logging"
	"github.com/yukikurage/project-management-api/internal/models"
)

func workspaces() []models.Workspace {
	return []models.Workspace{
		{ID: "org_a", Name: "A", Projects: []models.Project{
			{ID: "p1", WorkspaceID: "org_a", Tasks: []models.Task{
				{ID: "t1", ProjectID: "p1", Title: "one"},
				{ID: "t2", ProjectID: "p1", Title: "two"},
			}},
		}},
		{ID: "org_b", Name: "B"},
	}
}

func TestFetchLifecycle(t *testing.T) {
	s := Reduce(State{}, FetchPending{})
	assert.True(t, s.Loading)

	s = Reduce(s, FetchFulfilled{Workspaces: workspaces(), SavedID: "org_b"})
	assert.False(t, s.Loading)
	assert.Equal(t, "org_b", s.CurrentID)

	s = Reduce(s, FetchFulfilled{Workspaces: workspaces(), SavedID: "org_gone"})
	assert.Equal(t, "org_a", s.CurrentID)

	s = Reduce(s, FetchFulfilled{Workspaces: nil, SavedID: "org_a"})
	assert.Empty(t, s.CurrentID)
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestFetchRejectedKeepsList(t *testing.T) {
	s := Reduce(State{}, FetchFulfilled{Workspaces: workspaces()})
	s = Reduce(s, FetchPending{})
	s = Reduce(s, FetchRejected{Err: errors.New("offline")})

	assert.False(t, s.Loading)
	assert.Len(t, s.Workspaces, 2)
	assert.Equal(t, "org_a", s.CurrentID)
}

func TestSetCurrentIgnoresUnknownWorkspace(t *testing.T) {
	s := Reduce(State{}, FetchFulfilled{Workspaces: workspaces()})

	s = Reduce(s, SetCurrent{ID: "org_b"})
	assert.Equal(t, "org_b", s.CurrentID)

	s = Reduce(s, SetCurrent{ID: "org_x"})
	assert.Equal(t, "org_b", s.CurrentID)
}

func TestWorkspaceMutations(t *testing.T) {
	s := Reduce(State{}, FetchFulfilled{Workspaces: workspaces()})

	s = Reduce(s, AddWorkspace{Workspace: models.Workspace{ID: "org_c", Name: "C"}})
	assert.Equal(t, "org_c", s.CurrentID)
	assert.Len(t, s.Workspaces, 3)

	s = Reduce(s, UpdateWorkspace{Workspace: models.Workspace{ID: "org_c", Name: "Renamed"}})
	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "Renamed", current.Name)

	s = Reduce(s, DeleteWorkspace{ID: "org_c"})
	assert.Len(t, s.Workspaces, 2)
	assert.Equal(t, "org_a", s.CurrentID)

	s = Reduce(s, DeleteWorkspace{ID: "org_b"})
	assert.Equal(t, "org_a", s.CurrentID)
}

func TestProjectAndTaskMutations(t *testing.T) {
	s := Reduce(State{}, FetchFulfilled{Workspaces: workspaces()})

	s = Reduce(s, AddProject{Project: models.Project{ID: "p2"}})
	s = Reduce(s, AddTask{Task: models.Task{ID: "t3", ProjectID: "p2", Title: "three"}})
	s = Reduce(s, UpdateTask{Task: models.Task{ID: "t1", ProjectID: "p1", Title: "uno"}})
	s = Reduce(s, DeleteTasks{IDs: []string{"t2", "t3"}})

	current, ok := s.Current()
	require.True(t, ok)
	require.Len(t, current.Projects, 2)
	require.Len(t, current.Projects[0].Tasks, 1)
	assert.Equal(t, "uno", current.Projects[0].Tasks[0].Title)
	assert.Empty(t, current.Projects[1].Tasks)

	// Tasks for projects outside the selected workspace are dropped.
	after := Reduce(s, AddTask{Task: models.Task{ID: "t9", ProjectID: "p_elsewhere"}})
	assert.Equal(t, s, after)
}

func TestReduceDoesNotModifyInput(t *testing.T) {
	before := Reduce(State{}, FetchFulfilled{Workspaces: workspaces()})

	_ = Reduce(before, UpdateTask{Task: models.Task{ID: "t1", ProjectID: "p1", Title: "changed"}})
	_ = Reduce(before, DeleteTasks{IDs: []string{"t1"}})
	_ = Reduce(before, UpdateWorkspace{Workspace: models.Workspace{ID: "org_b", Name: "changed"}})

	assert.Equal(t, "one", before.Workspaces[0].Projects[0].Tasks[0].Title)
	assert.Len(t, before.Workspaces[0].Projects[0].Tasks, 2)
	assert.Equal(t, "B", before.Workspaces[1].Name)
}

type fakeProvider struct {
	active string
	calls  []string
	err    error
}

func (p *fakeProvider) ActiveOrganization(context.Context) (string, error) {
	return p.active, p.err
}

func (p *fakeProvider) SetActive(_ context.Context, id string) error {
	p.calls = append(p.calls, id)
	p.active = id
	return nil
}

func TestReconcileActiveOrganization(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{active: "org_a"}

	changed, err := ReconcileActiveOrganization(ctx, State{CurrentID: "org_a"}, provider)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, provider.calls)

	changed, err = ReconcileActiveOrganization(ctx, State{CurrentID: "org_b"}, provider)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = ReconcileActiveOrganization(ctx, State{CurrentID: "org_b"}, provider)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, []string{"org_b"}, provider.calls)

	changed, err = ReconcileActiveOrganization(ctx, State{}, provider)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestReconcileReportsProviderErrors(t *testing.T) {
	provider := &fakeProvider{err: errors.New("no session")}

	_, err := ReconcileActiveOrganization(context.Background(), State{CurrentID: "org_a"}, provider)
	assert.Error(t, err)
	assert.Empty(t, provider.calls)
}

func TestStoreRefreshRestoresSelection(t *testing.T) {
	ctx := context.Background()
	selection := &MemorySelection{}
	require.NoError(t, selection.Save(ctx, "org_b"))
	provider := &fakeProvider{active: "org_a"}
	store := NewStore(selection, provider, logging.Discard())

	state, err := store.Refresh(ctx, func(context.Context) ([]models.Workspace, error) {
		return workspaces(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "org_b", state.CurrentID)
	assert.False(t, state.Loading)
	assert.Equal(t, []string{"org_b"}, provider.calls)

	_, err = store.Dispatch(ctx, SetCurrent{ID: "org_a"})
	require.NoError(t, err)
	saved, err := selection.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "org_a", saved)
	assert.Equal(t, []string{"org_b", "org_a"}, provider.calls)

	// Selecting the same workspace again is not a change.
	_, err = store.Dispatch(ctx, SetCurrent{ID: "org_a"})
	require.NoError(t, err)
	assert.Len(t, provider.calls, 2)
}

func TestStoreRefreshFailure(t *testing.T) {
	store := NewStore(&MemorySelection{}, nil, logging.Discard())

	state, err := store.Refresh(context.Background(), func(context.Context) ([]models.Workspace, error) {
		return nil, errors.New("offline")
	})
	assert.Error(t, err)
	assert.False(t, state.Loading)
	assert.Empty(t, state.CurrentID)
}
