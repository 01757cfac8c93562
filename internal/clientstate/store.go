package clientstate

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/models"
)

// SelectionStore persists the last selected workspace id.
type SelectionStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, workspaceID string) error
}

// MemorySelection keeps the selection in process.
type MemorySelection struct {
	mu sync.Mutex
	id string
}

func (m *MemorySelection) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, nil
}

func (m *MemorySelection) Save(_ context.Context, workspaceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = workspaceID
	return nil
}

// ActiveOrganizationProvider is the identity provider's notion of the
// user's active organization.
type ActiveOrganizationProvider interface {
	ActiveOrganization(ctx context.Context) (string, error)
	SetActive(ctx context.Context, organizationID string) error
}

// ReconcileActiveOrganization makes the provider's active organization match
// the selected workspace. It calls SetActive at most once and only when the
// two differ, so repeated calls settle without further writes.
func ReconcileActiveOrganization(ctx context.Context, state State, provider ActiveOrganizationProvider) (bool, error) {
	if state.CurrentID == "" {
		return false, nil
	}
	active, err := provider.ActiveOrganization(ctx)
	if err != nil {
		return false, fmt.Errorf("read active organization: %w", err)
	}
	if active == state.CurrentID {
		return false, nil
	}
	if err := provider.SetActive(ctx, state.CurrentID); err != nil {
		return false, fmt.Errorf("set active organization: %w", err)
	}
	return true, nil
}

// FetchFunc loads the user's workspaces, e.g. from GET /api/workspaces.
type FetchFunc func(ctx context.Context) ([]models.Workspace, error)

// Store serializes actions against one State and persists selection changes.
type Store struct {
	mu        sync.Mutex
	state     State
	selection SelectionStore
	provider  ActiveOrganizationProvider
	log       *logrus.Logger
}

// NewStore creates a store. provider may be nil when there is no identity
// provider session to reconcile.
func NewStore(selection SelectionStore, provider ActiveOrganizationProvider, log *logrus.Logger) *Store {
	return &Store{selection: selection, provider: provider, log: log}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies action, saves the selection when it changed and then
// reconciles the provider's active organization.
func (s *Store) Dispatch(ctx context.Context, action Action) (State, error) {
	s.mu.Lock()
	before := s.state.CurrentID
	s.state = Reduce(s.state, action)
	next := s.state
	s.mu.Unlock()

	if next.CurrentID == before {
		return next, nil
	}
	if err := s.selection.Save(ctx, next.CurrentID); err != nil {
		return next, fmt.Errorf("save selection: %w", err)
	}
	if s.provider != nil {
		if _, err := ReconcileActiveOrganization(ctx, next, s.provider); err != nil {
			return next, err
		}
	}
	return next, nil
}

// Refresh runs the fetch lifecycle: pending, then fulfilled with the
// persisted selection, or rejected.
func (s *Store) Refresh(ctx context.Context, fetch FetchFunc) (State, error) {
	if _, err := s.Dispatch(ctx, FetchPending{}); err != nil {
		return s.State(), err
	}

	workspaces, err := fetch(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to fetch workspaces")
		state, _ := s.Dispatch(ctx, FetchRejected{Err: err})
		return state, err
	}

	saved, err := s.selection.Load(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to load saved workspace selection")
		saved = ""
	}
	return s.Dispatch(ctx, FetchFulfilled{Workspaces: workspaces, SavedID: saved})
}
