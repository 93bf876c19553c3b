package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

// Ensure the settings stores implement their interfaces.
var (
	_ driven.SelectionStore = (*SelectionStore)(nil)
	_ driven.SettingsStore  = (*SettingsStore)(nil)
	_ driven.SchedulerStore = (*SchedulerStore)(nil)
)

// SelectionStore is an in-memory implementation of driven.SelectionStore.
type SelectionStore struct {
	mu         sync.RWMutex
	selections map[int64]domain.CourseSyncSelection
}

// NewSelectionStore creates a new in-memory selection store.
func NewSelectionStore() *SelectionStore {
	return &SelectionStore{selections: make(map[int64]domain.CourseSyncSelection)}
}

// Save stores or updates a selection.
func (s *SelectionStore) Save(_ context.Context, selection domain.CourseSyncSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections[selection.CourseID] = cloneSelection(selection)
	return nil
}

// Find retrieves a course's selection.
func (s *SelectionStore) Find(_ context.Context, courseID int64) (*domain.CourseSyncSelection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	selection, ok := s.selections[courseID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneSelection(selection)
	return &out, nil
}

// List returns all selections.
func (s *SelectionStore) List(_ context.Context) ([]domain.CourseSyncSelection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CourseSyncSelection, 0, len(s.selections))
	for _, selection := range s.selections {
		out = append(out, cloneSelection(selection))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

// Delete removes a selection.
func (s *SelectionStore) Delete(_ context.Context, courseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selections, courseID)
	return nil
}

func cloneSelection(sel domain.CourseSyncSelection) domain.CourseSyncSelection {
	tabs := make(map[domain.TabID]bool, len(sel.Tabs))
	for id, v := range sel.Tabs {
		tabs[id] = v
	}
	sel.Tabs = tabs
	sel.FileIDs = append([]int64(nil), sel.FileIDs...)
	return sel
}

// SettingsStore is an in-memory implementation of driven.SettingsStore.
type SettingsStore struct {
	mu       sync.RWMutex
	settings *domain.SyncSettings
}

// NewSettingsStore creates a new in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{}
}

// Get returns the settings singleton, creating defaults on first read.
func (s *SettingsStore) Get(_ context.Context) (domain.SyncSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		defaults := domain.DefaultSyncSettings()
		s.settings = &defaults
	}
	return *s.settings, nil
}

// Save replaces the settings singleton.
func (s *SettingsStore) Save(_ context.Context, settings domain.SyncSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
	return nil
}

// SchedulerStore is an in-memory implementation of driven.SchedulerStore.
type SchedulerStore struct {
	mu   sync.RWMutex
	work map[string]domain.ScheduledWork
}

// NewSchedulerStore creates a new in-memory scheduler store.
func NewSchedulerStore() *SchedulerStore {
	return &SchedulerStore{work: make(map[string]domain.ScheduledWork)}
}

// SaveWork stores or updates a work definition.
func (s *SchedulerStore) SaveWork(_ context.Context, work *domain.ScheduledWork) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.work[work.ID] = *work
	return nil
}

// GetWork retrieves a work definition, or nil if absent.
func (s *SchedulerStore) GetWork(_ context.Context, id string) (*domain.ScheduledWork, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	work, ok := s.work[id]
	if !ok {
		return nil, nil
	}
	return &work, nil
}

// ListWork returns all work definitions.
func (s *SchedulerStore) ListWork(_ context.Context) ([]domain.ScheduledWork, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ScheduledWork, 0, len(s.work))
	for _, w := range s.work {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteWork removes a work definition.
func (s *SchedulerStore) DeleteWork(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.work, id)
	return nil
}
