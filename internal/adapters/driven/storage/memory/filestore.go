package memory

import (
	"context"
	"sync"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

// Ensure the file stores implement their interfaces.
var (
	_ driven.FileTreeStore  = (*FileTreeStore)(nil)
	_ driven.LocalFileStore = (*LocalFileStore)(nil)
)

// FileTreeStore is an in-memory implementation of driven.FileTreeStore.
type FileTreeStore struct {
	mu      sync.RWMutex
	entries map[int64][]domain.FileFolder
}

// NewFileTreeStore creates a new in-memory file tree store.
func NewFileTreeStore() *FileTreeStore {
	return &FileTreeStore{entries: make(map[int64][]domain.FileFolder)}
}

// ReplaceAll swaps a course's tree snapshot.
func (s *FileTreeStore) ReplaceAll(_ context.Context, courseID int64, entries []domain.FileFolder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[courseID] = append([]domain.FileFolder(nil), entries...)
	return nil
}

// ListFiles returns all non-folder entries for a course.
func (s *FileTreeStore) ListFiles(_ context.Context, courseID int64) ([]domain.FileFolder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var files []domain.FileFolder
	for _, e := range s.entries[courseID] {
		if !e.IsFolder {
			files = append(files, e)
		}
	}
	return files, nil
}

// FindByIDs returns the entries with the given file IDs.
func (s *FileTreeStore) FindByIDs(_ context.Context, courseID int64, fileIDs []int64) ([]domain.FileFolder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[int64]bool, len(fileIDs))
	for _, id := range fileIDs {
		wanted[id] = true
	}
	var files []domain.FileFolder
	for _, e := range s.entries[courseID] {
		if !e.IsFolder && wanted[e.ID] {
			files = append(files, e)
		}
	}
	return files, nil
}

// LocalFileStore is an in-memory implementation of driven.LocalFileStore.
type LocalFileStore struct {
	mu      sync.RWMutex
	records map[int64]map[int64]domain.LocalFileRecord
}

// NewLocalFileStore creates a new in-memory local file store.
func NewLocalFileStore() *LocalFileStore {
	return &LocalFileStore{records: make(map[int64]map[int64]domain.LocalFileRecord)}
}

// Upsert stores or updates a record.
func (s *LocalFileStore) Upsert(_ context.Context, record domain.LocalFileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[record.CourseID] == nil {
		s.records[record.CourseID] = make(map[int64]domain.LocalFileRecord)
	}
	s.records[record.CourseID][record.FileID] = record
	return nil
}

// Find retrieves the record for a file.
func (s *LocalFileStore) Find(_ context.Context, courseID, fileID int64) (*domain.LocalFileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[courseID][fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// ListByCourse returns all records for a course.
func (s *LocalFileStore) ListByCourse(_ context.Context, courseID int64) ([]domain.LocalFileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.LocalFileRecord, 0, len(s.records[courseID]))
	for _, r := range s.records[courseID] {
		records = append(records, r)
	}
	return records, nil
}

// FindRemoved returns records whose file ID is not in keepIDs.
func (s *LocalFileStore) FindRemoved(_ context.Context, courseID int64, keepIDs []int64) ([]domain.LocalFileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keep := make(map[int64]bool, len(keepIDs))
	for _, id := range keepIDs {
		keep[id] = true
	}
	var removed []domain.LocalFileRecord
	for _, r := range s.records[courseID] {
		if !keep[r.FileID] {
			removed = append(removed, r)
		}
	}
	return removed, nil
}

// Delete removes a record.
func (s *LocalFileStore) Delete(_ context.Context, courseID, fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records[courseID], fileID)
	return nil
}
