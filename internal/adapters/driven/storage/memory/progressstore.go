package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

// Ensure the progress stores implement their interfaces.
var (
	_ driven.CourseProgressStore = (*CourseProgressStore)(nil)
	_ driven.FileProgressStore   = (*FileProgressStore)(nil)
)

// CourseProgressStore is an in-memory implementation of
// driven.CourseProgressStore with snapshot fan-out on every write.
type CourseProgressStore struct {
	mu      sync.RWMutex
	rows    map[int64]domain.CourseSyncProgress
	subs    map[int]chan []domain.CourseSyncProgress
	nextSub int
}

// NewCourseProgressStore creates a new in-memory course progress store.
func NewCourseProgressStore() *CourseProgressStore {
	return &CourseProgressStore{
		rows: make(map[int64]domain.CourseSyncProgress),
		subs: make(map[int]chan []domain.CourseSyncProgress),
	}
}

// Upsert stores or updates a course's progress and publishes a snapshot.
func (s *CourseProgressStore) Upsert(_ context.Context, progress domain.CourseSyncProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[progress.CourseID] = cloneCourseProgress(progress)
	s.publishLocked()
	return nil
}

// Find retrieves a course's progress.
func (s *CourseProgressStore) Find(_ context.Context, courseID int64) (*domain.CourseSyncProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[courseID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneCourseProgress(row)
	return &out, nil
}

// List returns all course progress rows.
func (s *CourseProgressStore) List(_ context.Context) ([]domain.CourseSyncProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

// Watch subscribes to snapshots until ctx is done. Delivery is
// latest-wins; a slow subscriber never blocks a writer.
func (s *CourseProgressStore) Watch(ctx context.Context) <-chan []domain.CourseSyncProgress {
	ch := make(chan []domain.CourseSyncProgress, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	if len(s.rows) > 0 {
		ch <- s.snapshotLocked()
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}()
	return ch
}

func (s *CourseProgressStore) publishLocked() {
	snapshot := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (s *CourseProgressStore) snapshotLocked() []domain.CourseSyncProgress {
	out := make([]domain.CourseSyncProgress, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, cloneCourseProgress(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out
}

func cloneCourseProgress(p domain.CourseSyncProgress) domain.CourseSyncProgress {
	tabs := make(map[domain.TabID]domain.TabProgress, len(p.Tabs))
	for id, tab := range p.Tabs {
		tabs[id] = tab
	}
	p.Tabs = tabs
	return p
}

// FileProgressStore is an in-memory implementation of
// driven.FileProgressStore with snapshot fan-out on every write.
type FileProgressStore struct {
	mu      sync.RWMutex
	rows    map[int64]domain.FileSyncProgress
	subs    map[int]chan []domain.FileSyncProgress
	nextSub int
}

// NewFileProgressStore creates a new in-memory file progress store.
func NewFileProgressStore() *FileProgressStore {
	return &FileProgressStore{
		rows: make(map[int64]domain.FileSyncProgress),
		subs: make(map[int]chan []domain.FileSyncProgress),
	}
}

// Upsert stores or updates a file's progress and publishes a snapshot.
func (s *FileProgressStore) Upsert(_ context.Context, progress domain.FileSyncProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[progress.FileID] = progress
	s.publishLocked()
	return nil
}

// Find retrieves a file's progress.
func (s *FileProgressStore) Find(_ context.Context, fileID int64) (*domain.FileSyncProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &row, nil
}

// List returns all file progress rows.
func (s *FileProgressStore) List(_ context.Context) ([]domain.FileSyncProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

// DeleteNotIn prunes a course's rows outside the current selection.
func (s *FileProgressStore) DeleteNotIn(_ context.Context, courseID int64, keepIDs []int64) error {
	keep := make(map[int64]bool, len(keepIDs))
	for _, id := range keepIDs {
		keep[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.rows {
		if row.CourseID == courseID && !keep[id] {
			delete(s.rows, id)
		}
	}
	s.publishLocked()
	return nil
}

// Watch subscribes to snapshots until ctx is done.
func (s *FileProgressStore) Watch(ctx context.Context) <-chan []domain.FileSyncProgress {
	ch := make(chan []domain.FileSyncProgress, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	if len(s.rows) > 0 {
		ch <- s.snapshotLocked()
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}()
	return ch
}

func (s *FileProgressStore) publishLocked() {
	snapshot := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (s *FileProgressStore) snapshotLocked() []domain.FileSyncProgress {
	out := make([]domain.FileSyncProgress, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileID < out[j].FileID })
	return out
}
