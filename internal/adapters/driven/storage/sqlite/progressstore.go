package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

// Progress rows persist across restarts like any other table, but Watch
// subscriptions are in-process: every mutation re-reads the table and hands
// the full snapshot to subscribers registered on the shared Store. Delivery
// is latest-wins; a slow subscriber skips intermediate snapshots and never
// blocks a writer.

// ==================== Course Progress Store ====================

// courseProgressStore implements driven.CourseProgressStore.
type courseProgressStore struct {
	store *Store
}

var _ driven.CourseProgressStore = (*courseProgressStore)(nil)

// Upsert stores or updates a course progress record and publishes the new
// snapshot to watchers.
func (s *courseProgressStore) Upsert(ctx context.Context, progress domain.CourseSyncProgress) error {
	tabsJSON, err := json.Marshal(progress.Tabs)
	if err != nil {
		return fmt.Errorf("marshalling tab progress: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO course_progress (course_id, course_name, state, tabs)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(course_id) DO UPDATE SET
			course_name = excluded.course_name,
			state = excluded.state,
			tabs = excluded.tabs
	`, progress.CourseID, progress.CourseName, string(progress.State), string(tabsJSON))
	if err != nil {
		return fmt.Errorf("saving course progress: %w", err)
	}

	s.publish(ctx)
	return nil
}

// Find returns the course's progress record, or domain.ErrNotFound.
func (s *courseProgressStore) Find(ctx context.Context, courseID int64) (*domain.CourseSyncProgress, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT course_id, course_name, state, tabs
		FROM course_progress WHERE course_id = ?
	`, courseID)

	var progress domain.CourseSyncProgress
	var state, tabsJSON string
	if err := row.Scan(&progress.CourseID, &progress.CourseName, &state, &tabsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning course progress: %w", err)
	}
	progress.State = domain.ProgressState(state)
	if err := json.Unmarshal([]byte(tabsJSON), &progress.Tabs); err != nil {
		return nil, fmt.Errorf("unmarshalling tab progress: %w", err)
	}

	return &progress, nil
}

// List returns all course progress records ordered by course ID.
func (s *courseProgressStore) List(ctx context.Context) ([]domain.CourseSyncProgress, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT course_id, course_name, state, tabs
		FROM course_progress ORDER BY course_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying course progress: %w", err)
	}
	defer rows.Close()

	var records []domain.CourseSyncProgress //nolint:prealloc // size unknown from query
	for rows.Next() {
		var progress domain.CourseSyncProgress
		var state, tabsJSON string
		if err := rows.Scan(&progress.CourseID, &progress.CourseName, &state, &tabsJSON); err != nil {
			return nil, fmt.Errorf("scanning course progress: %w", err)
		}
		progress.State = domain.ProgressState(state)
		if err := json.Unmarshal([]byte(tabsJSON), &progress.Tabs); err != nil {
			return nil, fmt.Errorf("unmarshalling tab progress: %w", err)
		}
		records = append(records, progress)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating course progress: %w", err)
	}

	return records, nil
}

// Watch subscribes to snapshots until ctx is done.
func (s *courseProgressStore) Watch(ctx context.Context) <-chan []domain.CourseSyncProgress {
	ch := make(chan []domain.CourseSyncProgress, 1)

	s.store.subMu.Lock()
	id := s.store.nextSub
	s.store.nextSub++
	s.store.courseSubs[id] = ch
	s.store.subMu.Unlock()

	// Seed the new subscriber with the current snapshot, if any
	if snapshot, err := s.List(ctx); err == nil && len(snapshot) > 0 {
		ch <- snapshot
	}

	go func() {
		<-ctx.Done()
		s.store.subMu.Lock()
		delete(s.store.courseSubs, id)
		s.store.subMu.Unlock()
	}()

	return ch
}

// publish fans the current snapshot out to all course watchers.
func (s *courseProgressStore) publish(ctx context.Context) {
	snapshot, err := s.List(ctx)
	if err != nil {
		return
	}

	s.store.subMu.Lock()
	defer s.store.subMu.Unlock()
	for _, ch := range s.store.courseSubs {
		sendLatest(ch, snapshot)
	}
}

// ==================== File Progress Store ====================

// fileProgressStore implements driven.FileProgressStore.
type fileProgressStore struct {
	store *Store
}

var _ driven.FileProgressStore = (*fileProgressStore)(nil)

// Upsert stores or updates a file progress record and publishes the new
// snapshot to watchers.
func (s *fileProgressStore) Upsert(ctx context.Context, progress domain.FileSyncProgress) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO file_progress (file_id, course_id, file_name, total_bytes, percent, state)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			course_id = excluded.course_id,
			file_name = excluded.file_name,
			total_bytes = excluded.total_bytes,
			percent = excluded.percent,
			state = excluded.state
	`, progress.FileID, progress.CourseID, progress.FileName,
		progress.TotalBytes, progress.Percent, string(progress.State))
	if err != nil {
		return fmt.Errorf("saving file progress: %w", err)
	}

	s.publish(ctx)
	return nil
}

// Find returns the file's progress record, or domain.ErrNotFound.
func (s *fileProgressStore) Find(ctx context.Context, fileID int64) (*domain.FileSyncProgress, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT file_id, course_id, file_name, total_bytes, percent, state
		FROM file_progress WHERE file_id = ?
	`, fileID)

	var progress domain.FileSyncProgress
	var state string
	if err := row.Scan(&progress.FileID, &progress.CourseID, &progress.FileName,
		&progress.TotalBytes, &progress.Percent, &state); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning file progress: %w", err)
	}
	progress.State = domain.ProgressState(state)

	return &progress, nil
}

// List returns all file progress records ordered by file ID.
func (s *fileProgressStore) List(ctx context.Context) ([]domain.FileSyncProgress, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT file_id, course_id, file_name, total_bytes, percent, state
		FROM file_progress ORDER BY file_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying file progress: %w", err)
	}
	defer rows.Close()

	var records []domain.FileSyncProgress //nolint:prealloc // size unknown from query
	for rows.Next() {
		var progress domain.FileSyncProgress
		var state string
		if err := rows.Scan(&progress.FileID, &progress.CourseID, &progress.FileName,
			&progress.TotalBytes, &progress.Percent, &state); err != nil {
			return nil, fmt.Errorf("scanning file progress: %w", err)
		}
		progress.State = domain.ProgressState(state)
		records = append(records, progress)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating file progress: %w", err)
	}

	return records, nil
}

// DeleteNotIn prunes rows for a course that are outside the current file
// selection and publishes the new snapshot.
func (s *fileProgressStore) DeleteNotIn(ctx context.Context, courseID int64, keepIDs []int64) error {
	if len(keepIDs) == 0 {
		if _, err := s.store.db.ExecContext(ctx,
			"DELETE FROM file_progress WHERE course_id = ?", courseID); err != nil {
			return fmt.Errorf("pruning file progress: %w", err)
		}
	} else {
		marks, args := int64Placeholders(keepIDs)
		if _, err := s.store.db.ExecContext(ctx, fmt.Sprintf(
			"DELETE FROM file_progress WHERE course_id = ? AND file_id NOT IN (%s)", marks),
			append([]any{courseID}, args...)...); err != nil {
			return fmt.Errorf("pruning file progress: %w", err)
		}
	}

	s.publish(ctx)
	return nil
}

// Watch subscribes to snapshots until ctx is done.
func (s *fileProgressStore) Watch(ctx context.Context) <-chan []domain.FileSyncProgress {
	ch := make(chan []domain.FileSyncProgress, 1)

	s.store.subMu.Lock()
	id := s.store.nextSub
	s.store.nextSub++
	s.store.fileSubs[id] = ch
	s.store.subMu.Unlock()

	// Seed the new subscriber with the current snapshot, if any
	if snapshot, err := s.List(ctx); err == nil && len(snapshot) > 0 {
		ch <- snapshot
	}

	go func() {
		<-ctx.Done()
		s.store.subMu.Lock()
		delete(s.store.fileSubs, id)
		s.store.subMu.Unlock()
	}()

	return ch
}

// publish fans the current snapshot out to all file watchers.
func (s *fileProgressStore) publish(ctx context.Context) {
	snapshot, err := s.List(ctx)
	if err != nil {
		return
	}

	s.store.subMu.Lock()
	defer s.store.subMu.Unlock()
	for _, ch := range s.store.fileSubs {
		sendLatest(ch, snapshot)
	}
}

// sendLatest delivers a snapshot on a buffered channel, replacing a pending
// undelivered one rather than blocking.
func sendLatest[T any](ch chan []T, snapshot []T) {
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
