package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

// schedulerStore implements driven.SchedulerStore.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// SaveWork stores or updates a work definition.
func (s *schedulerStore) SaveWork(ctx context.Context, work *domain.ScheduledWork) error {
	if work == nil {
		return domain.ErrInvalidInput
	}

	courseIDsJSON, err := json.Marshal(work.CourseIDs)
	if err != nil {
		return fmt.Errorf("marshalling course ids: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_work
			(id, kind, course_ids, interval_seconds, wifi_only, next_run, last_run, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			course_ids = excluded.course_ids,
			interval_seconds = excluded.interval_seconds,
			wifi_only = excluded.wifi_only,
			next_run = excluded.next_run,
			last_run = excluded.last_run,
			last_error = excluded.last_error
	`, work.ID, string(work.Kind), string(courseIDsJSON), int64(work.Interval.Seconds()),
		boolToInt(work.WifiOnly), formatNullableTime(work.NextRun),
		formatNullableTime(work.LastRun), nullString(work.LastError))
	if err != nil {
		return fmt.Errorf("saving scheduled work: %w", err)
	}
	return nil
}

// GetWork retrieves a work definition by ID.
// Returns nil and no error if the work does not exist.
func (s *schedulerStore) GetWork(ctx context.Context, id string) (*domain.ScheduledWork, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, kind, course_ids, interval_seconds, wifi_only, next_run, last_run, last_error
		FROM scheduled_work WHERE id = ?
	`, id)

	work, err := scanScheduledWork(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil // Per interface: return nil and no error if not found
	}
	if err != nil {
		return nil, err
	}
	return work, nil
}

// ListWork returns all work definitions.
func (s *schedulerStore) ListWork(ctx context.Context) ([]domain.ScheduledWork, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, kind, course_ids, interval_seconds, wifi_only, next_run, last_run, last_error
		FROM scheduled_work
	`)
	if err != nil {
		return nil, fmt.Errorf("querying scheduled work: %w", err)
	}
	defer rows.Close()

	var work []domain.ScheduledWork //nolint:prealloc // size unknown from query
	for rows.Next() {
		w, err := scanScheduledWork(rows.Scan)
		if err != nil {
			return nil, err
		}
		work = append(work, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scheduled work: %w", err)
	}

	return work, nil
}

// DeleteWork removes a work definition.
func (s *schedulerStore) DeleteWork(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM scheduled_work WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting scheduled work: %w", err)
	}
	return nil
}

// scanScheduledWork scans a work row through the given scan func, so both
// *sql.Row and *sql.Rows share one decode path.
func scanScheduledWork(scan func(dest ...any) error) (*domain.ScheduledWork, error) {
	var work domain.ScheduledWork
	var kind, courseIDsJSON string
	var intervalSeconds int64
	var wifiOnly int
	var nextRun, lastRun, lastError sql.NullString

	if err := scan(&work.ID, &kind, &courseIDsJSON, &intervalSeconds,
		&wifiOnly, &nextRun, &lastRun, &lastError); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning scheduled work: %w", err)
	}

	if err := json.Unmarshal([]byte(courseIDsJSON), &work.CourseIDs); err != nil {
		return nil, fmt.Errorf("unmarshalling course ids: %w", err)
	}

	work.Kind = domain.WorkKind(kind)
	work.Interval = time.Duration(intervalSeconds) * time.Second
	work.WifiOnly = wifiOnly == 1
	work.NextRun = parseNullableTime(nextRun)
	work.LastRun = parseNullableTime(lastRun)
	if lastError.Valid {
		work.LastError = lastError.String
	}

	return &work, nil
}
