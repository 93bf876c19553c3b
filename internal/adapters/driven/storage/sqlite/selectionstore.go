package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

// ==================== Selection Store ====================

// selectionStore implements driven.SelectionStore.
type selectionStore struct {
	store *Store
}

var _ driven.SelectionStore = (*selectionStore)(nil)

// Save stores or updates a course sync selection.
func (s *selectionStore) Save(ctx context.Context, selection domain.CourseSyncSelection) error {
	tabsJSON, err := json.Marshal(selection.Tabs)
	if err != nil {
		return fmt.Errorf("marshalling tabs: %w", err)
	}
	fileIDsJSON, err := json.Marshal(selection.FileIDs)
	if err != nil {
		return fmt.Errorf("marshalling file ids: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO selections (course_id, course_name, tabs, full_file_sync, file_ids, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(course_id) DO UPDATE SET
			course_name = excluded.course_name,
			tabs = excluded.tabs,
			full_file_sync = excluded.full_file_sync,
			file_ids = excluded.file_ids,
			updated_at = excluded.updated_at
	`, selection.CourseID, selection.CourseName, string(tabsJSON),
		boolToInt(selection.FullFileSync), string(fileIDsJSON),
		formatNullableTime(selection.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving selection: %w", err)
	}
	return nil
}

// Find returns the selection for a course, or domain.ErrNotFound.
func (s *selectionStore) Find(ctx context.Context, courseID int64) (*domain.CourseSyncSelection, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT course_id, course_name, tabs, full_file_sync, file_ids, updated_at
		FROM selections WHERE course_id = ?
	`, courseID)

	return scanSelection(row)
}

// List returns all course sync selections.
func (s *selectionStore) List(ctx context.Context) ([]domain.CourseSyncSelection, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT course_id, course_name, tabs, full_file_sync, file_ids, updated_at
		FROM selections ORDER BY course_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying selections: %w", err)
	}
	defer rows.Close()

	var selections []domain.CourseSyncSelection //nolint:prealloc // size unknown from query
	for rows.Next() {
		var selection domain.CourseSyncSelection
		var tabsJSON, fileIDsJSON string
		var fullFileSync int
		var updatedAt sql.NullString
		if err := rows.Scan(&selection.CourseID, &selection.CourseName, &tabsJSON,
			&fullFileSync, &fileIDsJSON, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning selection: %w", err)
		}
		if err := json.Unmarshal([]byte(tabsJSON), &selection.Tabs); err != nil {
			return nil, fmt.Errorf("unmarshalling tabs: %w", err)
		}
		if err := json.Unmarshal([]byte(fileIDsJSON), &selection.FileIDs); err != nil {
			return nil, fmt.Errorf("unmarshalling file ids: %w", err)
		}
		selection.FullFileSync = fullFileSync == 1
		selection.UpdatedAt = parseNullableTime(updatedAt)
		selections = append(selections, selection)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating selections: %w", err)
	}

	return selections, nil
}

// Delete removes a course's selection.
func (s *selectionStore) Delete(ctx context.Context, courseID int64) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM selections WHERE course_id = ?", courseID)
	if err != nil {
		return fmt.Errorf("deleting selection: %w", err)
	}
	return nil
}

// scanSelection scans a single selection row.
func scanSelection(row *sql.Row) (*domain.CourseSyncSelection, error) {
	var selection domain.CourseSyncSelection
	var tabsJSON, fileIDsJSON string
	var fullFileSync int
	var updatedAt sql.NullString

	if err := row.Scan(&selection.CourseID, &selection.CourseName, &tabsJSON,
		&fullFileSync, &fileIDsJSON, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning selection: %w", err)
	}

	if err := json.Unmarshal([]byte(tabsJSON), &selection.Tabs); err != nil {
		return nil, fmt.Errorf("unmarshalling tabs: %w", err)
	}
	if err := json.Unmarshal([]byte(fileIDsJSON), &selection.FileIDs); err != nil {
		return nil, fmt.Errorf("unmarshalling file ids: %w", err)
	}
	selection.FullFileSync = fullFileSync == 1
	selection.UpdatedAt = parseNullableTime(updatedAt)

	return &selection, nil
}

// ==================== Settings Store ====================

// settingsStore implements driven.SettingsStore.
type settingsStore struct {
	store *Store
}

var _ driven.SettingsStore = (*settingsStore)(nil)

// Get returns the settings singleton, lazily creating defaults on first read.
func (s *settingsStore) Get(ctx context.Context) (domain.SyncSettings, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT auto_sync, frequency, wifi_only FROM sync_settings WHERE id = 1
	`)

	var settings domain.SyncSettings
	var autoSync, wifiOnly int
	var frequency string
	if err := row.Scan(&autoSync, &frequency, &wifiOnly); err != nil {
		if err == sql.ErrNoRows {
			defaults := domain.DefaultSyncSettings()
			if saveErr := s.Save(ctx, defaults); saveErr != nil {
				return domain.SyncSettings{}, saveErr
			}
			return defaults, nil
		}
		return domain.SyncSettings{}, fmt.Errorf("scanning settings: %w", err)
	}

	settings.AutoSync = autoSync == 1
	settings.Frequency = domain.SyncFrequency(frequency)
	settings.WifiOnly = wifiOnly == 1

	return settings, nil
}

// Save stores the settings singleton.
func (s *settingsStore) Save(ctx context.Context, settings domain.SyncSettings) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_settings (id, auto_sync, frequency, wifi_only)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			auto_sync = excluded.auto_sync,
			frequency = excluded.frequency,
			wifi_only = excluded.wifi_only
	`, boolToInt(settings.AutoSync), string(settings.Frequency), boolToInt(settings.WifiOnly))
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
