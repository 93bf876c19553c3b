package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

// ==================== File Tree Store ====================

// fileTreeStore implements driven.FileTreeStore.
type fileTreeStore struct {
	store *Store
}

var _ driven.FileTreeStore = (*fileTreeStore)(nil)

// ReplaceAll swaps the course's tree snapshot in one transaction.
func (s *fileTreeStore) ReplaceAll(ctx context.Context, courseID int64, entries []domain.FileFolder) error {
	return s.store.replaceAll(ctx,
		"DELETE FROM file_tree WHERE course_id = ?", []any{courseID},
		func(tx *sql.Tx) error {
			for _, entry := range entries {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO file_tree
						(id, course_id, folder_id, display_name, url, size, content_type, is_folder)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				`, entry.ID, courseID, entry.FolderID, entry.DisplayName, entry.URL,
					entry.Size, entry.ContentType, boolToInt(entry.IsFolder)); err != nil {
					return fmt.Errorf("saving tree entry: %w", err)
				}
			}
			return nil
		})
}

// ListFiles returns all non-folder entries for a course.
func (s *fileTreeStore) ListFiles(ctx context.Context, courseID int64) ([]domain.FileFolder, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, course_id, folder_id, display_name, url, size, content_type, is_folder
		FROM file_tree WHERE course_id = ? AND is_folder = 0
		ORDER BY id
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("querying file tree: %w", err)
	}
	defer rows.Close()

	return scanFileFolders(rows)
}

// FindByIDs returns the entries with the given file IDs.
func (s *fileTreeStore) FindByIDs(ctx context.Context, courseID int64, fileIDs []int64) ([]domain.FileFolder, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}

	marks, args := int64Placeholders(fileIDs)
	rows, err := s.store.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, course_id, folder_id, display_name, url, size, content_type, is_folder
		FROM file_tree WHERE course_id = ? AND id IN (%s)
		ORDER BY id
	`, marks), append([]any{courseID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("querying file tree: %w", err)
	}
	defer rows.Close()

	return scanFileFolders(rows)
}

// scanFileFolders scans multiple tree entry rows.
func scanFileFolders(rows *sql.Rows) ([]domain.FileFolder, error) {
	var entries []domain.FileFolder //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry domain.FileFolder
		var isFolder int
		if err := rows.Scan(&entry.ID, &entry.CourseID, &entry.FolderID, &entry.DisplayName,
			&entry.URL, &entry.Size, &entry.ContentType, &isFolder); err != nil {
			return nil, fmt.Errorf("scanning tree entry: %w", err)
		}
		entry.IsFolder = isFolder == 1
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tree entries: %w", err)
	}

	return entries, nil
}

// ==================== Local File Store ====================

// localFileStore implements driven.LocalFileStore.
type localFileStore struct {
	store *Store
}

var _ driven.LocalFileStore = (*localFileStore)(nil)

// Upsert stores or updates a local file record.
func (s *localFileStore) Upsert(ctx context.Context, record domain.LocalFileRecord) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO local_files (file_id, course_id, path, downloaded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(course_id, file_id) DO UPDATE SET
			path = excluded.path,
			downloaded_at = excluded.downloaded_at
	`, record.FileID, record.CourseID, record.Path, formatNullableTime(record.DownloadedAt))
	if err != nil {
		return fmt.Errorf("saving local file record: %w", err)
	}
	return nil
}

// Find returns the record for a file, or domain.ErrNotFound.
func (s *localFileStore) Find(ctx context.Context, courseID, fileID int64) (*domain.LocalFileRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT file_id, course_id, path, downloaded_at
		FROM local_files WHERE course_id = ? AND file_id = ?
	`, courseID, fileID)

	var record domain.LocalFileRecord
	var downloadedAt sql.NullString
	if err := row.Scan(&record.FileID, &record.CourseID, &record.Path, &downloadedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning local file record: %w", err)
	}
	record.DownloadedAt = parseNullableTime(downloadedAt)

	return &record, nil
}

// ListByCourse returns all records for a course.
func (s *localFileStore) ListByCourse(ctx context.Context, courseID int64) ([]domain.LocalFileRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT file_id, course_id, path, downloaded_at
		FROM local_files WHERE course_id = ?
		ORDER BY file_id
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("querying local file records: %w", err)
	}
	defer rows.Close()

	return scanLocalFileRecords(rows)
}

// FindRemoved returns records whose file ID is not in keepIDs.
func (s *localFileStore) FindRemoved(ctx context.Context, courseID int64, keepIDs []int64) ([]domain.LocalFileRecord, error) {
	if len(keepIDs) == 0 {
		return s.ListByCourse(ctx, courseID)
	}

	marks, args := int64Placeholders(keepIDs)
	rows, err := s.store.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT file_id, course_id, path, downloaded_at
		FROM local_files WHERE course_id = ? AND file_id NOT IN (%s)
		ORDER BY file_id
	`, marks), append([]any{courseID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("querying removed file records: %w", err)
	}
	defer rows.Close()

	return scanLocalFileRecords(rows)
}

// Delete removes a local file record.
func (s *localFileStore) Delete(ctx context.Context, courseID, fileID int64) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM local_files WHERE course_id = ? AND file_id = ?", courseID, fileID)
	if err != nil {
		return fmt.Errorf("deleting local file record: %w", err)
	}
	return nil
}

// scanLocalFileRecords scans multiple local file record rows.
func scanLocalFileRecords(rows *sql.Rows) ([]domain.LocalFileRecord, error) {
	var records []domain.LocalFileRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var record domain.LocalFileRecord
		var downloadedAt sql.NullString
		if err := rows.Scan(&record.FileID, &record.CourseID, &record.Path, &downloadedAt); err != nil {
			return nil, fmt.Errorf("scanning local file record: %w", err)
		}
		record.DownloadedAt = parseNullableTime(downloadedAt)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating local file records: %w", err)
	}

	return records, nil
}
