package driven

import (
	"context"

	"github.com/classtow/classtow-cli/internal/core/domain"
)

// FileTreeStore persists the snapshotted remote file/folder tree metadata,
// independent of whether bytes have been downloaded.
type FileTreeStore interface {
	// ReplaceAll swaps the course's tree snapshot in one transaction.
	ReplaceAll(ctx context.Context, courseID int64, entries []domain.FileFolder) error

	// ListFiles returns all non-folder entries for a course.
	ListFiles(ctx context.Context, courseID int64) ([]domain.FileFolder, error)

	// FindByIDs returns the entries with the given file IDs.
	FindByIDs(ctx context.Context, courseID int64, fileIDs []int64) ([]domain.FileFolder, error)
}

// LocalFileStore persists the mapping from remote file IDs to downloaded
// local copies. At most one record exists per (fileID, courseID).
type LocalFileStore interface {
	Upsert(ctx context.Context, record domain.LocalFileRecord) error

	// Find returns the record for a file, or domain.ErrNotFound.
	Find(ctx context.Context, courseID, fileID int64) (*domain.LocalFileRecord, error)

	// ListByCourse returns all records for a course.
	ListByCourse(ctx context.Context, courseID int64) ([]domain.LocalFileRecord, error)

	// FindRemoved returns records whose file ID is not in keepIDs.
	FindRemoved(ctx context.Context, courseID int64, keepIDs []int64) ([]domain.LocalFileRecord, error)

	Delete(ctx context.Context, courseID, fileID int64) error
}
