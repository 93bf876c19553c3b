package driven

import (
	"context"

	"github.com/classtow/classtow-cli/internal/core/domain"
)

// SelectionStore persists per-course sync selections. The sync engine only
// reads selections; they are written by user settings commands.
type SelectionStore interface {
	Save(ctx context.Context, selection domain.CourseSyncSelection) error

	// Find returns the selection for a course, or domain.ErrNotFound.
	Find(ctx context.Context, courseID int64) (*domain.CourseSyncSelection, error)

	List(ctx context.Context) ([]domain.CourseSyncSelection, error)

	Delete(ctx context.Context, courseID int64) error
}

// SettingsStore persists the process-wide sync settings singleton.
// Get lazily creates defaults on first read.
type SettingsStore interface {
	Get(ctx context.Context) (domain.SyncSettings, error)
	Save(ctx context.Context, settings domain.SyncSettings) error
}

// SchedulerStore persists background work definitions.
type SchedulerStore interface {
	SaveWork(ctx context.Context, work *domain.ScheduledWork) error

	// GetWork returns the work with the given ID, or nil if absent.
	GetWork(ctx context.Context, id string) (*domain.ScheduledWork, error)

	ListWork(ctx context.Context) ([]domain.ScheduledWork, error)

	DeleteWork(ctx context.Context, id string) error
}
