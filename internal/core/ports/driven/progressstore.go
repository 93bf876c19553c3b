package driven

import (
	"context"

	"github.com/classtow/classtow-cli/internal/core/domain"
)

// Progress stores publish on write: Watch delivers the latest full snapshot
// to every subscriber after each mutation. Delivery is latest-wins; a slow
// subscriber skips intermediate snapshots, never blocks a writer. Progress
// rows are upserted outside of larger transactions by design: losing one
// percent update is tolerable, the next upsert supersedes it.

// CourseProgressStore persists per-course sync progress.
type CourseProgressStore interface {
	Upsert(ctx context.Context, progress domain.CourseSyncProgress) error

	// Find returns the course's progress record, or domain.ErrNotFound.
	Find(ctx context.Context, courseID int64) (*domain.CourseSyncProgress, error)

	List(ctx context.Context) ([]domain.CourseSyncProgress, error)

	// Watch subscribes to snapshots until ctx is done.
	Watch(ctx context.Context) <-chan []domain.CourseSyncProgress
}

// FileProgressStore persists per-file transfer progress.
type FileProgressStore interface {
	Upsert(ctx context.Context, progress domain.FileSyncProgress) error

	// Find returns the file's progress record, or domain.ErrNotFound.
	Find(ctx context.Context, fileID int64) (*domain.FileSyncProgress, error)

	List(ctx context.Context) ([]domain.FileSyncProgress, error)

	// DeleteNotIn prunes rows for a course that are outside the current
	// file selection. Called at the start of each run.
	DeleteNotIn(ctx context.Context, courseID int64, keepIDs []int64) error

	// Watch subscribes to snapshots until ctx is done.
	Watch(ctx context.Context) <-chan []domain.FileSyncProgress
}
