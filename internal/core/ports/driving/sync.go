package driving

import (
	"context"

	"github.com/classtow/classtow-cli/internal/core/domain"
)

// SyncOrchestrator drives a multi-course, multi-category sync run to a
// terminal per-course state. Courses sync concurrently and independently;
// no failure in one course affects a sibling.
type SyncOrchestrator interface {
	SyncCourses(ctx context.Context, courseIDs []int64, videos []domain.VideoMetadata) error

	// MediaIDsToSync returns the external media identifiers discovered
	// while rewriting HTML bodies during the last run.
	MediaIDsToSync() []string
}

// FileSyncEngine downloads a course's selected files with bounded
// concurrency and accurate per-file progress.
type FileSyncEngine interface {
	SyncFiles(ctx context.Context, selection domain.CourseSyncSelection) error

	// SyncAdditionalFiles downloads files discovered only by scanning
	// rewritten HTML bodies: internal file IDs plus external URLs.
	SyncAdditionalFiles(ctx context.Context, selection domain.CourseSyncSelection, fileIDs []int64, externalURLs []string) error
}

// VideoSyncer mirrors the externally-hosted video library.
type VideoSyncer interface {
	// FetchMetadata enumerates course-scoped video metadata, deduplicated
	// by media ID. A failed session handshake yields (nil, nil): video
	// sync is skipped, never fatal.
	FetchMetadata(ctx context.Context, courseIDs []int64) ([]domain.VideoMetadata, error)

	// SyncVideos downloads the videos whose media IDs are referenced.
	SyncVideos(ctx context.Context, videos []domain.VideoMetadata, mediaIDs []string) error
}

// SyncRunner composes one full sync run: video metadata, course content,
// then the video download pass.
type SyncRunner interface {
	RunSync(ctx context.Context, courseIDs []int64) error
}
