package driven

import "context"

// ProgressFunc receives byte progress during a transfer. total is -1 when
// the remote does not declare a length.
type ProgressFunc func(written, total int64)

// FileDownloader streams a remote file to a local path, reporting byte
// progress. The destination is written as-is; atomic temp-and-rename
// handling is the caller's responsibility.
type FileDownloader interface {
	Download(ctx context.Context, url, dest string, progress ProgressFunc) error
}

// VideoHost is the third-party host of course videos.
type VideoHost interface {
	// StartSession performs the headless launch handshake, polling session
	// storage until both user and token are populated. Returns
	// domain.ErrNoSession if the timeout elapses first.
	StartSession(ctx context.Context) (userID, token string, err error)

	// ListVideos enumerates video metadata scoped to one course.
	ListVideos(ctx context.Context, token string, courseID int64) ([]VideoListing, error)

	// Download streams one video into dest using the session token.
	Download(ctx context.Context, token, url, dest string, progress ProgressFunc) error
}

// VideoListing is the host's wire-level view of one video; the service
// layer folds listings from all courses into domain.VideoMetadata.
type VideoListing struct {
	MediaID  string
	LaunchID string
	Title    string
	URL      string
	MimeType string
	Size     int64
}

// DeviceMonitor reports the device constraints the scheduler consults
// before starting a due run.
type DeviceMonitor interface {
	NetworkConnected() bool
	NetworkUnmetered() bool
	BatteryLow() bool
}
