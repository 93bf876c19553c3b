package domain

import "time"

// FileFolder is remote file/folder tree metadata, snapshotted locally
// independent of actual byte download.
type FileFolder struct {
	ID          int64
	FolderID    int64
	CourseID    int64
	DisplayName string
	URL         string
	Size        int64
	ContentType string
	IsFolder    bool
}

// LocalFileRecord maps a remote file ID to its downloaded local copy.
// Externally-hosted resources use a synthetic negative key and are not
// recorded here. A record's path always refers to a file that exists on
// disk: completion is an atomic rename, failure deletes the partial file.
type LocalFileRecord struct {
	FileID       int64
	CourseID     int64
	Path         string
	DownloadedAt time.Time
}
