package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
	"github.com/classtow/classtow-cli/internal/core/ports/driving"
	"github.com/classtow/classtow-cli/internal/logger"
)

// Ensure ExternalVideoSync implements the interface.
var _ driving.VideoSyncer = (*ExternalVideoSync)(nil)

// ExternalVideoSync mirrors the externally hosted video library into a
// per-launch-ID folder layout. All operations degrade to a no-op when no
// host session can be established: video sync is never fatal to a run.
type ExternalVideoSync struct {
	host     driven.VideoHost
	progress driven.FileProgressStore

	videosDir string

	mu    sync.Mutex
	token string
}

// NewExternalVideoSync creates a new video syncer rooted at videosDir.
func NewExternalVideoSync(host driven.VideoHost, progress driven.FileProgressStore, videosDir string) *ExternalVideoSync {
	return &ExternalVideoSync{
		host:      host,
		progress:  progress,
		videosDir: videosDir,
	}
}

// FetchMetadata enumerates video metadata across the given courses,
// deduplicated by media ID. A failed session handshake skips video sync
// entirely and returns (nil, nil).
func (s *ExternalVideoSync) FetchMetadata(ctx context.Context, courseIDs []int64) ([]domain.VideoMetadata, error) {
	token, err := s.session(ctx)
	if err != nil {
		logger.Warn("Video host session unavailable, skipping video sync: %v", err)
		return nil, nil
	}

	// Per-course listings run concurrently; a failing course is skipped,
	// the rest still contribute.
	var mu sync.Mutex
	listings := make(map[string]*domain.VideoMetadata)
	var order []string

	var wg sync.WaitGroup
	for _, courseID := range courseIDs {
		wg.Add(1)
		go func(courseID int64) {
			defer wg.Done()
			videos, err := s.host.ListVideos(ctx, token, courseID)
			if err != nil {
				logger.Warn("Video listing for course %d failed: %v", courseID, err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, v := range videos {
				existing, ok := listings[v.MediaID]
				if !ok {
					meta := domain.VideoMetadata{
						MediaID:   v.MediaID,
						LaunchID:  v.LaunchID,
						Title:     v.Title,
						URL:       v.URL,
						MimeType:  v.MimeType,
						Size:      v.Size,
						CourseIDs: []int64{courseID},
					}
					listings[v.MediaID] = &meta
					order = append(order, v.MediaID)
					continue
				}
				existing.CourseIDs = append(existing.CourseIDs, courseID)
			}
		}(courseID)
	}
	wg.Wait()

	out := make([]domain.VideoMetadata, 0, len(order))
	for _, id := range order {
		out = append(out, *listings[id])
	}
	return out, nil
}

// SyncVideos downloads the videos whose media IDs are referenced from
// course content, and reconciles the on-disk folder layout: unreferenced
// launch folders are removed, complete downloads are skipped.
func (s *ExternalVideoSync) SyncVideos(ctx context.Context, videos []domain.VideoMetadata, mediaIDs []string) error {
	referenced := make(map[string]bool, len(mediaIDs))
	for _, id := range mediaIDs {
		referenced[id] = true
	}

	var targets []domain.VideoMetadata
	keepDirs := make(map[string]bool)
	for _, v := range videos {
		if !referenced[v.MediaID] {
			continue
		}
		targets = append(targets, v)
		keepDirs[v.LaunchID] = true
	}

	if err := s.reconcileFolders(keepDirs); err != nil {
		return fmt.Errorf("reconcile video folders: %w", err)
	}
	if len(targets) == 0 {
		return nil
	}

	token, err := s.session(ctx)
	if err != nil {
		logger.Warn("Video host session unavailable, skipping video downloads: %v", err)
		return nil
	}

	var mu sync.Mutex
	var failed []error

	for start := 0; start < len(targets); start += downloadBatchSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrSyncStopped, err)
		}

		end := start + downloadBatchSize
		if end > len(targets) {
			end = len(targets)
		}

		var wg sync.WaitGroup
		for _, video := range targets[start:end] {
			wg.Add(1)
			go func(video domain.VideoMetadata) {
				defer wg.Done()
				if err := s.downloadOne(ctx, token, video); err != nil {
					mu.Lock()
					failed = append(failed, fmt.Errorf("video %s: %w", video.MediaID, err))
					mu.Unlock()
				}
			}(video)
		}
		wg.Wait()
	}

	if len(failed) > 0 {
		return errors.Join(failed...)
	}
	return nil
}

// session returns a cached host session token, performing the handshake on
// first use.
func (s *ExternalVideoSync) session(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}
	_, token, err := s.host.StartSession(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	return token, nil
}

// reconcileFolders removes launch folders no longer referenced by any
// synced course content.
func (s *ExternalVideoSync) reconcileFolders(keep map[string]bool) error {
	entries, err := os.ReadDir(s.videosDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() || keep[entry.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.videosDir, entry.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
		logger.Debug("Removed unreferenced video folder %s", entry.Name())
	}
	return nil
}

func (s *ExternalVideoSync) downloadOne(ctx context.Context, token string, video domain.VideoMetadata) error {
	dir := filepath.Join(s.videosDir, video.LaunchID)
	dest := filepath.Join(dir, videoFileName(video))

	courseID := int64(0)
	if len(video.CourseIDs) > 0 {
		courseID = video.CourseIDs[0]
	}
	syntheticID := ExternalFileID("media:" + video.MediaID)

	if info, err := os.Stat(dest); err == nil && (video.Size == 0 || info.Size() == video.Size) {
		s.upsertProgress(ctx, syntheticID, courseID, video, 100, domain.ProgressCompleted)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	s.upsertProgress(ctx, syntheticID, courseID, video, 0, domain.ProgressInProgress)

	target := dest
	replace := false
	if _, err := os.Stat(dest); err == nil {
		target = dest + ".tmp"
		replace = true
	}

	err := s.host.Download(ctx, token, video.URL, target, func(written, total int64) {
		if total <= 0 {
			total = video.Size
		}
		s.upsertProgress(ctx, syntheticID, courseID, video, percentOf(written, total), domain.ProgressInProgress)
	})
	if err != nil {
		if rmErr := os.Remove(target); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn("Failed to remove partial video %s: %v", target, rmErr)
		}
		s.upsertProgress(ctx, syntheticID, courseID, video, 0, domain.ProgressError)
		return fmt.Errorf("download: %w", err)
	}

	if replace {
		if err := os.Rename(target, dest); err != nil {
			s.upsertProgress(ctx, syntheticID, courseID, video, 0, domain.ProgressError)
			return fmt.Errorf("replace existing video: %w", err)
		}
	}

	s.upsertProgress(ctx, syntheticID, courseID, video, 100, domain.ProgressCompleted)
	logger.Debug("Downloaded video %s to %s", video.MediaID, dest)
	return nil
}

func (s *ExternalVideoSync) upsertProgress(ctx context.Context, fileID, courseID int64, video domain.VideoMetadata, percent int, state domain.ProgressState) {
	p := domain.FileSyncProgress{
		FileID:     fileID,
		CourseID:   courseID,
		FileName:   video.Title,
		TotalBytes: video.Size,
		Percent:    percent,
		State:      state,
	}
	if err := s.progress.Upsert(ctx, p); err != nil {
		logger.Warn("Failed to record video progress for %s: %v", video.MediaID, err)
	}
}

func videoFileName(video domain.VideoMetadata) string {
	name := video.Title
	if name == "" {
		name = video.MediaID
	}
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' {
			return '_'
		}
		return r
	}, name)
	if ext := extensionForMime(video.MimeType); ext != "" && !strings.HasSuffix(name, ext) {
		name += ext
	}
	return name
}

func extensionForMime(mime string) string {
	switch {
	case strings.Contains(mime, "mp4"):
		return ".mp4"
	case strings.Contains(mime, "webm"):
		return ".webm"
	case strings.Contains(mime, "ogg"):
		return ".ogv"
	default:
		return ""
	}
}
