package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
	"github.com/classtow/classtow-cli/internal/core/ports/driving"
	"github.com/classtow/classtow-cli/internal/logger"
)

// Ensure FileSyncEngine implements the interface.
var _ driving.FileSyncEngine = (*FileSyncEngine)(nil)

// downloadBatchSize bounds concurrent transfers. Batches run sequentially;
// items within a batch run concurrently.
const downloadBatchSize = 6

// FileSyncEngine downloads a course's selected files into the local file
// cache, keeping LocalFileRecords and per-file progress in step with the
// bytes on disk.
type FileSyncEngine struct {
	api        driven.ContentAPI
	tree       driven.FileTreeStore
	localFiles driven.LocalFileStore
	progress   driven.FileProgressStore
	downloader driven.FileDownloader

	downloadDir string
}

// NewFileSyncEngine creates a new file sync engine rooted at downloadDir.
func NewFileSyncEngine(
	api driven.ContentAPI,
	tree driven.FileTreeStore,
	localFiles driven.LocalFileStore,
	progress driven.FileProgressStore,
	downloader driven.FileDownloader,
	downloadDir string,
) *FileSyncEngine {
	return &FileSyncEngine{
		api:         api,
		tree:        tree,
		localFiles:  localFiles,
		progress:    progress,
		downloader:  downloader,
		downloadDir: downloadDir,
	}
}

// SyncFiles reconciles the course's local file cache with its selection.
func (e *FileSyncEngine) SyncFiles(ctx context.Context, selection domain.CourseSyncSelection) error {
	courseID := selection.CourseID

	// 1. Resolve the target file set from the tree snapshot
	var targets []domain.FileFolder
	var err error
	if selection.FullFileSync {
		targets, err = e.tree.ListFiles(ctx, courseID)
	} else {
		targets, err = e.tree.FindByIDs(ctx, courseID, selection.FileIDs)
	}
	if err != nil {
		return fmt.Errorf("resolve file selection: %w", err)
	}

	keepIDs := make([]int64, 0, len(targets))
	for _, f := range targets {
		keepIDs = append(keepIDs, f.ID)
	}

	// 2. Cleanup before any download: deselected and remotely-removed
	// files lose their bytes, records and progress rows
	if err := e.cleanup(ctx, courseID, keepIDs); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	// 3. Download in bounded batches
	return e.downloadBatches(ctx, courseID, targets)
}

// SyncAdditionalFiles downloads files discovered only by scanning rewritten
// HTML bodies: internal file IDs outside the selection, plus externally
// hosted embedded resources.
func (e *FileSyncEngine) SyncAdditionalFiles(ctx context.Context, selection domain.CourseSyncSelection, fileIDs []int64, externalURLs []string) error {
	courseID := selection.CourseID

	// 1. Resolve metadata for the referenced internal files. The tree
	// snapshot covers most; the rest are fetched individually.
	known, err := e.tree.FindByIDs(ctx, courseID, fileIDs)
	if err != nil {
		return fmt.Errorf("resolve additional files: %w", err)
	}
	inTree := make(map[int64]bool, len(known))
	for _, f := range known {
		inTree[f.ID] = true
	}
	targets := known
	for _, id := range fileIDs {
		if inTree[id] {
			continue
		}
		file, err := e.api.GetCourseFile(ctx, courseID, id)
		if err != nil {
			logger.Warn("Additional file %d in course %d unavailable: %v", id, courseID, err)
			continue
		}
		targets = append(targets, *file)
	}

	// 2. Internal additional files follow the normal download path
	if err := e.downloadBatches(ctx, courseID, targets); err != nil {
		return err
	}

	// 3. External resources are mirrored without LocalFileRecords
	return e.downloadExternal(ctx, courseID, externalURLs)
}

// cleanup removes bytes, records and progress rows that fall outside the
// current selection, and clears the external mirror directory.
func (e *FileSyncEngine) cleanup(ctx context.Context, courseID int64, keepIDs []int64) error {
	removed, err := e.localFiles.FindRemoved(ctx, courseID, keepIDs)
	if err != nil {
		return fmt.Errorf("find removed files: %w", err)
	}
	for _, rec := range removed {
		if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", rec.Path, err)
		}
		if err := e.localFiles.Delete(ctx, courseID, rec.FileID); err != nil {
			return fmt.Errorf("delete file record %d: %w", rec.FileID, err)
		}
		logger.Debug("Removed stale local file %d (%s)", rec.FileID, rec.Path)
	}

	if err := os.RemoveAll(e.externalDir(courseID)); err != nil {
		return fmt.Errorf("clear external dir: %w", err)
	}

	if err := e.progress.DeleteNotIn(ctx, courseID, keepIDs); err != nil {
		return fmt.Errorf("prune file progress: %w", err)
	}
	return nil
}

// downloadBatches runs the bounded-concurrency download loop. Per-file
// failures are collected, never aborting siblings; only cancellation stops
// the loop early.
func (e *FileSyncEngine) downloadBatches(ctx context.Context, courseID int64, files []domain.FileFolder) error {
	var mu sync.Mutex
	var failed []error

	for start := 0; start < len(files); start += downloadBatchSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrSyncStopped, err)
		}

		end := start + downloadBatchSize
		if end > len(files) {
			end = len(files)
		}

		var wg sync.WaitGroup
		for _, file := range files[start:end] {
			wg.Add(1)
			go func(file domain.FileFolder) {
				defer wg.Done()
				if err := e.downloadOne(ctx, courseID, file); err != nil {
					mu.Lock()
					failed = append(failed, fmt.Errorf("file %d (%s): %w", file.ID, file.DisplayName, err))
					mu.Unlock()
				}
			}(file)
		}
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSyncStopped, err)
	}
	if len(failed) > 0 {
		return errors.Join(failed...)
	}
	return nil
}

// downloadOne transfers a single file, tracking byte progress. Completion
// is an atomic rename when replacing an existing copy; failure deletes the
// partial output and leaves no record.
func (e *FileSyncEngine) downloadOne(ctx context.Context, courseID int64, file domain.FileFolder) error {
	dest := filepath.Join(e.courseDir(courseID), fmt.Sprintf("%d_%s", file.ID, file.DisplayName))

	if e.alreadyLocal(ctx, courseID, file, dest) {
		e.upsertProgress(ctx, file.ID, courseID, file.DisplayName, file.Size, 100, domain.ProgressCompleted)
		return nil
	}

	e.upsertProgress(ctx, file.ID, courseID, file.DisplayName, file.Size, 0, domain.ProgressInProgress)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		e.upsertProgress(ctx, file.ID, courseID, file.DisplayName, file.Size, 0, domain.ProgressError)
		return fmt.Errorf("create dir: %w", err)
	}

	if err := e.transfer(ctx, file.URL, dest, func(written, total int64) {
		if total <= 0 {
			total = file.Size
		}
		e.upsertProgress(ctx, file.ID, courseID, file.DisplayName, total, percentOf(written, total), domain.ProgressInProgress)
	}); err != nil {
		e.upsertProgress(ctx, file.ID, courseID, file.DisplayName, file.Size, 0, domain.ProgressError)
		return err
	}

	record := domain.LocalFileRecord{
		FileID:       file.ID,
		CourseID:     courseID,
		Path:         dest,
		DownloadedAt: time.Now(),
	}
	if err := e.localFiles.Upsert(ctx, record); err != nil {
		e.upsertProgress(ctx, file.ID, courseID, file.DisplayName, file.Size, 0, domain.ProgressError)
		return fmt.Errorf("save file record: %w", err)
	}

	e.upsertProgress(ctx, file.ID, courseID, file.DisplayName, file.Size, 100, domain.ProgressCompleted)
	logger.Debug("Downloaded file %d to %s", file.ID, dest)
	return nil
}

// downloadExternal mirrors externally hosted resources into the course's
// external directory under synthetic negative IDs.
func (e *FileSyncEngine) downloadExternal(ctx context.Context, courseID int64, urls []string) error {
	if len(urls) == 0 {
		return nil
	}

	dir := e.externalDir(courseID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create external dir: %w", err)
	}

	var mu sync.Mutex
	var failed []error

	for start := 0; start < len(urls); start += downloadBatchSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrSyncStopped, err)
		}

		end := start + downloadBatchSize
		if end > len(urls) {
			end = len(urls)
		}

		var wg sync.WaitGroup
		for _, rawURL := range urls[start:end] {
			wg.Add(1)
			go func(rawURL string) {
				defer wg.Done()
				if err := e.downloadOneExternal(ctx, courseID, dir, rawURL); err != nil {
					mu.Lock()
					failed = append(failed, fmt.Errorf("external %s: %w", rawURL, err))
					mu.Unlock()
				}
			}(rawURL)
		}
		wg.Wait()
	}

	if len(failed) > 0 {
		return errors.Join(failed...)
	}
	return nil
}

func (e *FileSyncEngine) downloadOneExternal(ctx context.Context, courseID int64, dir, rawURL string) error {
	syntheticID := ExternalFileID(rawURL)
	name := externalFileName(rawURL)
	dest := filepath.Join(dir, name)

	e.upsertProgress(ctx, syntheticID, courseID, name, 0, 0, domain.ProgressInProgress)

	if err := e.transfer(ctx, rawURL, dest, func(written, total int64) {
		e.upsertProgress(ctx, syntheticID, courseID, name, total, percentOf(written, total), domain.ProgressInProgress)
	}); err != nil {
		e.upsertProgress(ctx, syntheticID, courseID, name, 0, 0, domain.ProgressError)
		return err
	}

	e.upsertProgress(ctx, syntheticID, courseID, name, 0, 100, domain.ProgressCompleted)
	return nil
}

// transfer streams url into dest. When dest already exists the bytes go to
// a temp file first and replace the old copy in one rename, so a reader
// never sees a half-written file. Any failure removes the partial output.
func (e *FileSyncEngine) transfer(ctx context.Context, url, dest string, progress driven.ProgressFunc) error {
	target := dest
	replace := false
	if _, err := os.Stat(dest); err == nil {
		target = dest + ".tmp"
		replace = true
	}

	if err := e.downloader.Download(ctx, url, target, progress); err != nil {
		if rmErr := os.Remove(target); rmErr != nil && !os.IsNotExist(rmErr) {
			logger.Warn("Failed to remove partial download %s: %v", target, rmErr)
		}
		return fmt.Errorf("download: %w", err)
	}

	if replace {
		if err := os.Rename(target, dest); err != nil {
			if rmErr := os.Remove(target); rmErr != nil && !os.IsNotExist(rmErr) {
				logger.Warn("Failed to remove temp file %s: %v", target, rmErr)
			}
			return fmt.Errorf("replace existing file: %w", err)
		}
	}
	return nil
}

// alreadyLocal reports whether the file's bytes are present from an earlier
// run and still match the remote size.
func (e *FileSyncEngine) alreadyLocal(ctx context.Context, courseID int64, file domain.FileFolder, dest string) bool {
	rec, err := e.localFiles.Find(ctx, courseID, file.ID)
	if err != nil || rec.Path != dest {
		return false
	}
	info, err := os.Stat(rec.Path)
	if err != nil {
		return false
	}
	return file.Size == 0 || info.Size() == file.Size
}

func (e *FileSyncEngine) upsertProgress(ctx context.Context, fileID, courseID int64, name string, total int64, percent int, state domain.ProgressState) {
	p := domain.FileSyncProgress{
		FileID:     fileID,
		CourseID:   courseID,
		FileName:   name,
		TotalBytes: total,
		Percent:    percent,
		State:      state,
	}
	if err := e.progress.Upsert(ctx, p); err != nil {
		logger.Warn("Failed to record file progress for %d: %v", fileID, err)
	}
}

func (e *FileSyncEngine) courseDir(courseID int64) string {
	return filepath.Join(e.downloadDir, strconv.FormatInt(courseID, 10))
}

func (e *FileSyncEngine) externalDir(courseID int64) string {
	return filepath.Join(e.downloadDir, fmt.Sprintf("external_%d", courseID))
}

// ExternalFileID derives the stable synthetic negative ID used to track an
// externally hosted resource in progress rows.
func ExternalFileID(url string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(url))
	id := int64(h.Sum64() & (1<<62 - 1))
	return -id
}

func externalFileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return fmt.Sprintf("resource_%d", -ExternalFileID(rawURL))
	}
	return path.Base(u.Path)
}

func percentOf(written, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(written * 100 / total)
	if p > 100 {
		p = 100
	}
	return p
}
