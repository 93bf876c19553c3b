package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtow/classtow-cli/internal/adapters/driven/storage/memory"
	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

// fileMockDownloader implements driven.FileDownloader against an in-memory
// URL-to-content map, tracking call concurrency.
type fileMockDownloader struct {
	mu            stdsync.Mutex
	content       map[string][]byte
	failURLs      map[string]bool
	calls         []string
	active        int
	maxActive     int
	perCallDelay  time.Duration
	partialOnFail []byte
}

func newFileMockDownloader() *fileMockDownloader {
	return &fileMockDownloader{
		content:  make(map[string][]byte),
		failURLs: make(map[string]bool),
	}
}

func (d *fileMockDownloader) Download(_ context.Context, url, dest string, progress driven.ProgressFunc) error {
	d.mu.Lock()
	d.calls = append(d.calls, url)
	d.active++
	if d.active > d.maxActive {
		d.maxActive = d.active
	}
	delay := d.perCallDelay
	d.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	defer func() {
		d.mu.Lock()
		d.active--
		d.mu.Unlock()
	}()

	if d.failURLs[url] {
		// A failed transfer may leave partial bytes behind
		if len(d.partialOnFail) > 0 {
			_ = os.WriteFile(dest, d.partialOnFail, 0o644)
		}
		return errors.New("connection reset")
	}

	data := d.content[url]
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return err
	}
	if progress != nil {
		progress(int64(len(data)), int64(len(data)))
	}
	return nil
}

// fileFixture wires a file sync engine over memory stores and a temp dir.
type fileFixture struct {
	dir        string
	downloader *fileMockDownloader
	tree       *memory.FileTreeStore
	localFiles *memory.LocalFileStore
	progress   *memory.FileProgressStore
	engine     *FileSyncEngine
}

func newFileFixture(t *testing.T, api driven.ContentAPI) *fileFixture {
	t.Helper()
	f := &fileFixture{
		dir:        t.TempDir(),
		downloader: newFileMockDownloader(),
		tree:       memory.NewFileTreeStore(),
		localFiles: memory.NewLocalFileStore(),
		progress:   memory.NewFileProgressStore(),
	}
	f.engine = NewFileSyncEngine(api, f.tree, f.localFiles, f.progress, f.downloader, f.dir)
	return f
}

func (f *fileFixture) addTreeFile(t *testing.T, courseID, fileID int64, name string, size int64) domain.FileFolder {
	t.Helper()
	file := domain.FileFolder{
		ID:          fileID,
		CourseID:    courseID,
		DisplayName: name,
		URL:         fmt.Sprintf("https://lms.example.edu/files/%d/download", fileID),
		Size:        size,
	}
	files, err := f.tree.ListFiles(context.Background(), courseID)
	require.NoError(t, err)
	require.NoError(t, f.tree.ReplaceAll(context.Background(), courseID, append(files, file)))
	return file
}

func fullSelection(courseID int64) domain.CourseSyncSelection {
	return domain.CourseSyncSelection{CourseID: courseID, FullFileSync: true}
}

func TestSyncFiles_DownloadsSelection(t *testing.T) {
	f := newFileFixture(t, nil)
	a := f.addTreeFile(t, 1, 10, "syllabus.pdf", 4)
	b := f.addTreeFile(t, 1, 11, "notes.txt", 5)
	f.downloader.content[a.URL] = []byte("pdf!")
	f.downloader.content[b.URL] = []byte("notes")

	err := f.engine.SyncFiles(context.Background(), domain.CourseSyncSelection{
		CourseID: 1,
		FileIDs:  []int64{10, 11},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(f.dir, "1", "10_syllabus.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf!", string(data))

	rec, err := f.localFiles.Find(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.FileExists(t, rec.Path)

	prog, err := f.progress.Find(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, domain.ProgressCompleted, prog.State)
	assert.Equal(t, 100, prog.Percent)
}

func TestSyncFiles_BoundedBatches(t *testing.T) {
	f := newFileFixture(t, nil)
	for i := int64(1); i <= 8; i++ {
		file := f.addTreeFile(t, 1, i, fmt.Sprintf("f%d.bin", i), 1)
		f.downloader.content[file.URL] = []byte("x")
	}
	f.downloader.perCallDelay = 20 * time.Millisecond

	err := f.engine.SyncFiles(context.Background(), fullSelection(1))
	require.NoError(t, err)

	assert.Len(t, f.downloader.calls, 8)
	assert.LessOrEqual(t, f.downloader.maxActive, 6, "at most one batch in flight")
}

func TestSyncFiles_FailureLeavesNoRecordOrPartialFile(t *testing.T) {
	f := newFileFixture(t, nil)
	ok := f.addTreeFile(t, 1, 10, "good.txt", 2)
	bad := f.addTreeFile(t, 1, 11, "bad.txt", 2)
	f.downloader.content[ok.URL] = []byte("ok")
	f.downloader.failURLs[bad.URL] = true
	f.downloader.partialOnFail = []byte("par")

	err := f.engine.SyncFiles(context.Background(), fullSelection(1))
	require.Error(t, err)

	// The sibling succeeded
	_, recErr := f.localFiles.Find(context.Background(), 1, 10)
	assert.NoError(t, recErr)

	// The failed file left neither record nor bytes
	_, recErr = f.localFiles.Find(context.Background(), 1, 11)
	assert.ErrorIs(t, recErr, domain.ErrNotFound)
	assert.NoFileExists(t, filepath.Join(f.dir, "1", "11_bad.txt"))

	prog, progErr := f.progress.Find(context.Background(), 11)
	require.NoError(t, progErr)
	assert.Equal(t, domain.ProgressError, prog.State)
}

func TestSyncFiles_CleanupRemovesDeselectedFiles(t *testing.T) {
	f := newFileFixture(t, nil)
	keep := f.addTreeFile(t, 1, 10, "keep.txt", 4)
	f.downloader.content[keep.URL] = []byte("keep")

	// A previously-synced file that is no longer selected
	stalePath := filepath.Join(f.dir, "1", "99_stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stalePath), 0o755))
	require.NoError(t, os.WriteFile(stalePath, []byte("old"), 0o644))
	require.NoError(t, f.localFiles.Upsert(context.Background(), domain.LocalFileRecord{
		FileID: 99, CourseID: 1, Path: stalePath, DownloadedAt: time.Now(),
	}))
	require.NoError(t, f.progress.Upsert(context.Background(), domain.FileSyncProgress{
		FileID: 99, CourseID: 1, State: domain.ProgressCompleted,
	}))

	err := f.engine.SyncFiles(context.Background(), domain.CourseSyncSelection{
		CourseID: 1,
		FileIDs:  []int64{10},
	})
	require.NoError(t, err)

	assert.NoFileExists(t, stalePath)
	_, recErr := f.localFiles.Find(context.Background(), 1, 99)
	assert.ErrorIs(t, recErr, domain.ErrNotFound)
	_, progErr := f.progress.Find(context.Background(), 99)
	assert.ErrorIs(t, progErr, domain.ErrNotFound)
}

func TestSyncFiles_ReplacesExistingViaTempRename(t *testing.T) {
	f := newFileFixture(t, nil)
	file := f.addTreeFile(t, 1, 10, "doc.txt", 7)
	f.downloader.content[file.URL] = []byte("updated")

	dest := filepath.Join(f.dir, "1", "10_doc.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0o644))

	err := f.engine.SyncFiles(context.Background(), fullSelection(1))
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "updated", string(data))
	assert.NoFileExists(t, dest+".tmp")
}

func TestSyncFiles_SkipsUnchangedLocalCopy(t *testing.T) {
	f := newFileFixture(t, nil)
	file := f.addTreeFile(t, 1, 10, "doc.txt", 4)

	dest := filepath.Join(f.dir, "1", "10_doc.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, []byte("same"), 0o644))
	require.NoError(t, f.localFiles.Upsert(context.Background(), domain.LocalFileRecord{
		FileID: 10, CourseID: 1, Path: dest, DownloadedAt: time.Now(),
	}))
	_ = file

	err := f.engine.SyncFiles(context.Background(), fullSelection(1))
	require.NoError(t, err)

	assert.Empty(t, f.downloader.calls)
	prog, progErr := f.progress.Find(context.Background(), 10)
	require.NoError(t, progErr)
	assert.Equal(t, domain.ProgressCompleted, prog.State)
}

func TestSyncFiles_CancelledContext(t *testing.T) {
	f := newFileFixture(t, nil)
	file := f.addTreeFile(t, 1, 10, "doc.txt", 1)
	f.downloader.content[file.URL] = []byte("x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.engine.SyncFiles(ctx, fullSelection(1))
	assert.ErrorIs(t, err, domain.ErrSyncStopped)
}

func TestSyncAdditionalFiles_FetchesMetadataOutsideTree(t *testing.T) {
	api := &orchMockAPI{
		fileByID: map[int64]domain.FileFolder{
			42: {
				ID:          42,
				CourseID:    1,
				DisplayName: "handout.pdf",
				URL:         "https://lms.example.edu/files/42/download",
				Size:        3,
			},
		},
	}
	f := newFileFixture(t, api)
	f.downloader.content["https://lms.example.edu/files/42/download"] = []byte("pdf")

	err := f.engine.SyncAdditionalFiles(context.Background(), fullSelection(1), []int64{42}, nil)
	require.NoError(t, err)

	rec, recErr := f.localFiles.Find(context.Background(), 1, 42)
	require.NoError(t, recErr)
	assert.FileExists(t, rec.Path)
}

func TestSyncAdditionalFiles_ExternalMirror(t *testing.T) {
	f := newFileFixture(t, nil)
	url := "https://images.example.org/photo.jpg"
	f.downloader.content[url] = []byte("jpeg")

	err := f.engine.SyncAdditionalFiles(context.Background(), fullSelection(1), nil, []string{url})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(f.dir, "external_1", "photo.jpg"))

	syntheticID := ExternalFileID(url)
	assert.Negative(t, syntheticID)
	prog, progErr := f.progress.Find(context.Background(), syntheticID)
	require.NoError(t, progErr)
	assert.Equal(t, domain.ProgressCompleted, prog.State)

	// External mirrors never get a LocalFileRecord
	records, listErr := f.localFiles.ListByCourse(context.Background(), 1)
	require.NoError(t, listErr)
	assert.Empty(t, records)
}

func TestSyncFiles_ClearsExternalDirOnCleanup(t *testing.T) {
	f := newFileFixture(t, nil)
	externalPath := filepath.Join(f.dir, "external_1", "old.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(externalPath), 0o755))
	require.NoError(t, os.WriteFile(externalPath, []byte("old"), 0o644))

	err := f.engine.SyncFiles(context.Background(), fullSelection(1))
	require.NoError(t, err)

	assert.NoFileExists(t, externalPath)
}
