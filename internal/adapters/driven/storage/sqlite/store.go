package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	stdsync "sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/classtow/classtow-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all content store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string

	// Progress watch subscriptions live on the store so every facade
	// handed out by the accessors publishes to the same watchers.
	subMu      stdsync.Mutex
	nextSub    int
	courseSubs map[int]chan []domain.CourseSyncProgress
	fileSubs   map[int]chan []domain.FileSyncProgress
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.classtow/data/content.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".classtow", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "content.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:         db,
		path:       dbPath,
		courseSubs: make(map[int]chan []domain.CourseSyncProgress),
		fileSubs:   make(map[int]chan []domain.FileSyncProgress),
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CourseStore returns a CourseStore interface backed by this store.
func (s *Store) CourseStore() driven.CourseStore {
	return &courseStore{store: s}
}

// PageStore returns a PageStore interface backed by this store.
func (s *Store) PageStore() driven.PageStore {
	return &pageStore{store: s}
}

// AssignmentStore returns an AssignmentStore interface backed by this store.
func (s *Store) AssignmentStore() driven.AssignmentStore {
	return &assignmentStore{store: s}
}

// QuizStore returns a QuizStore interface backed by this store.
func (s *Store) QuizStore() driven.QuizStore {
	return &quizStore{store: s}
}

// EventStore returns an EventStore interface backed by this store.
func (s *Store) EventStore() driven.EventStore {
	return &eventStore{store: s}
}

// ConferenceStore returns a ConferenceStore interface backed by this store.
func (s *Store) ConferenceStore() driven.ConferenceStore {
	return &conferenceStore{store: s}
}

// DiscussionStore returns a DiscussionStore interface backed by this store.
func (s *Store) DiscussionStore() driven.DiscussionStore {
	return &discussionStore{store: s}
}

// UserStore returns a UserStore interface backed by this store.
func (s *Store) UserStore() driven.UserStore {
	return &userStore{store: s}
}

// ModuleStore returns a ModuleStore interface backed by this store.
func (s *Store) ModuleStore() driven.ModuleStore {
	return &moduleStore{store: s}
}

// FileTreeStore returns a FileTreeStore interface backed by this store.
func (s *Store) FileTreeStore() driven.FileTreeStore {
	return &fileTreeStore{store: s}
}

// LocalFileStore returns a LocalFileStore interface backed by this store.
func (s *Store) LocalFileStore() driven.LocalFileStore {
	return &localFileStore{store: s}
}

// SelectionStore returns a SelectionStore interface backed by this store.
func (s *Store) SelectionStore() driven.SelectionStore {
	return &selectionStore{store: s}
}

// SettingsStore returns a SettingsStore interface backed by this store.
func (s *Store) SettingsStore() driven.SettingsStore {
	return &settingsStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// CourseProgressStore returns a CourseProgressStore interface backed by this store.
func (s *Store) CourseProgressStore() driven.CourseProgressStore {
	return &courseProgressStore{store: s}
}

// FileProgressStore returns a FileProgressStore interface backed by this store.
func (s *Store) FileProgressStore() driven.FileProgressStore {
	return &fileProgressStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// replaceAll clears all rows matching the delete statement and repopulates
// them through insert, in one transaction. Every ReplaceAll facade method
// funnels through here.
func (s *Store) replaceAll(ctx context.Context, deleteSQL string, deleteArgs []any, insert func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, deleteSQL, deleteArgs...); err != nil {
		return fmt.Errorf("clearing rows: %w", err)
	}

	if err := insert(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// formatNullableTime formats a time to RFC3339 string, or returns nil for zero time.
func formatNullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

// parseNullableTime parses a nullable RFC3339 string to time.Time.
// Returns zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{} // Return zero time on parse error
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// int64Placeholders renders a comma-separated "?, ?, ..." list plus the
// matching args slice for IN clauses over int64 keys.
func int64Placeholders(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}
