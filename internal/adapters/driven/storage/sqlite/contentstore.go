package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

// ==================== Course Store ====================

// courseStore implements driven.CourseStore.
type courseStore struct {
	store *Store
}

var _ driven.CourseStore = (*courseStore)(nil)

// SaveCourse stores or updates a course together with its enrollments,
// settings and feature flags in one transaction.
func (s *courseStore) SaveCourse(ctx context.Context, course *domain.Course) error {
	if course == nil {
		return domain.ErrInvalidInput
	}

	tabsJSON, err := json.Marshal(course.Tabs)
	if err != nil {
		return fmt.Errorf("marshalling tabs: %w", err)
	}
	settingsJSON, err := json.Marshal(course.Settings)
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}
	featuresJSON, err := json.Marshal(course.Features)
	if err != nil {
		return fmt.Errorf("marshalling features: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO courses (id, name, course_code, home_view, syllabus_body, tabs, settings, features)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			course_code = excluded.course_code,
			home_view = excluded.home_view,
			syllabus_body = excluded.syllabus_body,
			tabs = excluded.tabs,
			settings = excluded.settings,
			features = excluded.features
	`, course.ID, course.Name, course.CourseCode, course.HomeView, course.SyllabusBody,
		string(tabsJSON), string(settingsJSON), string(featuresJSON))
	if err != nil {
		return fmt.Errorf("saving course: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM course_enrollments WHERE course_id = ?", course.ID); err != nil {
		return fmt.Errorf("clearing enrollments: %w", err)
	}

	for _, e := range course.Enrollments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO course_enrollments (id, course_id, user_id, role, state)
			VALUES (?, ?, ?, ?, ?)
		`, e.ID, course.ID, e.UserID, e.Role, e.State); err != nil {
			return fmt.Errorf("saving enrollment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// FindCourse retrieves a course by ID, including its enrollments.
func (s *courseStore) FindCourse(ctx context.Context, courseID int64) (*domain.Course, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, course_code, home_view, syllabus_body, tabs, settings, features
		FROM courses WHERE id = ?
	`, courseID)

	var course domain.Course
	var tabsJSON, settingsJSON, featuresJSON string
	if err := row.Scan(&course.ID, &course.Name, &course.CourseCode, &course.HomeView,
		&course.SyllabusBody, &tabsJSON, &settingsJSON, &featuresJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning course: %w", err)
	}

	if err := json.Unmarshal([]byte(tabsJSON), &course.Tabs); err != nil {
		return nil, fmt.Errorf("unmarshalling tabs: %w", err)
	}
	if err := json.Unmarshal([]byte(settingsJSON), &course.Settings); err != nil {
		return nil, fmt.Errorf("unmarshalling settings: %w", err)
	}
	if err := json.Unmarshal([]byte(featuresJSON), &course.Features); err != nil {
		return nil, fmt.Errorf("unmarshalling features: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, user_id, role, state
		FROM course_enrollments WHERE course_id = ?
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("querying enrollments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.Role, &e.State); err != nil {
			return nil, fmt.Errorf("scanning enrollment: %w", err)
		}
		course.Enrollments = append(course.Enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating enrollments: %w", err)
	}

	return &course, nil
}

// DeleteCourse removes a course and its enrollments.
func (s *courseStore) DeleteCourse(ctx context.Context, courseID int64) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM course_enrollments WHERE course_id = ?", courseID); err != nil {
		return fmt.Errorf("deleting enrollments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM courses WHERE id = ?", courseID); err != nil {
		return fmt.Errorf("deleting course: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Page Store ====================

// pageStore implements driven.PageStore.
type pageStore struct {
	store *Store
}

var _ driven.PageStore = (*pageStore)(nil)

// ReplaceAll swaps the course's pages in one transaction.
func (s *pageStore) ReplaceAll(ctx context.Context, courseID int64, pages []domain.Page) error {
	return s.store.replaceAll(ctx,
		"DELETE FROM pages WHERE course_id = ?", []any{courseID},
		func(tx *sql.Tx) error {
			for _, page := range pages {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO pages (id, course_id, url, title, body, front_page, updated_at)
					VALUES (?, ?, ?, ?, ?, ?, ?)
				`, page.ID, courseID, page.URL, page.Title, page.Body,
					boolToInt(page.FrontPage), formatNullableTime(page.UpdatedAt)); err != nil {
					return fmt.Errorf("saving page: %w", err)
				}
			}
			return nil
		})
}

// Upsert stores or updates a single page.
func (s *pageStore) Upsert(ctx context.Context, courseID int64, page domain.Page) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO pages (id, course_id, url, title, body, front_page, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(course_id, id) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			body = excluded.body,
			front_page = excluded.front_page,
			updated_at = excluded.updated_at
	`, page.ID, courseID, page.URL, page.Title, page.Body,
		boolToInt(page.FrontPage), formatNullableTime(page.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upserting page: %w", err)
	}
	return nil
}

// FindByURL retrieves a page by its URL slug.
func (s *pageStore) FindByURL(ctx context.Context, courseID int64, pageURL string) (*domain.Page, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, url, title, body, front_page, updated_at
		FROM pages WHERE course_id = ? AND url = ?
	`, courseID, pageURL)

	var page domain.Page
	var frontPage int
	var updatedAt sql.NullString
	if err := row.Scan(&page.ID, &page.URL, &page.Title, &page.Body, &frontPage, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning page: %w", err)
	}
	page.FrontPage = frontPage == 1
	page.UpdatedAt = parseNullableTime(updatedAt)

	return &page, nil
}

// DeleteAllByCourse removes all pages for a course.
func (s *pageStore) DeleteAllByCourse(ctx context.Context, courseID int64) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM pages WHERE course_id = ?", courseID)
	if err != nil {
		return fmt.Errorf("deleting pages: %w", err)
	}
	return nil
}

// ==================== Assignment Store ====================

// assignmentStore implements driven.AssignmentStore.
type assignmentStore struct {
	store *Store
}

var _ driven.AssignmentStore = (*assignmentStore)(nil)

// ReplaceAll swaps the course's assignment groups in one transaction.
func (s *assignmentStore) ReplaceAll(ctx context.Context, courseID int64, groups []domain.AssignmentGroup) error {
	return s.store.replaceAll(ctx,
		"DELETE FROM assignment_groups WHERE course_id = ?", []any{courseID},
		func(tx *sql.Tx) error {
			for _, group := range groups {
				assignmentsJSON, err := json.Marshal(group.Assignments)
				if err != nil {
					return fmt.Errorf("marshalling assignments: %w", err)
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO assignment_groups (id, course_id, name, assignments)
					VALUES (?, ?, ?, ?)
				`, group.ID, courseID, group.Name, string(assignmentsJSON)); err != nil {
					return fmt.Errorf("saving assignment group: %w", err)
				}
			}
			return nil
		})
}

// DeleteAllByCourse removes all assignment groups for a course.
func (s *assignmentStore) DeleteAllByCourse(ctx context.Context, courseID int64) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM assignment_groups WHERE course_id = ?", courseID)
	if err != nil {
		return fmt.Errorf("deleting assignment groups: %w", err)
	}
	return nil
}

// ==================== Quiz Store ====================

// quizStore implements driven.QuizStore.
type quizStore struct {
	store *Store
}

var _ driven.QuizStore = (*quizStore)(nil)

// ReplaceAll swaps the course's quizzes in one transaction.
func (s *quizStore) ReplaceAll(ctx context.Context, courseID int64, quizzes []domain.Quiz) error {
	return s.store.replaceAll(ctx,
		"DELETE FROM quizzes WHERE course_id = ?", []any{courseID},
		func(tx *sql.Tx) error {
			for _, quiz := range quizzes {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO quizzes (id, course_id, title, description, due_at)
					VALUES (?, ?, ?, ?, ?)
				`, quiz.ID, courseID, quiz.Title, quiz.Description,
					formatNullableTime(quiz.DueAt)); err != nil {
					return fmt.Errorf("saving quiz: %w", err)
				}
			}
			return nil
		})
}

// Upsert stores or updates a single quiz.
func (s *quizStore) Upsert(ctx context.Context, courseID int64, quiz domain.Quiz) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO quizzes (id, course_id, title, description, due_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(course_id, id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			due_at = excluded.due_at
	`, quiz.ID, courseID, quiz.Title, quiz.Description, formatNullableTime(quiz.DueAt))
	if err != nil {
		return fmt.Errorf("upserting quiz: %w", err)
	}
	return nil
}

// FindByID retrieves a quiz by ID.
func (s *quizStore) FindByID(ctx context.Context, courseID, quizID int64) (*domain.Quiz, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, description, due_at
		FROM quizzes WHERE course_id = ? AND id = ?
	`, courseID, quizID)

	var quiz domain.Quiz
	var dueAt sql.NullString
	if err := row.Scan(&quiz.ID, &quiz.Title, &quiz.Description, &dueAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning quiz: %w", err)
	}
	quiz.DueAt = parseNullableTime(dueAt)

	return &quiz, nil
}

// DeleteAllByCourse removes all quizzes for a course.
func (s *quizStore) DeleteAllByCourse(ctx context.Context, courseID int64) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM quizzes WHERE course_id = ?", courseID)
	if err != nil {
		return fmt.Errorf("deleting quizzes: %w", err)
	}
	return nil
}

// ==================== Event Store ====================

// eventStore implements driven.EventStore.
type eventStore struct {
	store *Store
}

var _ driven.EventStore = (*eventStore)(nil)

// ReplaceAll swaps the course's schedule items in one transaction.
func (s *eventStore) ReplaceAll(ctx context.Context, courseID int64, items []domain.ScheduleItem) error {
	return s.store.replaceAll(ctx,
		"DELETE FROM schedule_items WHERE course_id = ?", []any{courseID},
		func(tx *sql.Tx) error {
			for _, item := range items {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO schedule_items (id, course_id, title, description, type, start_at)
					VALUES (?, ?, ?, ?, ?, ?)
				`, item.ID, courseID, item.Title, item.Description, item.Type,
					formatNullableTime(item.StartAt)); err != nil {
					return fmt.Errorf("saving schedule item: %w", err)
				}
			}
			return nil
		})
}

// DeleteAllByCourse removes all schedule items for a course.
func (s *eventStore) DeleteAllByCourse(ctx context.Context, courseID int64) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM schedule_items WHERE course_id = ?", courseID)
	if err != nil {
		return fmt.Errorf("deleting schedule items: %w", err)
	}
	return nil
}

// ==================== Conference Store ====================

// conferenceStore implements driven.ConferenceStore.
type conferenceStore struct {
	store *Store
}

var _ driven.ConferenceStore = (*conferenceStore)(nil)

// ReplaceAll swaps the course's conferences in one transaction.
func (s *conferenceStore) ReplaceAll(ctx context.Context, courseID int64, conferences []domain.Conference) error {
	return s.store.replaceAll(ctx,
		"DELETE FROM conferences WHERE course_id = ?", []any{courseID},
		func(tx *sql.Tx) error {
			for _, conf := range conferences {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO conferences (id, course_id, title, description, join_url)
					VALUES (?, ?, ?, ?, ?)
				`, conf.ID, courseID, conf.Title, conf.Description, conf.JoinURL); err != nil {
					return fmt.Errorf("saving conference: %w", err)
				}
			}
			return nil
		})
}

// DeleteAllByCourse removes all conferences for a course.
func (s *conferenceStore) DeleteAllByCourse(ctx context.Context, courseID int64) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM conferences WHERE course_id = ?", courseID)
	if err != nil {
		return fmt.Errorf("deleting conferences: %w", err)
	}
	return nil
}

// ==================== Discussion Store ====================

// discussionStore implements driven.DiscussionStore.
type discussionStore struct {
	store *Store
}

var _ driven.DiscussionStore = (*discussionStore)(nil)

// ReplaceAll swaps the course's discussions or announcements in one
// transaction. The two listings never clobber each other.
func (s *discussionStore) ReplaceAll(ctx context.Context, courseID int64, announcements bool, discussions []domain.Discussion) error {
	return s.store.replaceAll(ctx,
		"DELETE FROM discussions WHERE course_id = ? AND announcement = ?",
		[]any{courseID, boolToInt(announcements)},
		func(tx *sql.Tx) error {
			for _, d := range discussions {
				attachmentsJSON, err := json.Marshal(d.Attachments)
				if err != nil {
					return fmt.Errorf("marshalling attachments: %w", err)
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO discussions
						(id, course_id, announcement, title, message, full_topic, attachments, posted_at)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				`, d.ID, courseID, boolToInt(announcements), d.Title, d.Message,
					d.FullTopic, string(attachmentsJSON), formatNullableTime(d.PostedAt)); err != nil {
					return fmt.Errorf("saving discussion: %w", err)
				}
			}
			return nil
		})
}

// DeleteAllByCourse removes the course's discussions or announcements.
func (s *discussionStore) DeleteAllByCourse(ctx context.Context, courseID int64, announcements bool) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM discussions WHERE course_id = ? AND announcement = ?",
		courseID, boolToInt(announcements))
	if err != nil {
		return fmt.Errorf("deleting discussions: %w", err)
	}
	return nil
}

// ==================== User Store ====================

// userStore implements driven.UserStore.
type userStore struct {
	store *Store
}

var _ driven.UserStore = (*userStore)(nil)

// ReplaceAll swaps the course's participants in one transaction.
func (s *userStore) ReplaceAll(ctx context.Context, courseID int64, users []domain.User) error {
	return s.store.replaceAll(ctx,
		"DELETE FROM users WHERE course_id = ?", []any{courseID},
		func(tx *sql.Tx) error {
			for _, user := range users {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO users (id, course_id, name, sort_name, avatar_url, role)
					VALUES (?, ?, ?, ?, ?, ?)
				`, user.ID, courseID, user.Name, user.SortName, user.AvatarURL, user.Role); err != nil {
					return fmt.Errorf("saving user: %w", err)
				}
			}
			return nil
		})
}

// DeleteAllByCourse removes all participants for a course.
func (s *userStore) DeleteAllByCourse(ctx context.Context, courseID int64) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM users WHERE course_id = ?", courseID)
	if err != nil {
		return fmt.Errorf("deleting users: %w", err)
	}
	return nil
}

// ==================== Module Store ====================

// moduleStore implements driven.ModuleStore.
type moduleStore struct {
	store *Store
}

var _ driven.ModuleStore = (*moduleStore)(nil)

// ReplaceAll swaps the course's modules in one transaction.
func (s *moduleStore) ReplaceAll(ctx context.Context, courseID int64, modules []domain.Module) error {
	return s.store.replaceAll(ctx,
		"DELETE FROM modules WHERE course_id = ?", []any{courseID},
		func(tx *sql.Tx) error {
			for _, module := range modules {
				itemsJSON, err := json.Marshal(module.Items)
				if err != nil {
					return fmt.Errorf("marshalling module items: %w", err)
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO modules (id, course_id, name, position, items)
					VALUES (?, ?, ?, ?, ?)
				`, module.ID, courseID, module.Name, module.Position, string(itemsJSON)); err != nil {
					return fmt.Errorf("saving module: %w", err)
				}
			}
			return nil
		})
}

// DeleteAllByCourse removes all modules for a course.
func (s *moduleStore) DeleteAllByCourse(ctx context.Context, courseID int64) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM modules WHERE course_id = ?", courseID)
	if err != nil {
		return fmt.Errorf("deleting modules: %w", err)
	}
	return nil
}
