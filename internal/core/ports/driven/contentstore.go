package driven

import (
	"context"

	"github.com/classtow/classtow-cli/internal/core/domain"
)

// CourseStore persists cached course records. Inserting a course writes its
// enrollments, settings and feature flags in the same transaction, so a
// crash mid-write never leaves a partial entity graph.
type CourseStore interface {
	SaveCourse(ctx context.Context, course *domain.Course) error
	FindCourse(ctx context.Context, courseID int64) (*domain.Course, error)
	DeleteCourse(ctx context.Context, courseID int64) error
}

// PageStore persists course pages. ReplaceAll clears and repopulates the
// course's pages in one transaction.
type PageStore interface {
	ReplaceAll(ctx context.Context, courseID int64, pages []domain.Page) error
	Upsert(ctx context.Context, courseID int64, page domain.Page) error
	FindByURL(ctx context.Context, courseID int64, pageURL string) (*domain.Page, error)
	DeleteAllByCourse(ctx context.Context, courseID int64) error
}

// AssignmentStore persists assignment groups with their assignments.
type AssignmentStore interface {
	ReplaceAll(ctx context.Context, courseID int64, groups []domain.AssignmentGroup) error
	DeleteAllByCourse(ctx context.Context, courseID int64) error
}

// QuizStore persists quizzes. The assignments pass, the quizzes tab and
// module items all converge here.
type QuizStore interface {
	ReplaceAll(ctx context.Context, courseID int64, quizzes []domain.Quiz) error
	Upsert(ctx context.Context, courseID int64, quiz domain.Quiz) error
	FindByID(ctx context.Context, courseID, quizID int64) (*domain.Quiz, error)
	DeleteAllByCourse(ctx context.Context, courseID int64) error
}

// EventStore persists syllabus schedule items.
type EventStore interface {
	ReplaceAll(ctx context.Context, courseID int64, items []domain.ScheduleItem) error
	DeleteAllByCourse(ctx context.Context, courseID int64) error
}

// ConferenceStore persists conferences.
type ConferenceStore interface {
	ReplaceAll(ctx context.Context, courseID int64, conferences []domain.Conference) error
	DeleteAllByCourse(ctx context.Context, courseID int64) error
}

// DiscussionStore persists discussion topics and announcements, kept apart
// by the announcements flag.
type DiscussionStore interface {
	ReplaceAll(ctx context.Context, courseID int64, announcements bool, discussions []domain.Discussion) error
	DeleteAllByCourse(ctx context.Context, courseID int64, announcements bool) error
}

// UserStore persists course participants.
type UserStore interface {
	ReplaceAll(ctx context.Context, courseID int64, users []domain.User) error
	DeleteAllByCourse(ctx context.Context, courseID int64) error
}

// ModuleStore persists modules with their items.
type ModuleStore interface {
	ReplaceAll(ctx context.Context, courseID int64, modules []domain.Module) error
	DeleteAllByCourse(ctx context.Context, courseID int64) error
}
