package driven

import (
	"context"

	"github.com/classtow/classtow-cli/internal/core/domain"
)

// ContentAPI is the remote course content API. Every list operation is
// fully depaginated by the adapter before returning: callers always see
// complete result sets.
type ContentAPI interface {
	// GetCourse fetches core course details including the exposed tabs.
	GetCourse(ctx context.Context, courseID int64) (*domain.Course, error)

	// GetEnrollments fetches a user's enrollments in a course.
	GetEnrollments(ctx context.Context, courseID, userID int64) ([]domain.Enrollment, error)

	// GetCourseSettings fetches remote per-course configuration.
	GetCourseSettings(ctx context.Context, courseID int64) (*domain.CourseSettings, error)

	// GetCourseFeatures fetches the enabled feature flags for a course.
	GetCourseFeatures(ctx context.Context, courseID int64) ([]string, error)

	// ListPages fetches all pages with bodies.
	ListPages(ctx context.Context, courseID int64) ([]domain.Page, error)

	// GetFrontPage fetches the course home page, if it has one.
	GetFrontPage(ctx context.Context, courseID int64) (*domain.Page, error)

	// GetPage fetches a single page by its URL slug.
	GetPage(ctx context.Context, courseID int64, pageURL string) (*domain.Page, error)

	// ListAssignmentGroups fetches all assignment groups with assignments.
	ListAssignmentGroups(ctx context.Context, courseID int64) ([]domain.AssignmentGroup, error)

	// ListQuizzes fetches all quizzes.
	ListQuizzes(ctx context.Context, courseID int64) ([]domain.Quiz, error)

	// GetQuiz fetches a single quiz.
	GetQuiz(ctx context.Context, courseID, quizID int64) (*domain.Quiz, error)

	// ListCalendarEvents fetches schedule items of one type for a course.
	ListCalendarEvents(ctx context.Context, courseID int64, itemType string) ([]domain.ScheduleItem, error)

	// ListConferences fetches all conferences.
	ListConferences(ctx context.Context, courseID int64) ([]domain.Conference, error)

	// ListDiscussions fetches discussion topic headers, or announcements
	// when the flag is set.
	ListDiscussions(ctx context.Context, courseID int64, announcements bool) ([]domain.Discussion, error)

	// GetFullTopic fetches the full detail body of one discussion topic.
	GetFullTopic(ctx context.Context, courseID, topicID int64) (string, error)

	// ListUsers fetches course participants.
	ListUsers(ctx context.Context, courseID int64) ([]domain.User, error)

	// ListModules fetches all modules with their items.
	ListModules(ctx context.Context, courseID int64) ([]domain.Module, error)

	// ListFilesAndFolders snapshots the course's remote file/folder tree.
	ListFilesAndFolders(ctx context.Context, courseID int64) ([]domain.FileFolder, error)

	// GetCourseFile fetches metadata of a single file.
	GetCourseFile(ctx context.Context, courseID, fileID int64) (*domain.FileFolder, error)
}
