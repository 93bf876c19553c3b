package memory

import (
	"context"
	"sync"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

// Ensure the content stores implement their interfaces.
var (
	_ driven.CourseStore     = (*CourseStore)(nil)
	_ driven.PageStore       = (*PageStore)(nil)
	_ driven.AssignmentStore = (*AssignmentStore)(nil)
	_ driven.QuizStore       = (*QuizStore)(nil)
	_ driven.EventStore      = (*EventStore)(nil)
	_ driven.ConferenceStore = (*ConferenceStore)(nil)
	_ driven.DiscussionStore = (*DiscussionStore)(nil)
	_ driven.UserStore       = (*UserStore)(nil)
	_ driven.ModuleStore     = (*ModuleStore)(nil)
)

// CourseStore is an in-memory implementation of driven.CourseStore.
type CourseStore struct {
	mu      sync.RWMutex
	courses map[int64]domain.Course
}

// NewCourseStore creates a new in-memory course store.
func NewCourseStore() *CourseStore {
	return &CourseStore{courses: make(map[int64]domain.Course)}
}

// SaveCourse stores or updates a course with its sub-entities.
func (s *CourseStore) SaveCourse(_ context.Context, course *domain.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[course.ID] = *course
	return nil
}

// FindCourse retrieves a course by ID.
func (s *CourseStore) FindCourse(_ context.Context, courseID int64) (*domain.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	course, ok := s.courses[courseID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &course, nil
}

// DeleteCourse removes a course.
func (s *CourseStore) DeleteCourse(_ context.Context, courseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.courses, courseID)
	return nil
}

// PageStore is an in-memory implementation of driven.PageStore.
type PageStore struct {
	mu    sync.RWMutex
	pages map[int64][]domain.Page
}

// NewPageStore creates a new in-memory page store.
func NewPageStore() *PageStore {
	return &PageStore{pages: make(map[int64][]domain.Page)}
}

// ReplaceAll clears and repopulates a course's pages.
func (s *PageStore) ReplaceAll(_ context.Context, courseID int64, pages []domain.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[courseID] = append([]domain.Page(nil), pages...)
	return nil
}

// Upsert stores or updates a single page.
func (s *PageStore) Upsert(_ context.Context, courseID int64, page domain.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pages[courseID] {
		if p.ID == page.ID {
			s.pages[courseID][i] = page
			return nil
		}
	}
	s.pages[courseID] = append(s.pages[courseID], page)
	return nil
}

// FindByURL retrieves a page by its URL slug.
func (s *PageStore) FindByURL(_ context.Context, courseID int64, pageURL string) (*domain.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pages[courseID] {
		if p.URL == pageURL {
			page := p
			return &page, nil
		}
	}
	return nil, domain.ErrNotFound
}

// DeleteAllByCourse removes all pages for a course.
func (s *PageStore) DeleteAllByCourse(_ context.Context, courseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, courseID)
	return nil
}

// List returns all pages for a course.
func (s *PageStore) List(courseID int64) []domain.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Page(nil), s.pages[courseID]...)
}

// AssignmentStore is an in-memory implementation of driven.AssignmentStore.
type AssignmentStore struct {
	mu     sync.RWMutex
	groups map[int64][]domain.AssignmentGroup
}

// NewAssignmentStore creates a new in-memory assignment store.
func NewAssignmentStore() *AssignmentStore {
	return &AssignmentStore{groups: make(map[int64][]domain.AssignmentGroup)}
}

// ReplaceAll clears and repopulates a course's assignment groups.
func (s *AssignmentStore) ReplaceAll(_ context.Context, courseID int64, groups []domain.AssignmentGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[courseID] = append([]domain.AssignmentGroup(nil), groups...)
	return nil
}

// DeleteAllByCourse removes all assignment groups for a course.
func (s *AssignmentStore) DeleteAllByCourse(_ context.Context, courseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, courseID)
	return nil
}

// List returns all assignment groups for a course.
func (s *AssignmentStore) List(courseID int64) []domain.AssignmentGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AssignmentGroup(nil), s.groups[courseID]...)
}

// QuizStore is an in-memory implementation of driven.QuizStore.
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[int64][]domain.Quiz
}

// NewQuizStore creates a new in-memory quiz store.
func NewQuizStore() *QuizStore {
	return &QuizStore{quizzes: make(map[int64][]domain.Quiz)}
}

// ReplaceAll clears and repopulates a course's quizzes.
func (s *QuizStore) ReplaceAll(_ context.Context, courseID int64, quizzes []domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[courseID] = append([]domain.Quiz(nil), quizzes...)
	return nil
}

// Upsert stores or updates a single quiz.
func (s *QuizStore) Upsert(_ context.Context, courseID int64, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, q := range s.quizzes[courseID] {
		if q.ID == quiz.ID {
			s.quizzes[courseID][i] = quiz
			return nil
		}
	}
	s.quizzes[courseID] = append(s.quizzes[courseID], quiz)
	return nil
}

// FindByID retrieves a quiz by ID.
func (s *QuizStore) FindByID(_ context.Context, courseID, quizID int64) (*domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.quizzes[courseID] {
		if q.ID == quizID {
			quiz := q
			return &quiz, nil
		}
	}
	return nil, domain.ErrNotFound
}

// DeleteAllByCourse removes all quizzes for a course.
func (s *QuizStore) DeleteAllByCourse(_ context.Context, courseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quizzes, courseID)
	return nil
}

// List returns all quizzes for a course.
func (s *QuizStore) List(courseID int64) []domain.Quiz {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Quiz(nil), s.quizzes[courseID]...)
}

// EventStore is an in-memory implementation of driven.EventStore.
type EventStore struct {
	mu    sync.RWMutex
	items map[int64][]domain.ScheduleItem
}

// NewEventStore creates a new in-memory schedule item store.
func NewEventStore() *EventStore {
	return &EventStore{items: make(map[int64][]domain.ScheduleItem)}
}

// ReplaceAll clears and repopulates a course's schedule items.
func (s *EventStore) ReplaceAll(_ context.Context, courseID int64, items []domain.ScheduleItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[courseID] = append([]domain.ScheduleItem(nil), items...)
	return nil
}

// DeleteAllByCourse removes all schedule items for a course.
func (s *EventStore) DeleteAllByCourse(_ context.Context, courseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, courseID)
	return nil
}

// List returns all schedule items for a course.
func (s *EventStore) List(courseID int64) []domain.ScheduleItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ScheduleItem(nil), s.items[courseID]...)
}

// ConferenceStore is an in-memory implementation of driven.ConferenceStore.
type ConferenceStore struct {
	mu          sync.RWMutex
	conferences map[int64][]domain.Conference
}

// NewConferenceStore creates a new in-memory conference store.
func NewConferenceStore() *ConferenceStore {
	return &ConferenceStore{conferences: make(map[int64][]domain.Conference)}
}

// ReplaceAll clears and repopulates a course's conferences.
func (s *ConferenceStore) ReplaceAll(_ context.Context, courseID int64, conferences []domain.Conference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conferences[courseID] = append([]domain.Conference(nil), conferences...)
	return nil
}

// DeleteAllByCourse removes all conferences for a course.
func (s *ConferenceStore) DeleteAllByCourse(_ context.Context, courseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conferences, courseID)
	return nil
}

// DiscussionStore is an in-memory implementation of driven.DiscussionStore.
// Discussions and announcements are kept in separate buckets.
type DiscussionStore struct {
	mu            sync.RWMutex
	discussions   map[int64][]domain.Discussion
	announcements map[int64][]domain.Discussion
}

// NewDiscussionStore creates a new in-memory discussion store.
func NewDiscussionStore() *DiscussionStore {
	return &DiscussionStore{
		discussions:   make(map[int64][]domain.Discussion),
		announcements: make(map[int64][]domain.Discussion),
	}
}

func (s *DiscussionStore) bucket(announcements bool) map[int64][]domain.Discussion {
	if announcements {
		return s.announcements
	}
	return s.discussions
}

// ReplaceAll clears and repopulates one bucket for a course.
func (s *DiscussionStore) ReplaceAll(_ context.Context, courseID int64, announcements bool, discussions []domain.Discussion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(announcements)[courseID] = append([]domain.Discussion(nil), discussions...)
	return nil
}

// DeleteAllByCourse removes one bucket for a course.
func (s *DiscussionStore) DeleteAllByCourse(_ context.Context, courseID int64, announcements bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bucket(announcements), courseID)
	return nil
}

// List returns one bucket for a course.
func (s *DiscussionStore) List(courseID int64, announcements bool) []domain.Discussion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Discussion(nil), s.bucket(announcements)[courseID]...)
}

// UserStore is an in-memory implementation of driven.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[int64][]domain.User
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[int64][]domain.User)}
}

// ReplaceAll clears and repopulates a course's participants.
func (s *UserStore) ReplaceAll(_ context.Context, courseID int64, users []domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[courseID] = append([]domain.User(nil), users...)
	return nil
}

// DeleteAllByCourse removes all participants for a course.
func (s *UserStore) DeleteAllByCourse(_ context.Context, courseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, courseID)
	return nil
}

// List returns all participants for a course.
func (s *UserStore) List(courseID int64) []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.User(nil), s.users[courseID]...)
}

// ModuleStore is an in-memory implementation of driven.ModuleStore.
type ModuleStore struct {
	mu      sync.RWMutex
	modules map[int64][]domain.Module
}

// NewModuleStore creates a new in-memory module store.
func NewModuleStore() *ModuleStore {
	return &ModuleStore{modules: make(map[int64][]domain.Module)}
}

// ReplaceAll clears and repopulates a course's modules.
func (s *ModuleStore) ReplaceAll(_ context.Context, courseID int64, modules []domain.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[courseID] = append([]domain.Module(nil), modules...)
	return nil
}

// DeleteAllByCourse removes all modules for a course.
func (s *ModuleStore) DeleteAllByCourse(_ context.Context, courseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.modules, courseID)
	return nil
}
