package domain

import "time"

// Page is a rich-text course page. Bodies are stored after HTML rewriting,
// so embedded resources point at local copies where possible.
type Page struct {
	ID        int64
	URL       string
	Title     string
	Body      string
	FrontPage bool
	UpdatedAt time.Time
}

// AssignmentGroup is a group of assignments fetched in one listing.
type AssignmentGroup struct {
	ID          int64
	Name        string
	Assignments []Assignment
}

// Assignment is a single course assignment. A non-zero QuizID means the
// assignment wraps a quiz that is fetched inline during the assignments pass.
type Assignment struct {
	ID          int64
	CourseID    int64
	Name        string
	Description string
	QuizID      int64
	DueAt       time.Time
	PointsTotal float64
}

// Quiz is a course quiz. Reached both through the dedicated quizzes tab and
// through assignments/module items; all paths converge on the same storage.
type Quiz struct {
	ID          int64
	Title       string
	Description string
	DueAt       time.Time
}

// ScheduleItem is a syllabus/calendar entry (event or assignment occurrence).
type ScheduleItem struct {
	ID          string
	Title       string
	Description string
	Type        string
	StartAt     time.Time
}

// Schedule item types.
const (
	ScheduleItemEvent      = "event"
	ScheduleItemAssignment = "assignment"
)

// Conference is a web conference attached to a course.
type Conference struct {
	ID          int64
	Title       string
	Description string
	JoinURL     string
}

// Discussion is a discussion topic header, also used for announcements.
// FullTopic carries the rewritten detail body fetched per topic.
type Discussion struct {
	ID           int64
	Title        string
	Message      string
	Announcement bool
	Attachments  []FileFolder
	FullTopic    string
	PostedAt     time.Time
}

// User is a course participant shown on the people tab.
type User struct {
	ID        int64
	Name      string
	SortName  string
	AvatarURL string
	Role      string
}

// Module is an ordered content module with its items.
type Module struct {
	ID       int64
	Name     string
	Position int
	Items    []ModuleItem
}

// ModuleItem references content reachable through a module. Depending on
// Type, ContentID or PageURL locates the referenced entity.
type ModuleItem struct {
	ID        int64
	Title     string
	Type      ModuleItemType
	ContentID int64
	PageURL   string
}

// ModuleItemType classifies what a module item points at.
type ModuleItemType string

// Module item types the sync engine resolves.
const (
	ModuleItemPage       ModuleItemType = "Page"
	ModuleItemFile       ModuleItemType = "File"
	ModuleItemQuiz       ModuleItemType = "Quiz"
	ModuleItemAssignment ModuleItemType = "Assignment"
	ModuleItemDiscussion ModuleItemType = "Discussion"
	ModuleItemExternal   ModuleItemType = "ExternalUrl"
)
