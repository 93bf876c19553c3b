package domain

import "time"

// Course is the cached core record of a remote course, including the
// denormalised sub-entities that are persisted with it in one transaction.
type Course struct {
	ID           int64
	Name         string
	CourseCode   string
	HomeView     string
	SyllabusBody string
	Tabs         []CourseTab
	Enrollments  []Enrollment
	Settings     CourseSettings
	Features     []string
}

// CourseTab is a content tab the course actually exposes. Only the
// intersection of exposed and selected tabs is synced.
type CourseTab struct {
	ID    TabID
	Label string
}

// HasTab returns true if the course exposes the given tab.
func (c *Course) HasTab(id TabID) bool {
	for _, t := range c.Tabs {
		if t.ID == id {
			return true
		}
	}
	return false
}

// TabLabel returns the display label for a tab, falling back to the ID.
func (c *Course) TabLabel(id TabID) string {
	for _, t := range c.Tabs {
		if t.ID == id {
			return t.Label
		}
	}
	return string(id)
}

// Enrollment links a user to a course with a role.
type Enrollment struct {
	ID     int64
	UserID int64
	Role   string
	State  string
}

// CourseSettings holds remote per-course configuration flags the offline
// views need.
type CourseSettings struct {
	CoursesSummary        bool
	RestrictQuantitative  bool
	HideFinalGrades       bool
	AllowStudentDiscussed bool
}

// CourseSyncSelection is the user's per-course sync configuration: which
// tabs to mirror, and whether to download every file or an explicit subset.
// It is written by settings commands and only read by the sync engine.
type CourseSyncSelection struct {
	CourseID     int64
	CourseName   string
	Tabs         map[TabID]bool
	FullFileSync bool
	FileIDs      []int64
	UpdatedAt    time.Time
}

// TabSelected returns true if the tab is selected for sync.
func (s *CourseSyncSelection) TabSelected(id TabID) bool {
	return s.Tabs[id]
}

// AnyTabSelected returns true if any of the given tabs is selected.
func (s *CourseSyncSelection) AnyTabSelected(ids ...TabID) bool {
	for _, id := range ids {
		if s.Tabs[id] {
			return true
		}
	}
	return false
}

// FileSelected returns true if the file is explicitly selected.
func (s *CourseSyncSelection) FileSelected(fileID int64) bool {
	for _, id := range s.FileIDs {
		if id == fileID {
			return true
		}
	}
	return false
}
