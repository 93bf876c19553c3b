package domain

// TabID identifies a content category within a course. The set is closed:
// tab dispatch in the sync engine maps each ID to a fetch function, and one
// fetch may satisfy several tabs (assignments also feed grades).
type TabID string

// Known content tabs.
const (
	TabPages         TabID = "pages"
	TabAssignments   TabID = "assignments"
	TabGrades        TabID = "grades"
	TabSyllabus      TabID = "syllabus"
	TabDiscussions   TabID = "discussions"
	TabAnnouncements TabID = "announcements"
	TabPeople        TabID = "people"
	TabQuizzes       TabID = "quizzes"
	TabConferences   TabID = "conferences"
	TabModules       TabID = "modules"
)

// HomeViewWiki marks a course whose home view is a content page. The front
// page must be fetched after the page listing, because the listing fetch
// clears and repopulates the page table.
const HomeViewWiki = "wiki"

// AllTabs returns every syncable content tab.
func AllTabs() []TabID {
	return []TabID{
		TabPages, TabAssignments, TabGrades, TabSyllabus, TabDiscussions,
		TabAnnouncements, TabPeople, TabQuizzes, TabConferences, TabModules,
	}
}

// IsValid returns true if the tab ID is recognised.
func (t TabID) IsValid() bool {
	switch t {
	case TabPages, TabAssignments, TabGrades, TabSyllabus, TabDiscussions,
		TabAnnouncements, TabPeople, TabQuizzes, TabConferences, TabModules:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t TabID) String() string {
	return string(t)
}
