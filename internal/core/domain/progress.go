package domain

// ProgressState is the lifecycle state of a sync unit (course, tab, file,
// or the whole aggregate).
type ProgressState string

// Progress states. COMPLETED and ERROR are terminal: no further transition
// occurs for that unit within a run.
const (
	ProgressStarting   ProgressState = "starting"
	ProgressInProgress ProgressState = "in_progress"
	ProgressCompleted  ProgressState = "completed"
	ProgressError      ProgressState = "error"
)

// IsTerminal returns true for COMPLETED and ERROR.
func (s ProgressState) IsTerminal() bool {
	return s == ProgressCompleted || s == ProgressError
}

// TabProgress tracks one content tab within a course sync run.
type TabProgress struct {
	Label string
	State ProgressState
}

// CourseSyncProgress is the live progress record of one course's sync run.
// One record per course; superseded, not deleted, by the next run.
type CourseSyncProgress struct {
	CourseID   int64
	CourseName string
	State      ProgressState
	Tabs       map[TabID]TabProgress
}

// TabsInState reports whether any tab entry is in the given state.
func (p *CourseSyncProgress) AnyTabInState(state ProgressState) bool {
	for _, tab := range p.Tabs {
		if tab.State == state {
			return true
		}
	}
	return false
}

// FileSyncProgress is the live progress record of one file transfer.
// Negative FileIDs are synthetic keys for externally-hosted resources.
type FileSyncProgress struct {
	FileID     int64
	CourseID   int64
	FileName   string
	TotalBytes int64
	Percent    int
	State      ProgressState
}

// TabContentWeight is the byte weight one content tab contributes to
// aggregate progress totals. Tab fetches have no meaningful byte size, so
// each tab counts as a fixed amount, fully credited once COMPLETED.
const TabContentWeight int64 = 100 * 1000

// AggregateProgress is the single presentable fold of all course and file
// progress, recomputed on every underlying change.
type AggregateProgress struct {
	Title      string
	State      ProgressState
	Percent    int
	TotalBytes int64
	ItemCount  int
}
