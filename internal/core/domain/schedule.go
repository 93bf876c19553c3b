package domain

import "time"

// WorkKind distinguishes the single recurring background job from one-shot
// immediate runs.
type WorkKind string

// Work kinds.
const (
	WorkRecurring WorkKind = "recurring"
	WorkOneShot   WorkKind = "oneshot"
)

// WorkIDRecurring is the unique identity of the recurring sync job.
// Scheduling it again updates the row in place instead of duplicating it.
const WorkIDRecurring = "content-sync"

// ScheduledWork is a persisted background work definition.
type ScheduledWork struct {
	ID        string
	Kind      WorkKind
	CourseIDs []int64
	Interval  time.Duration
	WifiOnly  bool
	NextRun   time.Time
	LastRun   time.Time
	LastError string
}

// Due returns true if the work should run at the given time.
func (w *ScheduledWork) Due(now time.Time) bool {
	return !w.NextRun.IsZero() && !w.NextRun.After(now)
}
