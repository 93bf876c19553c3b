package driving

import "context"

// SyncScheduler decides when a sync executes and under what device
// constraints, without duplicating runs.
type SyncScheduler interface {
	// RequestSync applies the scheduling decision tree for an on-demand
	// sync of the given courses.
	RequestSync(ctx context.Context, courseIDs []int64) error

	// ScheduleWork upserts the recurring job in place according to the
	// configured frequency and network constraint.
	ScheduleWork(ctx context.Context) error

	// CancelWork cancels all scheduled work and any running workers.
	CancelWork(ctx context.Context) error

	// UpdateWork rewrites the recurring job definition in place without
	// losing its identity.
	UpdateWork(ctx context.Context) error

	// CancelRunningWorkers cooperatively cancels the in-flight run, if any.
	CancelRunningWorkers()

	// ScheduleWorkAfterLogin schedules the recurring job only if auto-sync
	// is enabled and nothing is already scheduled.
	ScheduleWorkAfterLogin(ctx context.Context) error

	// Start runs the scheduler loop until ctx is done or Stop is called.
	Start(ctx context.Context) error

	// Stop shuts the loop down, waiting for running work to finish.
	Stop() error
}
