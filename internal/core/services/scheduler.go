package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
	"github.com/classtow/classtow-cli/internal/core/ports/driving"
	"github.com/classtow/classtow-cli/internal/logger"
)

// Ensure SyncScheduler implements the interface.
var _ driving.SyncScheduler = (*SyncScheduler)(nil)

// schedulerTick is how often the loop checks for due work.
const schedulerTick = time.Minute

// SyncScheduler owns the persisted background work definitions and the
// loop that executes them. At most one sync run executes at a time; a new
// request restarts rather than doubles up.
type SyncScheduler struct {
	store      driven.SchedulerStore
	settings   driven.SettingsStore
	selections driven.SelectionStore
	device     driven.DeviceMonitor
	runner     driving.SyncRunner

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	runMu     sync.Mutex
	runCancel context.CancelFunc
}

// NewSyncScheduler creates a new scheduler.
func NewSyncScheduler(
	store driven.SchedulerStore,
	settings driven.SettingsStore,
	selections driven.SelectionStore,
	device driven.DeviceMonitor,
	runner driving.SyncRunner,
) *SyncScheduler {
	return &SyncScheduler{
		store:      store,
		settings:   settings,
		selections: selections,
		device:     device,
		runner:     runner,
	}
}

// RequestSync applies the scheduling decision for an on-demand sync.
func (s *SyncScheduler) RequestSync(ctx context.Context, courseIDs []int64) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	recurring, err := s.store.GetWork(ctx, domain.WorkIDRecurring)
	if err != nil {
		return fmt.Errorf("load recurring work: %w", err)
	}

	// 1. A running recurring worker is restarted in place, never doubled
	if recurring != nil && s.workerActive() {
		logger.Info("Sync already running, restarting")
		s.CancelRunningWorkers()
		recurring.NextRun = time.Now()
		if err := s.store.SaveWork(ctx, recurring); err != nil {
			return fmt.Errorf("reschedule recurring work: %w", err)
		}
		return nil
	}

	// 2. A pending one-shot, or auto-sync disabled, means run once now
	pending, err := s.pendingOneShot(ctx)
	if err != nil {
		return err
	}
	if pending || !settings.AutoSync {
		if recurring != nil && !settings.AutoSync {
			// Auto-sync was switched off since the recurring job was
			// scheduled; the stale definition goes away.
			if err := s.store.DeleteWork(ctx, recurring.ID); err != nil {
				return fmt.Errorf("delete stale recurring work: %w", err)
			}
		}
		work := &domain.ScheduledWork{
			ID:        uuid.NewString(),
			Kind:      domain.WorkOneShot,
			CourseIDs: courseIDs,
			WifiOnly:  settings.WifiOnly,
			NextRun:   time.Now(),
		}
		if err := s.store.SaveWork(ctx, work); err != nil {
			return fmt.Errorf("save one-shot work: %w", err)
		}
		return s.executeWork(ctx, work)
	}

	// 3. Otherwise the recurring job is upserted in place, due immediately
	return s.upsertRecurring(ctx, settings, time.Now())
}

// ScheduleWork upserts the recurring job according to the current settings.
// With auto-sync disabled it cancels instead.
func (s *SyncScheduler) ScheduleWork(ctx context.Context) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !settings.AutoSync {
		return s.CancelWork(ctx)
	}
	return s.upsertRecurring(ctx, settings, time.Now().Add(settings.Frequency.Interval()))
}

// CancelWork cancels all scheduled work and any running worker.
func (s *SyncScheduler) CancelWork(ctx context.Context) error {
	s.CancelRunningWorkers()
	work, err := s.store.ListWork(ctx)
	if err != nil {
		return fmt.Errorf("list work: %w", err)
	}
	for _, w := range work {
		if err := s.store.DeleteWork(ctx, w.ID); err != nil {
			return fmt.Errorf("delete work %s: %w", w.ID, err)
		}
	}
	return nil
}

// UpdateWork rewrites the recurring job definition in place, preserving its
// identity, after a settings change.
func (s *SyncScheduler) UpdateWork(ctx context.Context) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	recurring, err := s.store.GetWork(ctx, domain.WorkIDRecurring)
	if err != nil {
		return fmt.Errorf("load recurring work: %w", err)
	}
	if recurring == nil {
		return domain.ErrNotScheduled
	}
	if !settings.AutoSync {
		return s.CancelWork(ctx)
	}

	recurring.Interval = settings.Frequency.Interval()
	recurring.WifiOnly = settings.WifiOnly
	if recurring.LastRun.IsZero() {
		recurring.NextRun = time.Now().Add(recurring.Interval)
	} else {
		recurring.NextRun = recurring.LastRun.Add(recurring.Interval)
	}
	if err := s.store.SaveWork(ctx, recurring); err != nil {
		return fmt.Errorf("save recurring work: %w", err)
	}
	logger.Debug("Recurring sync updated: every %s, wifi-only %t", recurring.Interval, recurring.WifiOnly)
	return nil
}

// CancelRunningWorkers cooperatively cancels the in-flight run, if any.
func (s *SyncScheduler) CancelRunningWorkers() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.runCancel != nil {
		s.runCancel()
	}
}

// ScheduleWorkAfterLogin schedules the recurring job only when auto-sync is
// enabled and nothing is scheduled yet.
func (s *SyncScheduler) ScheduleWorkAfterLogin(ctx context.Context) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !settings.AutoSync {
		return nil
	}
	recurring, err := s.store.GetWork(ctx, domain.WorkIDRecurring)
	if err != nil {
		return fmt.Errorf("load recurring work: %w", err)
	}
	if recurring != nil {
		return nil
	}
	return s.upsertRecurring(ctx, settings, time.Now().Add(settings.Frequency.Interval()))
}

// Start runs the scheduler loop. It blocks until ctx is done or Stop is
// called.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.checkDueWork(ctx)

	ticker := time.NewTicker(schedulerTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkDueWork(ctx)
		}
	}
}

// Stop shuts the loop down and waits for running work to finish.
func (s *SyncScheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// upsertRecurring writes the single recurring work row, creating or
// replacing it under its fixed identity.
func (s *SyncScheduler) upsertRecurring(ctx context.Context, settings domain.SyncSettings, nextRun time.Time) error {
	work := &domain.ScheduledWork{
		ID:       domain.WorkIDRecurring,
		Kind:     domain.WorkRecurring,
		Interval: settings.Frequency.Interval(),
		WifiOnly: settings.WifiOnly,
		NextRun:  nextRun,
	}
	if existing, err := s.store.GetWork(ctx, domain.WorkIDRecurring); err == nil && existing != nil {
		work.LastRun = existing.LastRun
	}
	if err := s.store.SaveWork(ctx, work); err != nil {
		return fmt.Errorf("save recurring work: %w", err)
	}
	logger.Debug("Recurring sync scheduled: every %s, next %s", work.Interval, work.NextRun.Format(time.RFC3339))
	return nil
}

func (s *SyncScheduler) pendingOneShot(ctx context.Context) (bool, error) {
	work, err := s.store.ListWork(ctx)
	if err != nil {
		return false, fmt.Errorf("list work: %w", err)
	}
	for _, w := range work {
		if w.Kind == domain.WorkOneShot {
			return true, nil
		}
	}
	return false, nil
}

// checkDueWork runs every due work item whose device constraints hold.
func (s *SyncScheduler) checkDueWork(ctx context.Context) {
	work, err := s.store.ListWork(ctx)
	if err != nil {
		logger.Warn("Scheduler failed to list work: %v", err)
		return
	}

	now := time.Now()
	for i := range work {
		w := work[i]
		if !w.Due(now) {
			continue
		}
		if !s.constraintsMet(&w) {
			logger.Debug("Work %s due but device constraints not met", w.ID)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.executeWork(ctx, &w); err != nil {
				logger.Warn("Scheduled sync %s failed: %v", w.ID, err)
			}
		}()
	}
}

// constraintsMet checks connectivity and battery before a run starts.
func (s *SyncScheduler) constraintsMet(work *domain.ScheduledWork) bool {
	if s.device == nil {
		return true
	}
	if !s.device.NetworkConnected() {
		return false
	}
	if work.WifiOnly && !s.device.NetworkUnmetered() {
		return false
	}
	return !s.device.BatteryLow()
}

// executeWork runs one work item to completion, updating its bookkeeping.
// One-shot work is deleted afterwards; recurring work advances its next
// run time.
func (s *SyncScheduler) executeWork(ctx context.Context, work *domain.ScheduledWork) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.runMu.Lock()
	if s.runCancel != nil {
		s.runMu.Unlock()
		cancel()
		return domain.ErrSyncInProgress
	}
	s.runCancel = cancel
	s.runMu.Unlock()

	defer func() {
		cancel()
		s.runMu.Lock()
		s.runCancel = nil
		s.runMu.Unlock()
	}()

	courseIDs := work.CourseIDs
	if len(courseIDs) == 0 {
		var err error
		courseIDs, err = s.selectedCourseIDs(ctx)
		if err != nil {
			return err
		}
	}

	logger.Info("Starting sync run %s (%d courses)", work.ID, len(courseIDs))
	runErr := s.runner.RunSync(runCtx, courseIDs)

	work.LastRun = time.Now()
	work.LastError = ""
	if runErr != nil {
		work.LastError = runErr.Error()
	}

	if work.Kind == domain.WorkOneShot {
		if err := s.store.DeleteWork(ctx, work.ID); err != nil {
			logger.Warn("Failed to delete one-shot work %s: %v", work.ID, err)
		}
	} else {
		work.NextRun = work.LastRun.Add(work.Interval)
		if err := s.store.SaveWork(ctx, work); err != nil {
			logger.Warn("Failed to save work %s: %v", work.ID, err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("%w: %w", domain.ErrSyncStopped, runErr)
		}
		return runErr
	}
	return nil
}

func (s *SyncScheduler) workerActive() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.runCancel != nil
}

func (s *SyncScheduler) selectedCourseIDs(ctx context.Context) ([]int64, error) {
	selections, err := s.selections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	ids := make([]int64, 0, len(selections))
	for _, sel := range selections {
		if sel.AnyTabSelected(domain.AllTabs()...) || sel.FullFileSync || len(sel.FileIDs) > 0 {
			ids = append(ids, sel.CourseID)
		}
	}
	return ids, nil
}
