package services

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtow/classtow-cli/internal/adapters/driven/storage/memory"
	"github.com/classtow/classtow-cli/internal/core/domain"
)

// schedMockRunner implements driving.SyncRunner, recording runs. With
// block set, RunSync waits for context cancellation.
type schedMockRunner struct {
	mu    stdsync.Mutex
	runs  [][]int64
	err   error
	block bool
}

func (r *schedMockRunner) RunSync(ctx context.Context, courseIDs []int64) error {
	r.mu.Lock()
	r.runs = append(r.runs, append([]int64(nil), courseIDs...))
	block := r.block
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return r.err
}

func (r *schedMockRunner) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

// schedMockDevice implements driven.DeviceMonitor.
type schedMockDevice struct {
	connected  bool
	unmetered  bool
	batteryLow bool
}

func (d *schedMockDevice) NetworkConnected() bool { return d.connected }
func (d *schedMockDevice) NetworkUnmetered() bool { return d.unmetered }
func (d *schedMockDevice) BatteryLow() bool       { return d.batteryLow }

type schedFixture struct {
	store      *memory.SchedulerStore
	settings   *memory.SettingsStore
	selections *memory.SelectionStore
	device     *schedMockDevice
	runner     *schedMockRunner
	scheduler  *SyncScheduler
}

func newSchedFixture(t *testing.T) *schedFixture {
	t.Helper()
	f := &schedFixture{
		store:      memory.NewSchedulerStore(),
		settings:   memory.NewSettingsStore(),
		selections: memory.NewSelectionStore(),
		device:     &schedMockDevice{connected: true, unmetered: true},
		runner:     &schedMockRunner{},
	}
	f.scheduler = NewSyncScheduler(f.store, f.settings, f.selections, f.device, f.runner)
	return f
}

func (f *schedFixture) saveSettings(t *testing.T, settings domain.SyncSettings) {
	t.Helper()
	require.NoError(t, f.settings.Save(context.Background(), settings))
}

func TestRequestSync_AutoSyncEnabledSchedulesRecurring(t *testing.T) {
	f := newSchedFixture(t)

	err := f.scheduler.RequestSync(context.Background(), []int64{1, 2})
	require.NoError(t, err)

	work, err := f.store.GetWork(context.Background(), domain.WorkIDRecurring)
	require.NoError(t, err)
	require.NotNil(t, work)
	assert.Equal(t, domain.WorkRecurring, work.Kind)
	assert.True(t, work.Due(time.Now().Add(time.Second)), "requested sync is due immediately")
	assert.Zero(t, f.runner.runCount(), "the loop executes due work, not the request itself")
}

func TestRequestSync_AutoSyncDisabledRunsOnceNow(t *testing.T) {
	f := newSchedFixture(t)
	f.saveSettings(t, domain.SyncSettings{AutoSync: false, Frequency: domain.FrequencyDaily})

	err := f.scheduler.RequestSync(context.Background(), []int64{5})
	require.NoError(t, err)

	require.Equal(t, 1, f.runner.runCount())
	assert.Equal(t, []int64{5}, f.runner.runs[0])

	// The one-shot definition is gone after the run
	work, err := f.store.ListWork(context.Background())
	require.NoError(t, err)
	assert.Empty(t, work)
}

func TestRequestSync_StaleRecurringRemovedWhenAutoSyncOff(t *testing.T) {
	f := newSchedFixture(t)
	require.NoError(t, f.scheduler.ScheduleWork(context.Background()))

	f.saveSettings(t, domain.SyncSettings{AutoSync: false, Frequency: domain.FrequencyDaily})
	require.NoError(t, f.scheduler.RequestSync(context.Background(), []int64{1}))

	recurring, err := f.store.GetWork(context.Background(), domain.WorkIDRecurring)
	require.NoError(t, err)
	assert.Nil(t, recurring)
	assert.Equal(t, 1, f.runner.runCount())
}

func TestRequestSync_RestartsRunningWorker(t *testing.T) {
	f := newSchedFixture(t)
	f.saveSettings(t, domain.SyncSettings{AutoSync: false, Frequency: domain.FrequencyDaily})
	f.runner.block = true

	// A blocked run occupies the single worker slot
	done := make(chan error, 1)
	go func() {
		done <- f.scheduler.RequestSync(context.Background(), []int64{1})
	}()
	require.Eventually(t, func() bool { return f.runner.runCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	// A recurring definition exists when the next request arrives
	require.NoError(t, f.store.SaveWork(context.Background(), &domain.ScheduledWork{
		ID:       domain.WorkIDRecurring,
		Kind:     domain.WorkRecurring,
		Interval: 24 * time.Hour,
		NextRun:  time.Now().Add(24 * time.Hour),
	}))

	err := f.scheduler.RequestSync(context.Background(), []int64{1})
	require.NoError(t, err)

	// The blocked worker was cancelled
	select {
	case blockedErr := <-done:
		assert.ErrorIs(t, blockedErr, domain.ErrSyncStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("running worker was not cancelled")
	}

	// And the recurring job became due immediately
	recurring, err := f.store.GetWork(context.Background(), domain.WorkIDRecurring)
	require.NoError(t, err)
	require.NotNil(t, recurring)
	assert.True(t, recurring.Due(time.Now().Add(time.Second)))
}

func TestScheduleWork_DisabledCancelsInstead(t *testing.T) {
	f := newSchedFixture(t)
	require.NoError(t, f.scheduler.ScheduleWork(context.Background()))

	f.saveSettings(t, domain.SyncSettings{AutoSync: false, Frequency: domain.FrequencyDaily})
	require.NoError(t, f.scheduler.ScheduleWork(context.Background()))

	work, err := f.store.ListWork(context.Background())
	require.NoError(t, err)
	assert.Empty(t, work)
}

func TestScheduleWorkAfterLogin_Idempotent(t *testing.T) {
	f := newSchedFixture(t)

	require.NoError(t, f.scheduler.ScheduleWorkAfterLogin(context.Background()))
	first, err := f.store.GetWork(context.Background(), domain.WorkIDRecurring)
	require.NoError(t, err)
	require.NotNil(t, first)

	require.NoError(t, f.scheduler.ScheduleWorkAfterLogin(context.Background()))
	second, err := f.store.GetWork(context.Background(), domain.WorkIDRecurring)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.NextRun, second.NextRun, "existing schedule is left alone")
}

func TestUpdateWork_RewritesInPlace(t *testing.T) {
	f := newSchedFixture(t)
	require.NoError(t, f.scheduler.ScheduleWork(context.Background()))

	f.saveSettings(t, domain.SyncSettings{AutoSync: true, Frequency: domain.FrequencyWeekly, WifiOnly: false})
	require.NoError(t, f.scheduler.UpdateWork(context.Background()))

	work, err := f.store.GetWork(context.Background(), domain.WorkIDRecurring)
	require.NoError(t, err)
	require.NotNil(t, work)
	assert.Equal(t, domain.WorkIDRecurring, work.ID)
	assert.Equal(t, 7*24*time.Hour, work.Interval)
	assert.False(t, work.WifiOnly)
}

func TestUpdateWork_NothingScheduled(t *testing.T) {
	f := newSchedFixture(t)
	err := f.scheduler.UpdateWork(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotScheduled)
}

func TestSchedulerLoop_RunsDueWork(t *testing.T) {
	f := newSchedFixture(t)
	require.NoError(t, f.selections.Save(context.Background(), domain.CourseSyncSelection{
		CourseID: 7,
		Tabs:     map[domain.TabID]bool{domain.TabPages: true},
	}))
	require.NoError(t, f.store.SaveWork(context.Background(), &domain.ScheduledWork{
		ID:       domain.WorkIDRecurring,
		Kind:     domain.WorkRecurring,
		Interval: 24 * time.Hour,
		NextRun:  time.Now().Add(-time.Minute),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.scheduler.Start(ctx) }()
	defer func() { require.NoError(t, f.scheduler.Stop()) }()

	require.Eventually(t, func() bool { return f.runner.runCount() == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []int64{7}, f.runner.runs[0], "empty work resolves to selected courses")

	require.Eventually(t, func() bool {
		work, err := f.store.GetWork(context.Background(), domain.WorkIDRecurring)
		return err == nil && work != nil && work.NextRun.After(time.Now())
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerLoop_SkipsWhenConstraintsUnmet(t *testing.T) {
	f := newSchedFixture(t)
	f.device.unmetered = false
	require.NoError(t, f.store.SaveWork(context.Background(), &domain.ScheduledWork{
		ID:       domain.WorkIDRecurring,
		Kind:     domain.WorkRecurring,
		WifiOnly: true,
		Interval: 24 * time.Hour,
		NextRun:  time.Now().Add(-time.Minute),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.scheduler.Start(ctx) }()
	defer func() { require.NoError(t, f.scheduler.Stop()) }()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, f.runner.runCount(), "wifi-only work waits for an unmetered network")
}

func TestCancelWork_RemovesAllDefinitions(t *testing.T) {
	f := newSchedFixture(t)
	require.NoError(t, f.scheduler.ScheduleWork(context.Background()))

	require.NoError(t, f.scheduler.CancelWork(context.Background()))

	work, err := f.store.ListWork(context.Background())
	require.NoError(t, err)
	assert.Empty(t, work)
}
