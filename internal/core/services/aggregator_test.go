package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtow/classtow-cli/internal/adapters/driven/storage/memory"
	"github.com/classtow/classtow-cli/internal/core/domain"
)

func courseProgress(id int64, state domain.ProgressState, tabStates ...domain.ProgressState) domain.CourseSyncProgress {
	tabs := make(map[domain.TabID]domain.TabProgress)
	for i, ts := range tabStates {
		tabs[domain.AllTabs()[i]] = domain.TabProgress{Label: "tab", State: ts}
	}
	return domain.CourseSyncProgress{CourseID: id, CourseName: "Course", State: state, Tabs: tabs}
}

func TestComputeAggregate_EmptyIsNil(t *testing.T) {
	assert.Nil(t, computeAggregate(nil, nil))
}

func TestComputeAggregate_TabWeights(t *testing.T) {
	courses := []domain.CourseSyncProgress{
		courseProgress(1, domain.ProgressInProgress, domain.ProgressCompleted, domain.ProgressInProgress),
	}
	agg := computeAggregate(courses, nil)
	require.NotNil(t, agg)

	assert.Equal(t, 2*domain.TabContentWeight, agg.TotalBytes)
	assert.Equal(t, 50, agg.Percent, "one of two tabs completed")
	assert.Equal(t, domain.ProgressInProgress, agg.State)
}

func TestComputeAggregate_FilesWeightedByPercent(t *testing.T) {
	files := []domain.FileSyncProgress{
		{FileID: 1, TotalBytes: 1000, Percent: 50, State: domain.ProgressInProgress},
		{FileID: 2, TotalBytes: 1000, Percent: 100, State: domain.ProgressCompleted},
	}
	agg := computeAggregate(nil, files)
	require.NotNil(t, agg)

	assert.Equal(t, int64(2000), agg.TotalBytes)
	assert.Equal(t, 75, agg.Percent)
	assert.Equal(t, 2, agg.ItemCount)
}

func TestComputeAggregate_AllStarting(t *testing.T) {
	courses := []domain.CourseSyncProgress{
		courseProgress(1, domain.ProgressStarting, domain.ProgressStarting),
	}
	agg := computeAggregate(courses, nil)
	require.NotNil(t, agg)
	assert.Equal(t, domain.ProgressStarting, agg.State)
}

func TestComputeAggregate_MixedNotStarting(t *testing.T) {
	courses := []domain.CourseSyncProgress{
		courseProgress(1, domain.ProgressCompleted, domain.ProgressCompleted),
		courseProgress(2, domain.ProgressStarting, domain.ProgressStarting),
	}
	agg := computeAggregate(courses, nil)
	require.NotNil(t, agg)
	assert.Equal(t, domain.ProgressInProgress, agg.State,
		"a partially advanced run is in progress, never back to starting")
}

func TestComputeAggregate_AllTerminalCompleted(t *testing.T) {
	courses := []domain.CourseSyncProgress{
		courseProgress(1, domain.ProgressCompleted, domain.ProgressCompleted),
	}
	files := []domain.FileSyncProgress{
		{FileID: 1, TotalBytes: 10, Percent: 100, State: domain.ProgressCompleted},
	}
	agg := computeAggregate(courses, files)
	require.NotNil(t, agg)
	assert.Equal(t, domain.ProgressCompleted, agg.State)
	assert.Equal(t, 100, agg.Percent)
}

func TestComputeAggregate_AnyErrorAfterAllTerminal(t *testing.T) {
	courses := []domain.CourseSyncProgress{
		courseProgress(1, domain.ProgressCompleted, domain.ProgressCompleted),
		courseProgress(2, domain.ProgressError, domain.ProgressError),
	}
	agg := computeAggregate(courses, nil)
	require.NotNil(t, agg)
	assert.Equal(t, domain.ProgressError, agg.State)
}

func TestComputeAggregate_ErrorNotTerminalUntilAllSettled(t *testing.T) {
	courses := []domain.CourseSyncProgress{
		courseProgress(1, domain.ProgressError, domain.ProgressError),
		courseProgress(2, domain.ProgressInProgress, domain.ProgressInProgress),
	}
	agg := computeAggregate(courses, nil)
	require.NotNil(t, agg)
	assert.Equal(t, domain.ProgressInProgress, agg.State,
		"a failed course does not end the aggregate while another still runs")
}

func TestComputeAggregate_Title(t *testing.T) {
	one := computeAggregate([]domain.CourseSyncProgress{courseProgress(1, domain.ProgressStarting)}, nil)
	require.NotNil(t, one)
	assert.Equal(t, "Syncing 1 course", one.Title)

	two := computeAggregate([]domain.CourseSyncProgress{
		courseProgress(1, domain.ProgressStarting),
		courseProgress(2, domain.ProgressStarting),
	}, nil)
	require.NotNil(t, two)
	assert.Equal(t, "Syncing 2 courses", two.Title)
}

func TestProgressAggregator_RecomputesOnStoreWrites(t *testing.T) {
	courses := memory.NewCourseProgressStore()
	files := memory.NewFileProgressStore()
	agg := NewProgressAggregator(courses, files)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	agg.Start(ctx)

	assert.Nil(t, agg.Current(), "no output while both sources are empty")

	sub := agg.Subscribe(ctx)

	require.NoError(t, courses.Upsert(ctx, courseProgress(1, domain.ProgressInProgress,
		domain.ProgressCompleted, domain.ProgressInProgress)))

	select {
	case got := <-sub:
		assert.Equal(t, domain.ProgressInProgress, got.State)
	case <-time.After(2 * time.Second):
		t.Fatal("no aggregate delivered")
	}

	require.NoError(t, courses.Upsert(ctx, courseProgress(1, domain.ProgressCompleted,
		domain.ProgressCompleted, domain.ProgressCompleted)))

	require.Eventually(t, func() bool {
		current := agg.Current()
		return current != nil && current.State == domain.ProgressCompleted
	}, 2*time.Second, 10*time.Millisecond)
}
