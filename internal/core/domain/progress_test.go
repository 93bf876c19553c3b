package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressStateIsTerminal(t *testing.T) {
	assert.False(t, ProgressStarting.IsTerminal())
	assert.False(t, ProgressInProgress.IsTerminal())
	assert.True(t, ProgressCompleted.IsTerminal())
	assert.True(t, ProgressError.IsTerminal())
}

func TestAnyTabInState(t *testing.T) {
	p := CourseSyncProgress{
		Tabs: map[TabID]TabProgress{
			TabPages:       {Label: "Pages", State: ProgressCompleted},
			TabAssignments: {Label: "Assignments", State: ProgressError},
		},
	}

	assert.True(t, p.AnyTabInState(ProgressError))
	assert.True(t, p.AnyTabInState(ProgressCompleted))
	assert.False(t, p.AnyTabInState(ProgressInProgress))
}

func TestTabIDIsValid(t *testing.T) {
	for _, tab := range AllTabs() {
		assert.True(t, tab.IsValid(), tab)
	}
	assert.False(t, TabID("attendance").IsValid())
}

func TestSelectionHelpers(t *testing.T) {
	sel := CourseSyncSelection{
		CourseID: 1,
		Tabs:     map[TabID]bool{TabPages: true, TabGrades: true},
		FileIDs:  []int64{10, 11},
	}

	assert.True(t, sel.TabSelected(TabPages))
	assert.False(t, sel.TabSelected(TabModules))
	assert.True(t, sel.AnyTabSelected(TabAssignments, TabGrades))
	assert.False(t, sel.AnyTabSelected(TabAssignments, TabSyllabus))
	assert.True(t, sel.FileSelected(11))
	assert.False(t, sel.FileSelected(12))
}

func TestFrequencyInterval(t *testing.T) {
	assert.Equal(t, FrequencyDaily.Interval()*7, FrequencyWeekly.Interval())
	assert.True(t, FrequencyDaily.IsValid())
	assert.False(t, SyncFrequency("hourly").IsValid())
}
