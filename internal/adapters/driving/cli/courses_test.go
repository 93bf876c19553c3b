package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

// mockSelectionStore implements driven.SelectionStore for testing.
type mockSelectionStore struct {
	selections map[int64]domain.CourseSyncSelection
}

func newMockSelectionStore() *mockSelectionStore {
	return &mockSelectionStore{selections: make(map[int64]domain.CourseSyncSelection)}
}

func (m *mockSelectionStore) Save(_ context.Context, selection domain.CourseSyncSelection) error {
	m.selections[selection.CourseID] = selection
	return nil
}

func (m *mockSelectionStore) Find(_ context.Context, courseID int64) (*domain.CourseSyncSelection, error) {
	selection, ok := m.selections[courseID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &selection, nil
}

func (m *mockSelectionStore) List(_ context.Context) ([]domain.CourseSyncSelection, error) {
	out := make([]domain.CourseSyncSelection, 0, len(m.selections))
	for _, s := range m.selections {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSelectionStore) Delete(_ context.Context, courseID int64) error {
	delete(m.selections, courseID)
	return nil
}

// mockContentAPI stubs the one API call the courses commands make.
type mockContentAPI struct {
	driven.ContentAPI

	course *domain.Course
	err    error
}

func (m *mockContentAPI) GetCourse(_ context.Context, _ int64) (*domain.Course, error) {
	return m.course, m.err
}

func setupCoursesTest(store *mockSelectionStore, api *mockContentAPI) func() {
	oldStore := selectionStore
	oldAPI := contentAPI
	selectionStore = store
	contentAPI = api
	coursesSelectTabs = ""
	coursesSelectFiles = ""
	return func() {
		selectionStore = oldStore
		contentAPI = oldAPI
		coursesSelectTabs = ""
		coursesSelectFiles = ""
	}
}

func testCourse() *domain.Course {
	return &domain.Course{
		ID:   101,
		Name: "Intro to Biology",
		Tabs: []domain.CourseTab{
			{ID: domain.TabPages, Label: "Pages"},
			{ID: domain.TabAssignments, Label: "Assignments"},
			{ID: domain.TabModules, Label: "Modules"},
			{ID: "external_tool", Label: "Some Plugin"},
		},
	}
}

func TestCoursesList_Empty(t *testing.T) {
	cleanup := setupCoursesTest(newMockSelectionStore(), &mockContentAPI{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"courses", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No courses selected")
}

func TestCoursesSelect_SelectsEveryExposedTab(t *testing.T) {
	store := newMockSelectionStore()
	cleanup := setupCoursesTest(store, &mockContentAPI{course: testCourse()})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"courses", "select", "101"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `Course "Intro to Biology" selected`)

	selection, ok := store.selections[101]
	require.True(t, ok)
	// The unrecognised external tool tab is not syncable
	assert.Len(t, selection.Tabs, 3)
	assert.True(t, selection.TabSelected(domain.TabPages))
	assert.True(t, selection.FullFileSync)
}

func TestCoursesSelect_TabSubset(t *testing.T) {
	store := newMockSelectionStore()
	cleanup := setupCoursesTest(store, &mockContentAPI{course: testCourse()})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"courses", "select", "101", "--tabs", "pages,modules", "--files", "7,9"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	selection := store.selections[101]
	assert.Len(t, selection.Tabs, 2)
	assert.False(t, selection.TabSelected(domain.TabAssignments))
	assert.False(t, selection.FullFileSync)
	assert.Equal(t, []int64{7, 9}, selection.FileIDs)
}

func TestCoursesSelect_UnknownTab(t *testing.T) {
	store := newMockSelectionStore()
	cleanup := setupCoursesTest(store, &mockContentAPI{course: testCourse()})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"courses", "select", "101", "--tabs", "gradebook"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.ErrorContains(t, err, "unknown tab")
	assert.Empty(t, store.selections)
}

func TestCoursesSelect_UnexposedTab(t *testing.T) {
	store := newMockSelectionStore()
	cleanup := setupCoursesTest(store, &mockContentAPI{course: testCourse()})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"courses", "select", "101", "--tabs", "quizzes"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.ErrorContains(t, err, "does not expose")
}

func TestCoursesList_ShowsSelection(t *testing.T) {
	store := newMockSelectionStore()
	store.selections[101] = domain.CourseSyncSelection{
		CourseID:   101,
		CourseName: "Intro to Biology",
		Tabs: map[domain.TabID]bool{
			domain.TabPages:   true,
			domain.TabModules: true,
		},
		FullFileSync: true,
	}
	cleanup := setupCoursesTest(store, &mockContentAPI{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"courses", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "101  Intro to Biology")
	assert.Contains(t, buf.String(), "tabs: pages, modules")
	assert.Contains(t, buf.String(), "files: all")
}

func TestCoursesRemove_DeletesSelection(t *testing.T) {
	store := newMockSelectionStore()
	store.selections[101] = domain.CourseSyncSelection{CourseID: 101}
	cleanup := setupCoursesTest(store, &mockContentAPI{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"courses", "remove", "101"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Empty(t, store.selections)
	assert.Contains(t, buf.String(), "removed from sync")
}
