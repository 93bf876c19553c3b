package lmsapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtow/classtow-cli/internal/core/domain"
)

func TestGetCourse_MergesTabs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"id":1,"name":"Biology 101","course_code":"BIO-101",
			"default_view":"wiki","syllabus_body":"<p>welcome</p>"}`)
	})
	mux.HandleFunc("/api/v1/courses/1/tabs", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"id":"pages","label":"Pages"},{"id":"assignments","label":"Assignments"}]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := New(server.URL, "secret-token")
	course, err := client.GetCourse(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "Biology 101", course.Name)
	assert.Equal(t, domain.HomeViewWiki, course.HomeView)
	assert.True(t, course.HasTab(domain.TabPages))
	assert.Equal(t, "Assignments", course.TabLabel(domain.TabAssignments))
}

func TestListPages_Depaginates(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/1/pages", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"page_id":11,"url":"week-2","title":"Week 2"}]`)
			return
		}
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		w.Header().Set("Link",
			fmt.Sprintf(`<%s/api/v1/courses/1/pages?page=2>; rel="next", <%s/api/v1/courses/1/pages>; rel="first"`,
				server.URL, server.URL))
		fmt.Fprint(w, `[{"page_id":10,"url":"week-1","title":"Week 1","body":"<p>intro</p>"}]`)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := New(server.URL, "t")
	pages, err := client.ListPages(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, pages, 2)
	assert.Equal(t, "week-1", pages[0].URL)
	assert.Equal(t, "week-2", pages[1].URL)
}

func TestGetCourseFile_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := New(server.URL, "t")
	_, err := client.GetCourseFile(context.Background(), 1, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAssignmentGroups_CarriesQuizIDs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/1/assignment_groups", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "assignments", r.URL.Query().Get("include[]"))
		fmt.Fprint(w, `[{"id":30,"name":"Homework","assignments":[
			{"id":300,"course_id":1,"name":"Essay","points_possible":10},
			{"id":301,"course_id":1,"name":"Pop quiz","quiz_id":20,"due_at":"2026-03-01T12:00:00Z"}
		]}]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := New(server.URL, "t")
	groups, err := client.ListAssignmentGroups(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, groups, 1)
	require.Len(t, groups[0].Assignments, 2)
	assert.Zero(t, groups[0].Assignments[0].QuizID)
	assert.Equal(t, int64(20), groups[0].Assignments[1].QuizID)
	assert.Equal(t, 2026, groups[0].Assignments[1].DueAt.Year())
}

func TestListConferences_UnwrapsEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/1/conferences", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"conferences":[{"id":70,"title":"Office hours","join_url":"https://conf/70"}]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := New(server.URL, "t")
	conferences, err := client.ListConferences(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, conferences, 1)
	assert.Equal(t, "Office hours", conferences[0].Title)
}

func TestListFilesAndFolders_MergesBothListings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/1/folders", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"id":1,"parent_folder_id":0,"name":"course files"}]`)
	})
	mux.HandleFunc("/api/v1/courses/1/files", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"id":60,"folder_id":1,"display_name":"syllabus.pdf",
			"url":"https://lms/files/60/download","size":1024,"content-type":"application/pdf"}]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := New(server.URL, "t")
	entries, err := client.ListFilesAndFolders(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsFolder)
	assert.False(t, entries[1].IsFolder)
	assert.Equal(t, int64(1), entries[1].FolderID)
	assert.Equal(t, "application/pdf", entries[1].ContentType)
}

func TestGetCourseFeatures_PlainStringArray(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/1/features/enabled", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `["new_quizzes","offline_access"]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := New(server.URL, "t")
	features, err := client.GetCourseFeatures(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"new_quizzes", "offline_access"}, features)
}

func TestListDiscussions_AnnouncementsFlag(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/1/discussion_topics", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("only_announcements") == "1" {
			fmt.Fprint(w, `[{"id":41,"title":"Class cancelled"}]`)
			return
		}
		fmt.Fprint(w, `[{"id":40,"title":"Question thread","attachments":[
			{"id":60,"display_name":"rubric.pdf","url":"https://lms/files/60/download","size":10}
		]}]`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := New(server.URL, "t")

	discussions, err := client.ListDiscussions(context.Background(), 1, false)
	require.NoError(t, err)
	require.Len(t, discussions, 1)
	assert.False(t, discussions[0].Announcement)
	require.Len(t, discussions[0].Attachments, 1)
	assert.Equal(t, int64(1), discussions[0].Attachments[0].CourseID)

	announcements, err := client.ListDiscussions(context.Background(), 1, true)
	require.NoError(t, err)
	require.Len(t, announcements, 1)
	assert.True(t, announcements[0].Announcement)
}

func TestServerError_Surfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, "t")
	_, err := client.ListQuizzes(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 500")
}
