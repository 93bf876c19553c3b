package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/classtow/classtow-cli/internal/core/domain"
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Manage which courses sync",
	Long: `View and edit the per-course sync selections: which courses are
mirrored, which content tabs they sync, and which files download.`,
	RunE: runCoursesList,
}

var coursesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses selected for sync",
	RunE:  runCoursesList,
}

var coursesSelectCmd = &cobra.Command{
	Use:   "select [course-id]",
	Short: "Select a course for sync",
	Long: `Fetches the course from the platform and selects it for sync.

By default every content tab the course exposes is synced and every file
downloads. Use --tabs to sync a subset of tabs and --files to download an
explicit list of file IDs instead of everything.`,
	Args: cobra.ExactArgs(1),
	RunE: runCoursesSelect,
}

var coursesRemoveCmd = &cobra.Command{
	Use:   "remove [course-id]",
	Short: "Deselect a course",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoursesRemove,
}

// Flags for courses select.
var (
	coursesSelectTabs  string
	coursesSelectFiles string
)

func init() {
	coursesSelectCmd.Flags().StringVar(&coursesSelectTabs, "tabs", "",
		"comma-separated tabs to sync (default: every exposed tab)")
	coursesSelectCmd.Flags().StringVar(&coursesSelectFiles, "files", "",
		"comma-separated file IDs to download (default: every file)")

	coursesCmd.AddCommand(coursesListCmd)
	coursesCmd.AddCommand(coursesSelectCmd)
	coursesCmd.AddCommand(coursesRemoveCmd)
	rootCmd.AddCommand(coursesCmd)
}

func runCoursesList(cmd *cobra.Command, _ []string) error {
	if selectionStore == nil {
		return errors.New("selection store not configured")
	}

	selections, err := selectionStore.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing selections: %w", err)
	}

	if len(selections) == 0 {
		cmd.Println("No courses selected. Run 'classtow courses select <course-id>' to add one.")
		return nil
	}

	for _, s := range selections {
		cmd.Printf("%d  %s\n", s.CourseID, s.CourseName)
		cmd.Printf("   tabs: %s\n", strings.Join(selectedTabNames(&s), ", "))
		if s.FullFileSync {
			cmd.Println("   files: all")
		} else {
			cmd.Printf("   files: %d selected\n", len(s.FileIDs))
		}
	}
	return nil
}

func runCoursesSelect(cmd *cobra.Command, args []string) error {
	if contentAPI == nil || selectionStore == nil {
		return errors.New("sync service not configured")
	}

	courseID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid course ID %q", args[0])
	}

	ctx := cmd.Context()
	course, err := contentAPI.GetCourse(ctx, courseID)
	if err != nil {
		return fmt.Errorf("fetching course %d: %w", courseID, err)
	}

	tabs, err := tabSelection(course)
	if err != nil {
		return err
	}

	fileIDs, err := parseInt64List(coursesSelectFiles)
	if err != nil {
		return err
	}

	selection := domain.CourseSyncSelection{
		CourseID:     courseID,
		CourseName:   course.Name,
		Tabs:         tabs,
		FullFileSync: len(fileIDs) == 0,
		FileIDs:      fileIDs,
		UpdatedAt:    time.Now(),
	}
	if err := selectionStore.Save(ctx, selection); err != nil {
		return fmt.Errorf("saving selection: %w", err)
	}

	cmd.Printf("Course %q selected for sync (%d tabs).\n", course.Name, len(tabs))
	return nil
}

func runCoursesRemove(cmd *cobra.Command, args []string) error {
	if selectionStore == nil {
		return errors.New("selection store not configured")
	}

	courseID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid course ID %q", args[0])
	}

	if err := selectionStore.Delete(cmd.Context(), courseID); err != nil {
		return fmt.Errorf("removing selection: %w", err)
	}
	cmd.Printf("Course %d removed from sync.\n", courseID)
	return nil
}

// tabSelection resolves the --tabs flag against the tabs the course
// actually exposes. An empty flag selects every exposed tab.
func tabSelection(course *domain.Course) (map[domain.TabID]bool, error) {
	tabs := make(map[domain.TabID]bool)

	if coursesSelectTabs == "" {
		for _, t := range course.Tabs {
			if t.ID.IsValid() {
				tabs[t.ID] = true
			}
		}
		return tabs, nil
	}

	for _, raw := range strings.Split(coursesSelectTabs, ",") {
		id := domain.TabID(strings.TrimSpace(raw))
		if !id.IsValid() {
			return nil, fmt.Errorf("unknown tab %q", raw)
		}
		if !course.HasTab(id) {
			return nil, fmt.Errorf("course does not expose tab %q", id)
		}
		tabs[id] = true
	}
	return tabs, nil
}

// selectedTabNames returns the selected tab names in the canonical order.
func selectedTabNames(s *domain.CourseSyncSelection) []string {
	var names []string
	for _, id := range domain.AllTabs() {
		if s.TabSelected(id) {
			names = append(names, id.String())
		}
	}
	return names
}

func parseInt64List(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid file ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
