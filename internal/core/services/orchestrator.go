package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
	"github.com/classtow/classtow-cli/internal/core/ports/driving"
	"github.com/classtow/classtow-cli/internal/htmlrewrite"
	"github.com/classtow/classtow-cli/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// OrchestratorDeps bundles the stores and engines a sync run touches.
type OrchestratorDeps struct {
	API            driven.ContentAPI
	Courses        driven.CourseStore
	Pages          driven.PageStore
	Assignments    driven.AssignmentStore
	Quizzes        driven.QuizStore
	Events         driven.EventStore
	Conferences    driven.ConferenceStore
	Discussions    driven.DiscussionStore
	Users          driven.UserStore
	FileTree       driven.FileTreeStore
	LocalFiles     driven.LocalFileStore
	Modules        driven.ModuleStore
	CourseProgress driven.CourseProgressStore
	Selections     driven.SelectionStore
	Files          driving.FileSyncEngine
	Rewriter       *htmlrewrite.Rewriter
}

// SyncOrchestrator drives multi-course content sync runs. Courses sync
// concurrently and independently; a failure in one course never affects a
// sibling. Within a course, content categories fetch sequentially while
// file downloads run alongside.
type SyncOrchestrator struct {
	deps OrchestratorDeps

	mu        sync.Mutex
	mediaIDs  []string
	seenMedia map[string]bool
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(deps OrchestratorDeps) *SyncOrchestrator {
	return &SyncOrchestrator{deps: deps}
}

// SyncCourses syncs the given courses to a terminal per-course state.
// videos scopes which discovered media references are worth reporting.
func (o *SyncOrchestrator) SyncCourses(ctx context.Context, courseIDs []int64, videos []domain.VideoMetadata) error {
	o.mu.Lock()
	o.mediaIDs = nil
	o.seenMedia = make(map[string]bool)
	o.mu.Unlock()

	knownMedia := make(map[string]bool, len(videos))
	for _, v := range videos {
		knownMedia[v.MediaID] = true
	}

	var wg sync.WaitGroup
	errs := make([]error, len(courseIDs))
	for i, courseID := range courseIDs {
		wg.Add(1)
		go func(i int, courseID int64) {
			defer wg.Done()
			if err := o.syncCourse(ctx, courseID, knownMedia); err != nil {
				logger.Warn("Course %d sync failed: %v", courseID, err)
				errs[i] = fmt.Errorf("course %d: %w", courseID, err)
			}
		}(i, courseID)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// MediaIDsToSync returns the media identifiers discovered while rewriting
// HTML bodies during the last run.
func (o *SyncOrchestrator) MediaIDsToSync() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.mediaIDs))
	copy(out, o.mediaIDs)
	return out
}

// syncCourse runs one course to a terminal progress state.
func (o *SyncOrchestrator) syncCourse(ctx context.Context, courseID int64, knownMedia map[string]bool) error {
	// 1. Load the selection; an unselected course is skipped entirely
	selection, err := o.deps.Selections.Find(ctx, courseID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Course %d has no sync selection, skipping", courseID)
			return nil
		}
		return fmt.Errorf("load selection: %w", err)
	}

	// 2. Fetch and persist course details. Failure here is fatal for the
	// course: nothing below can be attributed without them.
	course, err := o.fetchCourseDetails(ctx, courseID)
	if err != nil {
		o.upsertCourseProgress(ctx, domain.CourseSyncProgress{
			CourseID:   courseID,
			CourseName: selection.CourseName,
			State:      domain.ProgressError,
			Tabs:       map[domain.TabID]domain.TabProgress{},
		})
		return fmt.Errorf("fetch course: %w", err)
	}

	cs := &courseSync{
		o:          o,
		ctx:        ctx,
		course:     course,
		selection:  *selection,
		knownMedia: knownMedia,
		failedTabs: make(map[domain.TabID]bool),
	}

	// 3. Initialise progress over selected-and-available tabs
	cs.initProgress()
	o.upsertCourseProgress(ctx, cs.progress)

	// 4. Snapshot the remote file tree when any file sync is configured
	fileSyncConfigured := selection.FullFileSync || len(selection.FileIDs) > 0
	var treeErr error
	if fileSyncConfigured {
		treeErr = cs.snapshotFileTree()
	}

	// 5. Content categories and file downloads run side by side
	cs.progress.State = domain.ProgressInProgress
	o.upsertCourseProgress(ctx, cs.progress)

	var fileErr error
	var wg sync.WaitGroup
	if fileSyncConfigured && treeErr == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fileErr = o.deps.Files.SyncFiles(ctx, cs.selection)
		}()
	}
	cs.fetchContent()
	wg.Wait()

	// 6. Additional pass for files discovered only inside HTML bodies
	var additionalErr error
	if len(cs.fileIDs) > 0 || len(cs.externalURLs) > 0 {
		additionalErr = o.deps.Files.SyncAdditionalFiles(ctx, cs.selection, cs.fileIDs, cs.externalURLs)
	}

	// 7. Compute the terminal state
	cs.progress.State = domain.ProgressCompleted
	if len(cs.failedTabs) > 0 || treeErr != nil || fileErr != nil || additionalErr != nil {
		cs.progress.State = domain.ProgressError
	}
	o.upsertCourseProgress(ctx, cs.progress)

	if err := errors.Join(treeErr, fileErr, additionalErr); err != nil {
		return err
	}
	if len(cs.failedTabs) > 0 {
		return fmt.Errorf("%d content categories failed", len(cs.failedTabs))
	}
	logger.Info("Course %d synced", courseID)
	return nil
}

// fetchCourseDetails fetches the course record plus the sub-entities stored
// with it. Enrollment, settings and feature failures degrade the record
// instead of failing the course.
func (o *SyncOrchestrator) fetchCourseDetails(ctx context.Context, courseID int64) (*domain.Course, error) {
	course, err := o.deps.API.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if enrollments, err := o.deps.API.GetEnrollments(ctx, courseID, 0); err != nil {
		logger.Warn("Course %d enrollments unavailable: %v", courseID, err)
	} else {
		course.Enrollments = enrollments
	}
	if settings, err := o.deps.API.GetCourseSettings(ctx, courseID); err != nil {
		logger.Warn("Course %d settings unavailable: %v", courseID, err)
	} else {
		course.Settings = *settings
	}
	if features, err := o.deps.API.GetCourseFeatures(ctx, courseID); err != nil {
		logger.Warn("Course %d features unavailable: %v", courseID, err)
	} else {
		course.Features = features
	}

	if err := o.deps.Courses.SaveCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("save course: %w", err)
	}
	return course, nil
}

func (o *SyncOrchestrator) upsertCourseProgress(ctx context.Context, p domain.CourseSyncProgress) {
	if err := o.deps.CourseProgress.Upsert(ctx, p); err != nil {
		logger.Warn("Failed to record course progress for %d: %v", p.CourseID, err)
	}
}

func (o *SyncOrchestrator) addMediaID(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.seenMedia[id] {
		return
	}
	o.seenMedia[id] = true
	o.mediaIDs = append(o.mediaIDs, id)
}

// courseSync carries the per-course state of one run.
type courseSync struct {
	o          *SyncOrchestrator
	ctx        context.Context
	course     *domain.Course
	selection  domain.CourseSyncSelection
	progress   domain.CourseSyncProgress
	knownMedia map[string]bool

	fileIDs      []int64
	seenFiles    map[int64]bool
	externalURLs []string
	seenExternal map[string]bool
	failedTabs   map[domain.TabID]bool
}

// tabFetchEntry is one row of the closed content dispatch table. One fetch
// may cover several tabs: the assignments fetch also satisfies grades.
type tabFetchEntry struct {
	covers []domain.TabID
	fetch  func(cs *courseSync) error
	purge  func(cs *courseSync) error
}

// fetchTable returns the dispatch table in fetch order. Pages come first so
// the front-page fetch never races the listing that clears the page table;
// quizzes run before assignments and modules so their replace-all cannot
// wipe quiz rows upserted by the inline and module-item paths.
func fetchTable() []tabFetchEntry {
	return []tabFetchEntry{
		{
			covers: []domain.TabID{domain.TabPages},
			fetch:  (*courseSync).fetchPages,
			purge: func(cs *courseSync) error {
				return cs.o.deps.Pages.DeleteAllByCourse(cs.ctx, cs.course.ID)
			},
		},
		{
			covers: []domain.TabID{domain.TabQuizzes},
			fetch:  (*courseSync).fetchQuizzes,
			purge: func(cs *courseSync) error {
				return cs.o.deps.Quizzes.DeleteAllByCourse(cs.ctx, cs.course.ID)
			},
		},
		{
			covers: []domain.TabID{domain.TabAssignments, domain.TabGrades},
			fetch:  (*courseSync).fetchAssignments,
			purge: func(cs *courseSync) error {
				return cs.o.deps.Assignments.DeleteAllByCourse(cs.ctx, cs.course.ID)
			},
		},
		{
			covers: []domain.TabID{domain.TabSyllabus},
			fetch:  (*courseSync).fetchSyllabus,
			purge: func(cs *courseSync) error {
				return cs.o.deps.Events.DeleteAllByCourse(cs.ctx, cs.course.ID)
			},
		},
		{
			covers: []domain.TabID{domain.TabDiscussions},
			fetch:  (*courseSync).fetchDiscussions,
			purge: func(cs *courseSync) error {
				return cs.o.deps.Discussions.DeleteAllByCourse(cs.ctx, cs.course.ID, false)
			},
		},
		{
			covers: []domain.TabID{domain.TabAnnouncements},
			fetch:  (*courseSync).fetchAnnouncements,
			purge: func(cs *courseSync) error {
				return cs.o.deps.Discussions.DeleteAllByCourse(cs.ctx, cs.course.ID, true)
			},
		},
		{
			covers: []domain.TabID{domain.TabPeople},
			fetch:  (*courseSync).fetchPeople,
			purge: func(cs *courseSync) error {
				return cs.o.deps.Users.DeleteAllByCourse(cs.ctx, cs.course.ID)
			},
		},
		{
			covers: []domain.TabID{domain.TabConferences},
			fetch:  (*courseSync).fetchConferences,
			purge: func(cs *courseSync) error {
				return cs.o.deps.Conferences.DeleteAllByCourse(cs.ctx, cs.course.ID)
			},
		},
		{
			covers: []domain.TabID{domain.TabModules},
			fetch:  (*courseSync).fetchModules,
			purge: func(cs *courseSync) error {
				return cs.o.deps.Modules.DeleteAllByCourse(cs.ctx, cs.course.ID)
			},
		},
	}
}

// initProgress seeds the progress record over the intersection of selected
// and actually-available tabs.
func (cs *courseSync) initProgress() {
	tabs := make(map[domain.TabID]domain.TabProgress)
	for _, entry := range fetchTable() {
		for _, tab := range entry.covers {
			if cs.selection.TabSelected(tab) && cs.course.HasTab(tab) {
				tabs[tab] = domain.TabProgress{
					Label: cs.course.TabLabel(tab),
					State: domain.ProgressStarting,
				}
			}
		}
	}
	cs.progress = domain.CourseSyncProgress{
		CourseID:   cs.course.ID,
		CourseName: cs.course.Name,
		State:      domain.ProgressStarting,
		Tabs:       tabs,
	}
}

// fetchContent walks the dispatch table sequentially. Entries with no
// tracked tab purge their cached rows; a fetch failure marks every covered
// tab and moves on to the next entry.
func (cs *courseSync) fetchContent() {
	for _, entry := range fetchTable() {
		tracked := cs.trackedTabs(entry.covers)
		if len(tracked) == 0 {
			if err := entry.purge(cs); err != nil {
				logger.Warn("Course %d: purge of %v failed: %v", cs.course.ID, entry.covers, err)
			}
			continue
		}

		cs.setTabs(tracked, domain.ProgressInProgress)
		if err := entry.fetch(cs); err != nil {
			logger.Warn("Course %d: fetch of %v failed: %v", cs.course.ID, entry.covers, err)
			cs.setTabs(tracked, domain.ProgressError)
			for _, tab := range entry.covers {
				cs.failedTabs[tab] = true
			}
			continue
		}
		cs.setTabs(tracked, domain.ProgressCompleted)
	}
}

func (cs *courseSync) trackedTabs(covers []domain.TabID) []domain.TabID {
	var tracked []domain.TabID
	for _, tab := range covers {
		if _, ok := cs.progress.Tabs[tab]; ok {
			tracked = append(tracked, tab)
		}
	}
	return tracked
}

func (cs *courseSync) setTabs(tabs []domain.TabID, state domain.ProgressState) {
	for _, tab := range tabs {
		tp := cs.progress.Tabs[tab]
		tp.State = state
		cs.progress.Tabs[tab] = tp
	}
	cs.o.upsertCourseProgress(cs.ctx, cs.progress)
}

func (cs *courseSync) snapshotFileTree() error {
	entries, err := cs.o.deps.API.ListFilesAndFolders(cs.ctx, cs.course.ID)
	if err != nil {
		return fmt.Errorf("snapshot file tree: %w", err)
	}
	if err := cs.o.deps.FileTree.ReplaceAll(cs.ctx, cs.course.ID, entries); err != nil {
		return fmt.Errorf("store file tree: %w", err)
	}
	return nil
}

func (cs *courseSync) fetchPages() error {
	pages, err := cs.o.deps.API.ListPages(cs.ctx, cs.course.ID)
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}
	for i := range pages {
		pages[i].Body = cs.rewrite(pages[i].Body)
	}
	if err := cs.o.deps.Pages.ReplaceAll(cs.ctx, cs.course.ID, pages); err != nil {
		return fmt.Errorf("store pages: %w", err)
	}

	// The home page is written after the listing replaced the table,
	// otherwise the replace would drop it again.
	if cs.course.HomeView == domain.HomeViewWiki {
		front, err := cs.o.deps.API.GetFrontPage(cs.ctx, cs.course.ID)
		if err != nil {
			return fmt.Errorf("fetch front page: %w", err)
		}
		front.FrontPage = true
		front.Body = cs.rewrite(front.Body)
		if err := cs.o.deps.Pages.Upsert(cs.ctx, cs.course.ID, *front); err != nil {
			return fmt.Errorf("store front page: %w", err)
		}
	}
	return nil
}

func (cs *courseSync) fetchQuizzes() error {
	quizzes, err := cs.o.deps.API.ListQuizzes(cs.ctx, cs.course.ID)
	if err != nil {
		return fmt.Errorf("list quizzes: %w", err)
	}
	for i := range quizzes {
		quizzes[i].Description = cs.rewrite(quizzes[i].Description)
	}
	if err := cs.o.deps.Quizzes.ReplaceAll(cs.ctx, cs.course.ID, quizzes); err != nil {
		return fmt.Errorf("store quizzes: %w", err)
	}
	return nil
}

func (cs *courseSync) fetchAssignments() error {
	groups, err := cs.o.deps.API.ListAssignmentGroups(cs.ctx, cs.course.ID)
	if err != nil {
		return fmt.Errorf("list assignment groups: %w", err)
	}
	for gi := range groups {
		for ai := range groups[gi].Assignments {
			groups[gi].Assignments[ai].Description = cs.rewrite(groups[gi].Assignments[ai].Description)
		}
	}
	if err := cs.o.deps.Assignments.ReplaceAll(cs.ctx, cs.course.ID, groups); err != nil {
		return fmt.Errorf("store assignment groups: %w", err)
	}

	// Quiz assignments carry their quiz inline; those quizzes land in the
	// same store the quizzes tab fills.
	for _, group := range groups {
		for _, assignment := range group.Assignments {
			if assignment.QuizID == 0 {
				continue
			}
			if err := cs.upsertQuiz(assignment.QuizID); err != nil {
				return fmt.Errorf("inline quiz %d: %w", assignment.QuizID, err)
			}
		}
	}
	return nil
}

func (cs *courseSync) fetchSyllabus() error {
	events, err := cs.o.deps.API.ListCalendarEvents(cs.ctx, cs.course.ID, domain.ScheduleItemEvent)
	if err != nil {
		return fmt.Errorf("list calendar events: %w", err)
	}
	assignments, err := cs.o.deps.API.ListCalendarEvents(cs.ctx, cs.course.ID, domain.ScheduleItemAssignment)
	if err != nil {
		return fmt.Errorf("list assignment events: %w", err)
	}
	items := append(events, assignments...)
	if err := cs.o.deps.Events.ReplaceAll(cs.ctx, cs.course.ID, items); err != nil {
		return fmt.Errorf("store schedule items: %w", err)
	}
	return nil
}

func (cs *courseSync) fetchDiscussions() error {
	return cs.fetchTopics(false)
}

func (cs *courseSync) fetchAnnouncements() error {
	return cs.fetchTopics(true)
}

// fetchTopics loads discussion or announcement headers plus the full detail
// body of each topic.
func (cs *courseSync) fetchTopics(announcements bool) error {
	topics, err := cs.o.deps.API.ListDiscussions(cs.ctx, cs.course.ID, announcements)
	if err != nil {
		return fmt.Errorf("list discussions: %w", err)
	}
	for i := range topics {
		topics[i].Message = cs.rewrite(topics[i].Message)
		full, err := cs.o.deps.API.GetFullTopic(cs.ctx, cs.course.ID, topics[i].ID)
		if err != nil {
			return fmt.Errorf("fetch topic %d: %w", topics[i].ID, err)
		}
		topics[i].FullTopic = cs.rewrite(full)
		for _, att := range topics[i].Attachments {
			cs.addFileID(att.ID)
		}
	}
	if err := cs.o.deps.Discussions.ReplaceAll(cs.ctx, cs.course.ID, announcements, topics); err != nil {
		return fmt.Errorf("store discussions: %w", err)
	}
	return nil
}

func (cs *courseSync) fetchPeople() error {
	users, err := cs.o.deps.API.ListUsers(cs.ctx, cs.course.ID)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if err := cs.o.deps.Users.ReplaceAll(cs.ctx, cs.course.ID, users); err != nil {
		return fmt.Errorf("store users: %w", err)
	}
	return nil
}

func (cs *courseSync) fetchConferences() error {
	conferences, err := cs.o.deps.API.ListConferences(cs.ctx, cs.course.ID)
	if err != nil {
		return fmt.Errorf("list conferences: %w", err)
	}
	if err := cs.o.deps.Conferences.ReplaceAll(cs.ctx, cs.course.ID, conferences); err != nil {
		return fmt.Errorf("store conferences: %w", err)
	}
	return nil
}

// fetchModules loads the module tree and resolves referenced content.
// Referenced pages and quizzes consult the store first and are fetched only
// when missing or when the covering tab failed this run.
func (cs *courseSync) fetchModules() error {
	modules, err := cs.o.deps.API.ListModules(cs.ctx, cs.course.ID)
	if err != nil {
		return fmt.Errorf("list modules: %w", err)
	}
	if err := cs.o.deps.Modules.ReplaceAll(cs.ctx, cs.course.ID, modules); err != nil {
		return fmt.Errorf("store modules: %w", err)
	}

	for _, module := range modules {
		for _, item := range module.Items {
			if err := cs.resolveModuleItem(item); err != nil {
				return fmt.Errorf("module item %d: %w", item.ID, err)
			}
		}
	}
	return nil
}

func (cs *courseSync) resolveModuleItem(item domain.ModuleItem) error {
	switch item.Type {
	case domain.ModuleItemPage:
		if !cs.failedTabs[domain.TabPages] {
			if _, err := cs.o.deps.Pages.FindByURL(cs.ctx, cs.course.ID, item.PageURL); err == nil {
				return nil
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		page, err := cs.o.deps.API.GetPage(cs.ctx, cs.course.ID, item.PageURL)
		if err != nil {
			return fmt.Errorf("fetch page %q: %w", item.PageURL, err)
		}
		page.Body = cs.rewrite(page.Body)
		return cs.o.deps.Pages.Upsert(cs.ctx, cs.course.ID, *page)

	case domain.ModuleItemQuiz:
		if !cs.failedTabs[domain.TabQuizzes] {
			if _, err := cs.o.deps.Quizzes.FindByID(cs.ctx, cs.course.ID, item.ContentID); err == nil {
				return nil
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
		}
		return cs.upsertQuiz(item.ContentID)

	case domain.ModuleItemFile:
		cs.addFileID(item.ContentID)
		return nil

	default:
		return nil
	}
}

func (cs *courseSync) upsertQuiz(quizID int64) error {
	quiz, err := cs.o.deps.API.GetQuiz(cs.ctx, cs.course.ID, quizID)
	if err != nil {
		return fmt.Errorf("fetch quiz: %w", err)
	}
	quiz.Description = cs.rewrite(quiz.Description)
	if err := cs.o.deps.Quizzes.Upsert(cs.ctx, cs.course.ID, *quiz); err != nil {
		return fmt.Errorf("store quiz: %w", err)
	}
	return nil
}

// rewrite runs one HTML body through the rewriter and folds the discovered
// references into the course's additional-files work list.
func (cs *courseSync) rewrite(body string) string {
	if body == "" {
		return body
	}
	res := cs.o.deps.Rewriter.Rewrite(body, cs.resolveLocalPath)
	for _, id := range res.InternalFileIDs {
		cs.addFileID(id)
	}
	for _, u := range res.ExternalFileURLs {
		cs.addExternalURL(u)
	}
	for _, id := range res.MediaIDs {
		if len(cs.knownMedia) == 0 || cs.knownMedia[id] {
			cs.o.addMediaID(id)
		}
	}
	return res.HTML
}

func (cs *courseSync) resolveLocalPath(fileID int64) (string, bool) {
	rec, err := cs.o.deps.LocalFiles.Find(cs.ctx, cs.course.ID, fileID)
	if err != nil {
		return "", false
	}
	return rec.Path, true
}

func (cs *courseSync) addFileID(id int64) {
	if cs.seenFiles == nil {
		cs.seenFiles = make(map[int64]bool)
	}
	if cs.seenFiles[id] {
		return
	}
	cs.seenFiles[id] = true
	cs.fileIDs = append(cs.fileIDs, id)
}

func (cs *courseSync) addExternalURL(u string) {
	if cs.seenExternal == nil {
		cs.seenExternal = make(map[string]bool)
	}
	if cs.seenExternal[u] {
		return
	}
	cs.seenExternal[u] = true
	cs.externalURLs = append(cs.externalURLs, u)
}
