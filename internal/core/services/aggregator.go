package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/core/ports/driven"
	"github.com/classtow/classtow-cli/internal/core/ports/driving"
)

// Ensure ProgressAggregator implements the interface.
var _ driving.ProgressObserver = (*ProgressAggregator)(nil)

// ProgressAggregator folds per-course and per-file progress into one
// presentable aggregate, recomputed on every underlying change. It is a
// pure read-model: it never writes to the stores it observes.
type ProgressAggregator struct {
	courses driven.CourseProgressStore
	files   driven.FileProgressStore

	mu      sync.RWMutex
	current *domain.AggregateProgress
	subs    map[int]chan domain.AggregateProgress
	nextSub int
}

// NewProgressAggregator creates a new aggregator over the two progress
// stores.
func NewProgressAggregator(courses driven.CourseProgressStore, files driven.FileProgressStore) *ProgressAggregator {
	return &ProgressAggregator{
		courses: courses,
		files:   files,
		subs:    make(map[int]chan domain.AggregateProgress),
	}
}

// Start launches the observation loop. It returns once the loop is
// running; the loop stops when ctx is done.
func (a *ProgressAggregator) Start(ctx context.Context) {
	courseCh := a.courses.Watch(ctx)
	fileCh := a.files.Watch(ctx)
	go a.loop(ctx, courseCh, fileCh)
}

// Current returns the latest aggregate, or nil when both underlying
// sources are empty.
func (a *ProgressAggregator) Current() *domain.AggregateProgress {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == nil {
		return nil
	}
	out := *a.current
	return &out
}

// Subscribe delivers recomputed aggregates until ctx is done. Delivery is
// latest-wins: a slow reader sees the newest aggregate, not every
// intermediate one.
func (a *ProgressAggregator) Subscribe(ctx context.Context) <-chan domain.AggregateProgress {
	ch := make(chan domain.AggregateProgress, 1)

	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	if a.current != nil {
		ch <- *a.current
	}
	a.mu.Unlock()

	go func() {
		<-ctx.Done()
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}()
	return ch
}

func (a *ProgressAggregator) loop(ctx context.Context, courseCh <-chan []domain.CourseSyncProgress, fileCh <-chan []domain.FileSyncProgress) {
	var courses []domain.CourseSyncProgress
	var files []domain.FileSyncProgress

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-courseCh:
			if !ok {
				courseCh = nil
				continue
			}
			courses = snapshot
		case snapshot, ok := <-fileCh:
			if !ok {
				fileCh = nil
				continue
			}
			files = snapshot
		}
		if courseCh == nil && fileCh == nil {
			return
		}

		aggregate := computeAggregate(courses, files)
		if aggregate == nil {
			continue
		}
		a.publish(*aggregate)
	}
}

func (a *ProgressAggregator) publish(aggregate domain.AggregateProgress) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = &aggregate
	for _, ch := range a.subs {
		select {
		case ch <- aggregate:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- aggregate
		}
	}
}

// computeAggregate folds the two progress snapshots. Each tracked tab
// weighs a fixed byte amount, fully credited once completed; files
// contribute their own bytes weighted by transfer percent. Returns nil
// while both snapshots are empty.
func computeAggregate(courses []domain.CourseSyncProgress, files []domain.FileSyncProgress) *domain.AggregateProgress {
	if len(courses) == 0 && len(files) == 0 {
		return nil
	}

	var totalBytes, doneBytes int64
	allStarting := true
	allTerminal := true
	anyError := false

	for _, course := range courses {
		if course.State != domain.ProgressStarting {
			allStarting = false
		}
		if !course.State.IsTerminal() {
			allTerminal = false
		}
		if course.State == domain.ProgressError {
			anyError = true
		}
		for _, tab := range course.Tabs {
			totalBytes += domain.TabContentWeight
			if tab.State == domain.ProgressCompleted {
				doneBytes += domain.TabContentWeight
			}
		}
	}

	for _, file := range files {
		if file.State != domain.ProgressStarting {
			allStarting = false
		}
		if !file.State.IsTerminal() {
			allTerminal = false
		}
		if file.State == domain.ProgressError {
			anyError = true
		}
		totalBytes += file.TotalBytes
		doneBytes += file.TotalBytes * int64(file.Percent) / 100
	}

	state := domain.ProgressInProgress
	switch {
	case allStarting:
		state = domain.ProgressStarting
	case allTerminal:
		state = domain.ProgressCompleted
		if anyError {
			state = domain.ProgressError
		}
	}

	percent := 0
	if totalBytes > 0 {
		percent = int(doneBytes * 100 / totalBytes)
	} else if state == domain.ProgressCompleted {
		percent = 100
	}

	return &domain.AggregateProgress{
		Title:      aggregateTitle(len(courses)),
		State:      state,
		Percent:    percent,
		TotalBytes: totalBytes,
		ItemCount:  len(courses) + len(files),
	}
}

func aggregateTitle(courseCount int) string {
	if courseCount == 1 {
		return "Syncing 1 course"
	}
	return fmt.Sprintf("Syncing %d courses", courseCount)
}
