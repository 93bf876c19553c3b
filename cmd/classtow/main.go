// Command classtow syncs course content for offline use.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/classtow/classtow-cli/internal/adapters/driven/device"
	"github.com/classtow/classtow-cli/internal/adapters/driven/download"
	"github.com/classtow/classtow-cli/internal/adapters/driven/lmsapi"
	"github.com/classtow/classtow-cli/internal/adapters/driven/storage/sqlite"
	"github.com/classtow/classtow-cli/internal/adapters/driven/videohost"
	"github.com/classtow/classtow-cli/internal/adapters/driving/cli"
	"github.com/classtow/classtow-cli/internal/config"
	"github.com/classtow/classtow-cli/internal/core/services"
	"github.com/classtow/classtow-cli/internal/htmlrewrite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath, err := config.DefaultPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close() //nolint:errcheck // Close on exit, error not actionable

	api := lmsapi.New(cfg.BaseURL, cfg.Token)
	host := videohost.New(cfg.VideoHostURL)
	downloader := download.New()
	monitor := device.New(cfg.AssumeMetered)

	rewriter, err := htmlrewrite.New(cfg.BaseURL, cfg.VideoHostURL)
	if err != nil {
		return fmt.Errorf("building rewriter: %w", err)
	}

	fileEngine := services.NewFileSyncEngine(
		api,
		store.FileTreeStore(),
		store.LocalFileStore(),
		store.FileProgressStore(),
		downloader,
		cfg.DownloadDir,
	)

	orchestrator := services.NewSyncOrchestrator(services.OrchestratorDeps{
		API:            api,
		Courses:        store.CourseStore(),
		Pages:          store.PageStore(),
		Assignments:    store.AssignmentStore(),
		Quizzes:        store.QuizStore(),
		Events:         store.EventStore(),
		Conferences:    store.ConferenceStore(),
		Discussions:    store.DiscussionStore(),
		Users:          store.UserStore(),
		FileTree:       store.FileTreeStore(),
		LocalFiles:     store.LocalFileStore(),
		Modules:        store.ModuleStore(),
		CourseProgress: store.CourseProgressStore(),
		Selections:     store.SelectionStore(),
		Files:          fileEngine,
		Rewriter:       rewriter,
	})

	videos := services.NewExternalVideoSync(
		host,
		store.FileProgressStore(),
		filepath.Join(cfg.DownloadDir, "videos"),
	)
	runner := services.NewSyncRunner(orchestrator, videos)
	scheduler := services.NewSyncScheduler(
		store.SchedulerStore(),
		store.SettingsStore(),
		store.SelectionStore(),
		monitor,
		runner,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	aggregator := services.NewProgressAggregator(
		store.CourseProgressStore(),
		store.FileProgressStore(),
	)
	aggregator.Start(ctx)

	cli.SetServices(cli.Services{
		Scheduler:  scheduler,
		Progress:   aggregator,
		API:        api,
		Selections: store.SelectionStore(),
		Settings:   store.SettingsStore(),
		Scheduled:  store.SchedulerStore(),
		ConfigPath: configPath,
	})
	return cli.Execute()
}
