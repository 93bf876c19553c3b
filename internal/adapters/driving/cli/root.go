// Package cli implements the command line interface for classtow.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/classtow/classtow-cli/internal/core/ports/driven"
	"github.com/classtow/classtow-cli/internal/core/ports/driving"
	"github.com/classtow/classtow-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services injected by main before Execute. Commands nil-check the ones
// they use, so a partially wired binary fails with a clear error instead
// of a panic.
var (
	syncScheduler    driving.SyncScheduler
	progressObserver driving.ProgressObserver
	contentAPI       driven.ContentAPI
	selectionStore   driven.SelectionStore
	settingsStore    driven.SettingsStore
	schedulerStore   driven.SchedulerStore

	configPath string
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "classtow",
	Short: "Sync course content for offline use",
	Long: `classtow mirrors course content from your learning platform to local
storage: pages, assignments, quizzes, discussions, files and externally
hosted videos, rewritten so they render offline.

Run 'classtow login' first, then 'classtow courses select' to choose what to
sync.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Services bundles everything the command tree depends on.
type Services struct {
	Scheduler  driving.SyncScheduler
	Progress   driving.ProgressObserver
	API        driven.ContentAPI
	Selections driven.SelectionStore
	Settings   driven.SettingsStore
	Scheduled  driven.SchedulerStore
	ConfigPath string
}

// SetServices wires service implementations into the command tree.
func SetServices(s Services) {
	syncScheduler = s.Scheduler
	progressObserver = s.Progress
	contentAPI = s.API
	selectionStore = s.Selections
	settingsStore = s.Settings
	schedulerStore = s.Scheduled
	configPath = s.ConfigPath
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
