package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/classtow/classtow-cli/internal/config"
	"github.com/classtow/classtow-cli/internal/logger"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync scheduler",
	Long: `Runs the scheduler loop in the foreground, executing the recurring
sync when it is due and the device constraints allow.

Edits to the config file are picked up without a restart.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if syncScheduler == nil {
		return errors.New("sync service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(_ *config.Config) {
				if err := syncScheduler.UpdateWork(ctx); err != nil {
					logger.Warn("Rescheduling after config change failed: %v", err)
				}
			})
			if err != nil {
				logger.Warn("Config watcher stopped: %v", err)
			}
		}()
	}

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")
	return syncScheduler.Start(ctx)
}
