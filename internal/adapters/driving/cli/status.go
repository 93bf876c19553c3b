package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/classtow/classtow-cli/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync progress and the background schedule",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if progressObserver == nil || schedulerStore == nil {
		return errors.New("sync service not configured")
	}

	if aggregate := progressObserver.Current(); aggregate != nil {
		cmd.Printf("Sync: %s (%s, %d%%)\n", aggregate.Title, aggregate.State, aggregate.Percent)
		cmd.Printf("  %d items, %s\n", aggregate.ItemCount, formatBytes(aggregate.TotalBytes))
	} else {
		cmd.Println("No sync has run yet.")
	}

	work, err := schedulerStore.GetWork(cmd.Context(), domain.WorkIDRecurring)
	if err != nil {
		return fmt.Errorf("reading schedule: %w", err)
	}
	if work == nil {
		cmd.Println("Background sync: not scheduled")
		return nil
	}

	cmd.Printf("Background sync: every %s, next run %s\n",
		work.Interval, work.NextRun.Format(time.RFC1123))
	if !work.LastRun.IsZero() {
		cmd.Printf("  last run: %s\n", work.LastRun.Format(time.RFC1123))
	}
	if work.LastError != "" {
		cmd.Printf("  last error: %s\n", work.LastError)
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
