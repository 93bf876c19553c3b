package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var syncCmd = &cobra.Command{
	Use:   "sync [course-id...]",
	Short: "Synchronise course content",
	Long: `Runs an on-demand sync of the selected courses. If course IDs are
provided, only those courses sync; otherwise every selected course does.

The run honours the configured network constraints: on a metered
connection with wifi-only enabled the sync is deferred to the scheduler
instead of starting now.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncScheduler == nil {
		return errors.New("sync service not configured")
	}

	courseIDs := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid course ID %q", arg)
		}
		courseIDs = append(courseIDs, id)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cmd.Println("Starting sync...")

	// Run the sync in a goroutine so the progress bar renders alongside
	errCh := make(chan error, 1)
	go func() {
		errCh <- syncScheduler.RequestSync(ctx, courseIDs)
	}()

	var runErr error
	if progressObserver != nil {
		runErr = renderProgress(ctx, cmd, errCh)
	} else {
		runErr = <-errCh
	}
	if runErr != nil {
		return fmt.Errorf("sync failed: %w", runErr)
	}

	cmd.Println("Sync complete.")
	return nil
}

// renderProgress draws a single aggregate bar until the run finishes,
// then returns the run's error.
func renderProgress(ctx context.Context, cmd *cobra.Command, done <-chan error) error {
	updates := progressObserver.Subscribe(ctx)

	p := mpb.New(mpb.WithOutput(cmd.OutOrStdout()))
	bar := p.New(0,
		mpb.BarStyle().Lbound("|"),
		mpb.PrependDecorators(
			decor.Name("syncing"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)

	for {
		select {
		case err := <-done:
			// A negative total completes the bar at its current value
			bar.SetTotal(-1, true)
			p.Wait()
			return err
		case aggregate, ok := <-updates:
			if !ok {
				bar.SetTotal(-1, true)
				p.Wait()
				return <-done
			}
			if aggregate.TotalBytes <= 0 {
				continue
			}
			bar.SetTotal(aggregate.TotalBytes, false)
			bar.SetCurrent(aggregate.TotalBytes * int64(aggregate.Percent) / 100)
		}
	}
}
