package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/classtow/classtow-cli/internal/core/domain"
	"github.com/classtow/classtow-cli/internal/logger"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage sync settings",
	Long: `View and configure how the background sync behaves: whether it runs
at all, how often, and whether it requires an unmetered connection.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsAutoSyncCmd = &cobra.Command{
	Use:   "auto-sync [on|off]",
	Short: "Enable or disable the recurring background sync",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsAutoSync,
}

var settingsFrequencyCmd = &cobra.Command{
	Use:   "frequency [daily|weekly]",
	Short: "Set how often the background sync runs",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsFrequency,
}

var settingsWifiOnlyCmd = &cobra.Command{
	Use:   "wifi-only [on|off]",
	Short: "Restrict the background sync to unmetered connections",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsWifiOnly,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsAutoSyncCmd)
	settingsCmd.AddCommand(settingsFrequencyCmd)
	settingsCmd.AddCommand(settingsWifiOnlyCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsStore == nil {
		return errors.New("settings store not configured")
	}

	settings, err := settingsStore.Get(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}

	cmd.Println("Sync Settings")
	cmd.Println("=============")
	cmd.Printf("  Auto-sync: %s\n", onOff(settings.AutoSync))
	cmd.Printf("  Frequency: %s\n", settings.Frequency)
	cmd.Printf("  Wifi-only: %s\n", onOff(settings.WifiOnly))
	return nil
}

func runSettingsAutoSync(cmd *cobra.Command, args []string) error {
	enabled, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	if err := updateSettings(cmd, func(s *domain.SyncSettings) {
		s.AutoSync = enabled
	}); err != nil {
		return err
	}
	cmd.Printf("Auto-sync %s.\n", onOff(enabled))
	return nil
}

func runSettingsFrequency(cmd *cobra.Command, args []string) error {
	frequency := domain.SyncFrequency(args[0])
	if !frequency.IsValid() {
		return fmt.Errorf("unknown frequency %q", args[0])
	}
	if err := updateSettings(cmd, func(s *domain.SyncSettings) {
		s.Frequency = frequency
	}); err != nil {
		return err
	}
	cmd.Printf("Sync frequency set to %s.\n", frequency)
	return nil
}

func runSettingsWifiOnly(cmd *cobra.Command, args []string) error {
	enabled, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	if err := updateSettings(cmd, func(s *domain.SyncSettings) {
		s.WifiOnly = enabled
	}); err != nil {
		return err
	}
	cmd.Printf("Wifi-only %s.\n", onOff(enabled))
	return nil
}

// updateSettings applies a mutation to the persisted settings and reshapes
// the scheduled work to match.
func updateSettings(cmd *cobra.Command, mutate func(*domain.SyncSettings)) error {
	if settingsStore == nil {
		return errors.New("settings store not configured")
	}

	ctx := cmd.Context()
	settings, err := settingsStore.Get(ctx)
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}

	mutate(&settings)

	if err := settingsStore.Save(ctx, settings); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}

	if syncScheduler != nil {
		if err := syncScheduler.UpdateWork(ctx); err != nil {
			logger.Warn("Could not reschedule background sync: %v", err)
		}
	}
	return nil
}

func parseOnOff(raw string) (bool, error) {
	switch raw {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", raw)
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
