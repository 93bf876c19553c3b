package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/classtow/classtow-cli/internal/config"
	"github.com/classtow/classtow-cli/internal/logger"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store platform credentials",
	Long: `Prompts for the platform base URL and an API access token and writes
them to the config file. The token is read without echo.

If auto-sync is enabled, the recurring background job is scheduled once
credentials are in place.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	cmd.Printf("Platform base URL [%s]: ", cfg.BaseURL)
	if input := readLine(reader); input != "" {
		cfg.BaseURL = input
	}
	if cfg.BaseURL == "" {
		return errors.New("a base URL is required")
	}

	cmd.Print("API token: ")
	if token := readPassword(); token != "" {
		cfg.Token = token
	}
	cmd.Println()
	if cfg.Token == "" {
		return errors.New("an API token is required")
	}

	cmd.Printf("Video host URL [%s] (optional): ", cfg.VideoHostURL)
	if input := readLine(reader); input != "" {
		cfg.VideoHostURL = input
	}

	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	cmd.Printf("Credentials saved to %s\n", path)

	if syncScheduler != nil {
		if err := syncScheduler.ScheduleWorkAfterLogin(cmd.Context()); err != nil {
			logger.Warn("Could not schedule background sync: %v", err)
		}
	}
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read the token without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
