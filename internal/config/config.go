// Package config loads and watches the classtow configuration file.
//
// The file is TOML at ~/.classtow/config.toml by default. It holds the
// connection settings the CLI needs before any store exists: the LMS base
// URL, the API token, the video host URL and the local directories. Durable
// sync settings (frequency, wifi-only) live in the SQLite store instead.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/classtow/classtow-cli/internal/logger"
)

// Config is the on-disk configuration.
type Config struct {
	BaseURL       string `toml:"base_url"`
	Token         string `toml:"token"`
	VideoHostURL  string `toml:"video_host_url"`
	DataDir       string `toml:"data_dir"`
	DownloadDir   string `toml:"download_dir"`
	AssumeMetered bool   `toml:"assume_metered"`
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".classtow", "config.toml"), nil
}

// defaults fills unset directories relative to the config file.
func (c *Config) defaults(path string) {
	base := filepath.Dir(path)
	if c.DataDir == "" {
		c.DataDir = filepath.Join(base, "data")
	}
	if c.DownloadDir == "" {
		c.DownloadDir = filepath.Join(base, "files")
	}
}

// Load reads the config file. A missing file yields a zero config with
// default directories, not an error; the login command creates it.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.defaults(path)
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.defaults(path)
	return &cfg, nil
}

// Save writes the config file, creating its directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Watch reloads the config whenever the file changes and hands the new
// value to onChange. It blocks until ctx is done. Used by the daemon so
// token or URL edits apply without a restart.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace the file on save, which drops
	// a watch registered on the file itself
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching config directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				logger.Warn("config reload failed: %v", err)
				continue
			}
			logger.Info("config reloaded from %s", path)
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher: %v", err)
		}
	}
}
