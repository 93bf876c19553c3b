package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtow/classtow-cli/internal/core/domain"
)

// mockSettingsStore implements driven.SettingsStore for testing.
type mockSettingsStore struct {
	settings domain.SyncSettings
	saved    *domain.SyncSettings
}

func (m *mockSettingsStore) Get(_ context.Context) (domain.SyncSettings, error) {
	return m.settings, nil
}

func (m *mockSettingsStore) Save(_ context.Context, settings domain.SyncSettings) error {
	m.settings = settings
	m.saved = &settings
	return nil
}

func setupSettingsTest(store *mockSettingsStore, scheduler *mockSyncScheduler) func() {
	oldStore := settingsStore
	oldScheduler := syncScheduler
	settingsStore = store
	syncScheduler = scheduler
	return func() {
		settingsStore = oldStore
		syncScheduler = oldScheduler
	}
}

func TestSettingsShow_PrintsCurrentValues(t *testing.T) {
	store := &mockSettingsStore{settings: domain.DefaultSyncSettings()}
	cleanup := setupSettingsTest(store, &mockSyncScheduler{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Auto-sync: on")
	assert.Contains(t, buf.String(), "Frequency: daily")
	assert.Contains(t, buf.String(), "Wifi-only: on")
}

func TestSettingsAutoSync_OffReschedules(t *testing.T) {
	store := &mockSettingsStore{settings: domain.DefaultSyncSettings()}
	scheduler := &mockSyncScheduler{}
	cleanup := setupSettingsTest(store, scheduler)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "auto-sync", "off"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	require.NotNil(t, store.saved)
	assert.False(t, store.saved.AutoSync)
	assert.True(t, scheduler.updateCalled, "schedule follows the settings")
}

func TestSettingsFrequency_Weekly(t *testing.T) {
	store := &mockSettingsStore{settings: domain.DefaultSyncSettings()}
	cleanup := setupSettingsTest(store, &mockSyncScheduler{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"settings", "frequency", "weekly"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, domain.FrequencyWeekly, store.settings.Frequency)
}

func TestSettingsFrequency_Invalid(t *testing.T) {
	store := &mockSettingsStore{settings: domain.DefaultSyncSettings()}
	cleanup := setupSettingsTest(store, &mockSyncScheduler{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"settings", "frequency", "hourly"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.ErrorContains(t, err, "unknown frequency")
	assert.Nil(t, store.saved)
}

func TestSettingsWifiOnly_BadValue(t *testing.T) {
	store := &mockSettingsStore{settings: domain.DefaultSyncSettings()}
	cleanup := setupSettingsTest(store, &mockSyncScheduler{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"settings", "wifi-only", "maybe"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.ErrorContains(t, err, "expected on or off")
}
