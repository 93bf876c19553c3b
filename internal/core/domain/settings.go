package domain

import "time"

// SyncFrequency is how often the recurring background sync runs.
type SyncFrequency string

// Available frequencies.
const (
	FrequencyDaily  SyncFrequency = "daily"
	FrequencyWeekly SyncFrequency = "weekly"
)

// IsValid returns true if the frequency is recognised.
func (f SyncFrequency) IsValid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

// Interval returns the schedule interval for the frequency.
func (f SyncFrequency) Interval() time.Duration {
	if f == FrequencyWeekly {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// SyncSettings is the process-wide sync configuration singleton. It is
// lazily created with defaults on first read.
type SyncSettings struct {
	AutoSync  bool
	Frequency SyncFrequency
	WifiOnly  bool
}

// DefaultSyncSettings returns the settings created on first read.
func DefaultSyncSettings() SyncSettings {
	return SyncSettings{
		AutoSync:  true,
		Frequency: FrequencyDaily,
		WifiOnly:  true,
	}
}
