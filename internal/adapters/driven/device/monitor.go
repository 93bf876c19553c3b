// Package device implements the DeviceMonitor port for desktop hosts.
//
// Mobile-style constraints translate loosely to a workstation: network
// connectivity is probed from the interface table, metered detection has no
// portable signal and defaults to unmetered unless overridden, and battery
// state is read from the power supply class when present.
package device

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/classtow/classtow-cli/internal/core/ports/driven"
)

// batteryLowThreshold is the capacity percentage below which a discharging
// battery counts as low.
const batteryLowThreshold = 15

// Monitor implements driven.DeviceMonitor.
type Monitor struct {
	// AssumeMetered forces NetworkUnmetered to false, for users on
	// tethered or capped connections.
	AssumeMetered bool

	powerSupplyDir string
}

var _ driven.DeviceMonitor = (*Monitor)(nil)

// New creates a device monitor.
func New(assumeMetered bool) *Monitor {
	return &Monitor{
		AssumeMetered:  assumeMetered,
		powerSupplyDir: "/sys/class/power_supply",
	}
}

// NetworkConnected returns true if any non-loopback interface is up with
// an address assigned.
func (m *Monitor) NetworkConnected() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}

// NetworkUnmetered reports whether the connection is safe for bulk
// transfer. There is no portable metered signal on desktop, so this is a
// configuration flag rather than a probe.
func (m *Monitor) NetworkUnmetered() bool {
	return !m.AssumeMetered
}

// BatteryLow returns true if a discharging battery is below the threshold.
// Hosts without a battery always return false.
func (m *Monitor) BatteryLow() bool {
	entries, err := os.ReadDir(m.powerSupplyDir)
	if err != nil {
		return false
	}

	for _, entry := range entries {
		base := filepath.Join(m.powerSupplyDir, entry.Name())
		if kind, err := os.ReadFile(filepath.Join(base, "type")); err != nil ||
			strings.TrimSpace(string(kind)) != "Battery" {
			continue
		}
		status, err := os.ReadFile(filepath.Join(base, "status"))
		if err != nil || strings.TrimSpace(string(status)) != "Discharging" {
			continue
		}
		capacityRaw, err := os.ReadFile(filepath.Join(base, "capacity"))
		if err != nil {
			continue
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(string(capacityRaw)))
		if err == nil && capacity < batteryLowThreshold {
			return true
		}
	}
	return false
}
