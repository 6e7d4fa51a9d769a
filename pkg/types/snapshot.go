package types

import (
	"fmt"
	"time"
)

// NetworkSnapshot bundles everything known about the network at one tick.
// The aggregator builds a fresh value each tick and hands it off whole, so
// subscribers never observe a partially updated snapshot.
type NetworkSnapshot struct {
	Speed         SpeedSample     `json:"speed"`
	TopProcesses  []ProcessUsage  `json:"top_processes"`
	Interface     *InterfaceState `json:"interface,omitempty"`
	PublicAddress string          `json:"public_address,omitempty"`
	PingMillis    *float64        `json:"ping_ms,omitempty"`
	TakenAt       time.Time       `json:"taken_at"`
}

// MenuBarText renders the two-line upload/download string consumed by the
// status display collaborator.
func (s NetworkSnapshot) MenuBarText(unit SpeedUnit) string {
	return fmt.Sprintf("↑ %s\n↓ %s",
		FormatRate(s.Speed.UploadBps, unit),
		FormatRate(s.Speed.DownloadBps, unit))
}

// PingText renders the probe result for display, with an explicit
// placeholder when the probe had no answer.
func (s NetworkSnapshot) PingText() string {
	if s.PingMillis == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f ms", *s.PingMillis)
}
