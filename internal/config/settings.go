package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/saveenergy/netglance/pkg/types"
)

const (
	MinTopProcessCount = 1
	MaxTopProcessCount = 50
	MinAlertThreshold  = 0.1

	// historyWindow is the span of speed samples the monitor retains.
	historyWindow = 60 * time.Second
)

// Settings is the collaborator-facing configuration record. It round-trips
// through JSON for the settings persistence contract; the core only ever
// consumes decoded, clamped values.
type Settings struct {
	RefreshSeconds     int     `json:"refresh_interval_seconds"`
	TopProcessCount    int     `json:"top_process_count"`
	AlertThresholdMBps float64 `json:"alert_threshold_mbps"`
	SpeedUnit          string  `json:"speed_unit"`
}

func DefaultSettings() Settings {
	return Settings{
		RefreshSeconds:     1,
		TopProcessCount:    5,
		AlertThresholdMBps: 10,
		SpeedUnit:          string(types.UnitAuto),
	}
}

// Clamp forces every field into its documented range instead of rejecting
// out-of-range values.
func (s *Settings) Clamp() {
	if s.RefreshSeconds < 1 {
		s.RefreshSeconds = 1
	}
	if s.TopProcessCount < MinTopProcessCount {
		s.TopProcessCount = MinTopProcessCount
	}
	if s.TopProcessCount > MaxTopProcessCount {
		s.TopProcessCount = MaxTopProcessCount
	}
	if s.AlertThresholdMBps < MinAlertThreshold {
		s.AlertThresholdMBps = MinAlertThreshold
	}
	switch types.SpeedUnit(s.SpeedUnit) {
	case types.UnitKBps, types.UnitMBps, types.UnitAuto:
	default:
		s.SpeedUnit = string(types.UnitAuto)
	}
}

// Interval returns the refresh cadence as a duration.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.RefreshSeconds) * time.Second
}

// HistoryCapacity is ceil(60s / refresh interval): enough samples to cover
// one minute of history at the current cadence.
func (s Settings) HistoryCapacity() int {
	interval := s.Interval()
	if interval <= 0 {
		interval = time.Second
	}
	capacity := int((historyWindow + interval - 1) / interval)
	if capacity < 1 {
		capacity = 1
	}
	return capacity
}

// Unit returns the display unit as its typed form.
func (s Settings) Unit() types.SpeedUnit {
	return types.SpeedUnit(s.SpeedUnit)
}

// EncodeJSON serializes the settings for export.
func (s Settings) EncodeJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// DecodeSettingsJSON parses an exported settings document, clamping every
// field into range. Unknown fields are ignored.
func DecodeSettingsJSON(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	s.Clamp()
	return s, nil
}
