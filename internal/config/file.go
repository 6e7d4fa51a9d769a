package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	Port        string `yaml:"port,omitempty"`
	BindAddress string `yaml:"bind_address,omitempty"`

	RefreshSeconds     int     `yaml:"refresh_interval_seconds,omitempty"`
	TopProcessCount    int     `yaml:"top_process_count,omitempty"`
	AlertThresholdMBps float64 `yaml:"alert_threshold_mbps,omitempty"`
	SpeedUnit          string  `yaml:"speed_unit,omitempty"`

	ProbeHost    string `yaml:"probe_host,omitempty"`
	ProbeTimeout string `yaml:"probe_timeout,omitempty"`

	SamplerCommand      string `yaml:"sampler_command,omitempty"`
	SamplerMinInterval  string `yaml:"sampler_min_interval,omitempty"`
	RouteMonitorCommand string `yaml:"route_monitor_command,omitempty"`

	PublicAddressURL string `yaml:"public_address_url,omitempty"`

	DataDir            string   `yaml:"data_dir,omitempty"`
	MaxStoredSnapshots int      `yaml:"max_stored_snapshots,omitempty"`
	CleanupSchedule    string   `yaml:"cleanup_schedule,omitempty"`
	AllowedOrigins     []string `yaml:"allowed_origins,omitempty"`
}

// DefaultConfigPath resolves the XDG config file location.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "netglance", "config.yaml")
}

// LoadFromFile overlays the YAML file at path onto the config. A missing
// file is not an error; a malformed one is.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.BindAddress != "" {
		c.BindAddress = fc.BindAddress
	}
	if fc.RefreshSeconds > 0 {
		c.Settings.RefreshSeconds = fc.RefreshSeconds
	}
	if fc.TopProcessCount != 0 {
		c.Settings.TopProcessCount = fc.TopProcessCount
	}
	if fc.AlertThresholdMBps != 0 {
		c.Settings.AlertThresholdMBps = fc.AlertThresholdMBps
	}
	if fc.SpeedUnit != "" {
		c.Settings.SpeedUnit = fc.SpeedUnit
	}
	if fc.ProbeHost != "" {
		c.ProbeHost = fc.ProbeHost
	}
	if err := overlayDuration(&c.ProbeTimeout, fc.ProbeTimeout, "probe_timeout"); err != nil {
		return err
	}
	if fc.SamplerCommand != "" {
		c.SamplerCommand = strings.Fields(fc.SamplerCommand)
	}
	if err := overlayDuration(&c.SamplerMinInterval, fc.SamplerMinInterval, "sampler_min_interval"); err != nil {
		return err
	}
	if fc.RouteMonitorCommand != "" {
		c.RouteMonitorCommand = strings.Fields(fc.RouteMonitorCommand)
	}
	if fc.PublicAddressURL != "" {
		c.PublicAddressURL = fc.PublicAddressURL
	}
	if fc.DataDir != "" {
		c.DataDir = fc.DataDir
	}
	if fc.MaxStoredSnapshots > 0 {
		c.MaxStoredSnapshots = fc.MaxStoredSnapshots
	}
	if fc.CleanupSchedule != "" {
		c.CleanupSchedule = fc.CleanupSchedule
	}
	if len(fc.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.AllowedOrigins
	}

	return nil
}

func overlayDuration(dst *time.Duration, raw, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid %s %q: must be a positive duration", field, raw)
	}
	*dst = d
	return nil
}
