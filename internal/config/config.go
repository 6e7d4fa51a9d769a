package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Settings are the collaborator-facing knobs; everything else is
	// operational wiring for the serving surfaces.
	Settings Settings

	Port        string
	BindAddress string

	AllowedOrigins []string
	WSPingInterval time.Duration

	// APIRateLimit is the per-client request budget for the HTTP API,
	// in requests per minute.
	APIRateLimit int

	ProbeHost    string
	ProbeTimeout time.Duration

	// SamplerCommand is the external per-process traffic accounting tool
	// and its arguments. The default asks for one delimited sample per
	// second, indefinitely, without headers per sample.
	SamplerCommand     []string
	SamplerMinInterval time.Duration

	// RouteMonitorCommand streams one line per routing/link change; the
	// path watcher treats each line as a change event.
	RouteMonitorCommand []string

	PublicAddressURL     string
	PublicAddressTimeout time.Duration

	DataDir            string
	MaxStoredSnapshots int
	CleanupSchedule    string

	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration

	PprofEnabled      bool
	PprofAddress      string
	PerfStatsInterval time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Settings:             DefaultSettings(),
		Port:                 "8090",
		BindAddress:          "127.0.0.1",
		AllowedOrigins:       []string{"*"},
		WSPingInterval:       30 * time.Second,
		APIRateLimit:         240,
		ProbeHost:            "1.1.1.1",
		ProbeTimeout:         2 * time.Second,
		SamplerCommand:       []string{"nettop", "-P", "-x", "-d", "-L", "0", "-J", "bytes_in,bytes_out"},
		SamplerMinInterval:   2 * time.Second,
		RouteMonitorCommand:  []string{"ip", "-o", "monitor", "route", "link"},
		PublicAddressURL:     "https://api.ipify.org",
		PublicAddressTimeout: 5 * time.Second,
		DataDir:              "./data",
		MaxStoredSnapshots:   100000,
		CleanupSchedule:      "@hourly",
		ReadHeaderTimeout:    15 * time.Second,
		IdleTimeout:          60 * time.Second,
		PprofAddress:         "127.0.0.1:6060",
	}
}

func (c *Config) LoadFromEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid PORT %q: must be a number", port)
		}
		c.Port = port
	}
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		c.BindAddress = addr
	}

	if interval := os.Getenv("REFRESH_INTERVAL"); interval != "" {
		secs, err := strconv.Atoi(interval)
		if err != nil || secs <= 0 {
			return fmt.Errorf("invalid REFRESH_INTERVAL %q: must be a positive integer (seconds)", interval)
		}
		c.Settings.RefreshSeconds = secs
	}
	if topN := os.Getenv("TOP_PROCESS_COUNT"); topN != "" {
		n, err := strconv.Atoi(topN)
		if err != nil {
			return fmt.Errorf("invalid TOP_PROCESS_COUNT %q: must be an integer", topN)
		}
		c.Settings.TopProcessCount = n
	}
	if threshold := os.Getenv("ALERT_THRESHOLD_MBPS"); threshold != "" {
		v, err := strconv.ParseFloat(threshold, 64)
		if err != nil {
			return fmt.Errorf("invalid ALERT_THRESHOLD_MBPS %q: must be a number", threshold)
		}
		c.Settings.AlertThresholdMBps = v
	}
	if unit := os.Getenv("SPEED_UNIT"); unit != "" {
		c.Settings.SpeedUnit = unit
	}

	if host := os.Getenv("PROBE_HOST"); host != "" {
		c.ProbeHost = host
	}
	if timeout := os.Getenv("PROBE_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid PROBE_TIMEOUT %q: must be a positive duration (e.g. 2s)", timeout)
		}
		c.ProbeTimeout = d
	}

	if cmd := os.Getenv("SAMPLER_COMMAND"); cmd != "" {
		c.SamplerCommand = strings.Fields(cmd)
	}
	if interval := os.Getenv("SAMPLER_MIN_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid SAMPLER_MIN_INTERVAL %q: must be a positive duration (e.g. 2s)", interval)
		}
		c.SamplerMinInterval = d
	}
	if cmd := os.Getenv("ROUTE_MONITOR_COMMAND"); cmd != "" {
		c.RouteMonitorCommand = strings.Fields(cmd)
	}

	if url := os.Getenv("PUBLIC_ADDRESS_URL"); url != "" {
		c.PublicAddressURL = url
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.DataDir = dataDir
	}
	if max := os.Getenv("MAX_STORED_SNAPSHOTS"); max != "" {
		m, err := strconv.Atoi(max)
		if err != nil || m <= 0 {
			return fmt.Errorf("invalid MAX_STORED_SNAPSHOTS %q: must be a positive integer", max)
		}
		c.MaxStoredSnapshots = m
	}
	if schedule := os.Getenv("CLEANUP_SCHEDULE"); schedule != "" {
		c.CleanupSchedule = schedule
	}

	if limit := os.Getenv("API_RATE_LIMIT"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid API_RATE_LIMIT %q: must be a positive integer", limit)
		}
		c.APIRateLimit = n
	}

	if enabled := os.Getenv("PPROF_ENABLED"); enabled != "" {
		c.PprofEnabled = enabled == "true" || enabled == "1"
	}
	if addr := os.Getenv("PPROF_ADDRESS"); addr != "" {
		c.PprofAddress = addr
	}
	if interval := os.Getenv("PERF_STATS_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid PERF_STATS_INTERVAL %q: must be a positive duration (e.g. 1m)", interval)
		}
		c.PerfStatsInterval = d
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		entries := strings.Split(origins, ",")
		c.AllowedOrigins = make([]string, 0, len(entries))
		for _, entry := range entries {
			value := strings.TrimSpace(entry)
			if value != "" {
				c.AllowedOrigins = append(c.AllowedOrigins, value)
			}
		}
	}

	return nil
}

// Validate checks the operational fields and clamps the collaborator
// settings. Out-of-range settings are never an error; broken wiring is.
func (c *Config) Validate() error {
	c.Settings.Clamp()

	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid port %q: must be 1-65535", c.Port)
	}
	if c.ProbeHost == "" {
		return fmt.Errorf("probe host cannot be empty")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be > 0")
	}
	if len(c.SamplerCommand) == 0 {
		return fmt.Errorf("sampler command cannot be empty")
	}
	if c.SamplerMinInterval <= 0 {
		return fmt.Errorf("sampler min interval must be > 0")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}
	if c.MaxStoredSnapshots <= 0 {
		return fmt.Errorf("max stored snapshots must be > 0")
	}
	if c.APIRateLimit <= 0 {
		return fmt.Errorf("api rate limit must be > 0")
	}
	return nil
}
