// Package client provides a Go SDK for querying a running netglance
// monitor programmatically. Agents and applications can import this
// package instead of shelling out to the HTTP API.
//
// Usage:
//
//	c := client.New("http://127.0.0.1:8090")
//	snap, err := c.Snapshot(ctx)
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/saveenergy/netglance/pkg/diagnostic"
	"github.com/saveenergy/netglance/pkg/types"
)

// Client talks to a single monitor instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a client targeting the given monitor base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats mirrors the monitor's window statistics document.
type Stats struct {
	AvgUploadBps       float64 `json:"avg_upload_bps"`
	AvgDownloadBps     float64 `json:"avg_download_bps"`
	PeakUploadBps      float64 `json:"peak_upload_bps"`
	PeakDownloadBps    float64 `json:"peak_download_bps"`
	TotalUploadBytes   float64 `json:"total_upload_bytes"`
	TotalDownloadBytes float64 `json:"total_download_bytes"`
	SampleCount        int     `json:"sample_count"`
}

// Settings mirrors the monitor's settings document.
type Settings struct {
	RefreshSeconds     int     `json:"refresh_interval_seconds"`
	TopProcessCount    int     `json:"top_process_count"`
	AlertThresholdMBps float64 `json:"alert_threshold_mbps"`
	SpeedUnit          string  `json:"speed_unit"`
}

// Healthy returns nil if the monitor is reachable and healthy.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("monitor unreachable: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("monitor unreachable: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("monitor unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Snapshot fetches the most recently published snapshot.
func (c *Client) Snapshot(ctx context.Context) (*types.NetworkSnapshot, error) {
	var snap types.NetworkSnapshot
	if err := c.getJSON(ctx, "/api/v1/snapshot", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// History fetches the retained speed samples, oldest first.
func (c *Client) History(ctx context.Context) ([]types.SpeedSample, error) {
	var resp struct {
		Samples []types.SpeedSample `json:"samples"`
	}
	if err := c.getJSON(ctx, "/api/v1/history", &resp); err != nil {
		return nil, err
	}
	return resp.Samples, nil
}

// Stats fetches the statistics over the retained window.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.getJSON(ctx, "/api/v1/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Assessment fetches the monitor's interpretation of the current state.
func (c *Client) Assessment(ctx context.Context) (*diagnostic.Assessment, error) {
	var a diagnostic.Assessment
	if err := c.getJSON(ctx, "/api/v1/assessment", &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Settings fetches the active settings.
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	var s Settings
	if err := c.getJSON(ctx, "/api/v1/settings", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSettings applies new settings and returns the values the monitor
// actually installed, which may be clamped.
func (c *Client) UpdateSettings(ctx context.Context, s Settings) (*Settings, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.baseURL+"/api/v1/settings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("monitor unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var applied Settings
	if err := json.NewDecoder(resp.Body).Decode(&applied); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &applied, nil
}

// Version fetches the monitor's version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp struct {
		Version string `json:"version"`
	}
	if err := c.getJSON(ctx, "/api/v1/version", &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("monitor unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("monitor error (status %d): %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("monitor error: status %d", resp.StatusCode)
}
