// Package mcp implements the `netglance mcp` subcommand — an MCP (Model
// Context Protocol) server over stdio transport. Agents can spawn this
// process and query a running monitor directly.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/saveenergy/netglance/pkg/client"
	"github.com/saveenergy/netglance/pkg/diagnostic"
	"github.com/saveenergy/netglance/pkg/types"
)

const defaultMonitorURL = "http://localhost:8090"

// ToolDefinitions returns the tools this MCP server exposes.
func ToolDefinitions() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool("current_speed",
			mcp.WithDescription("Current network speed from the monitor: upload and download rates in bytes/sec plus human-readable form, and the last latency probe. Use this for fast 'how busy is the network?' checks."),
			mcp.WithString("monitor_url",
				mcp.Description("Monitor base URL (default: http://localhost:8090)"),
			),
		),
		mcp.NewTool("top_processes",
			mcp.WithDescription("Processes currently using the most network bandwidth, ranked by combined upload+download rate."),
			mcp.WithString("monitor_url",
				mcp.Description("Monitor base URL (default: http://localhost:8090)"),
			),
			mcp.WithNumber("count",
				mcp.Description("Maximum number of processes to return (default: all retained)"),
			),
		),
		mcp.NewTool("network_status",
			mcp.WithDescription("Full network status: current snapshot, statistics over the retained window, and the monitor's diagnostic assessment (grade, ratings, alerts)."),
			mcp.WithString("monitor_url",
				mcp.Description("Monitor base URL (default: http://localhost:8090)"),
			),
		),
	}
}

// Run starts the MCP stdio server. Blocks until stdin closes or signal received.
func Run(version string) int {
	s := server.NewMCPServer(
		"netglance",
		version,
		server.WithToolCapabilities(true),
	)

	handlers := map[string]server.ToolHandlerFunc{
		"current_speed":  handleCurrentSpeed,
		"top_processes":  handleTopProcesses,
		"network_status": handleNetworkStatus,
	}
	for _, tool := range ToolDefinitions() {
		s.AddTool(tool, handlers[tool.Name])
	}

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "netglance mcp: error: %v\n", err)
		return 1
	}
	return 0
}

// clientFromRequest builds a client for the monitor_url argument, falling
// back to defaultURL for blank values.
func clientFromRequest(defaultURL string, req mcp.CallToolRequest) *client.Client {
	url := strings.TrimSpace(req.GetString("monitor_url", defaultURL))
	if url == "" {
		url = defaultURL
	}
	return client.New(url)
}

// --- Tool Handlers ---

func handleCurrentSpeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c := clientFromRequest(defaultMonitorURL, req)
	snap, err := c.Snapshot(callCtx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Monitor query failed: %v", err)), nil
	}

	result := struct {
		UploadBps   float64  `json:"upload_bps"`
		DownloadBps float64  `json:"download_bps"`
		Upload      string   `json:"upload"`
		Download    string   `json:"download"`
		PingMs      *float64 `json:"ping_ms,omitempty"`
		TakenAt     string   `json:"taken_at"`
	}{
		UploadBps:   snap.Speed.UploadBps,
		DownloadBps: snap.Speed.DownloadBps,
		Upload:      types.FormatRate(snap.Speed.UploadBps, types.UnitAuto),
		Download:    types.FormatRate(snap.Speed.DownloadBps, types.UnitAuto),
		PingMs:      snap.PingMillis,
		TakenAt:     snap.TakenAt.Format(time.RFC3339),
	}
	return marshalResult(result)
}

func handleTopProcesses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c := clientFromRequest(defaultMonitorURL, req)
	snap, err := c.Snapshot(callCtx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Monitor query failed: %v", err)), nil
	}

	procs := snap.TopProcesses
	if count := req.GetInt("count", 0); count > 0 && count < len(procs) {
		procs = procs[:count]
	}
	result := struct {
		Processes []types.ProcessUsage `json:"processes"`
		TakenAt   string               `json:"taken_at"`
	}{
		Processes: procs,
		TakenAt:   snap.TakenAt.Format(time.RFC3339),
	}
	return marshalResult(result)
}

func handleNetworkStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	c := clientFromRequest(defaultMonitorURL, req)
	snap, err := c.Snapshot(callCtx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Monitor query failed: %v", err)), nil
	}
	stats, err := c.Stats(callCtx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Stats query failed: %v", err)), nil
	}
	assessment, err := c.Assessment(callCtx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Assessment query failed: %v", err)), nil
	}

	result := struct {
		Snapshot   *types.NetworkSnapshot `json:"snapshot"`
		Stats      *client.Stats          `json:"stats"`
		Assessment *diagnostic.Assessment `json:"assessment"`
	}{
		Snapshot:   snap,
		Stats:      stats,
		Assessment: assessment,
	}
	return marshalResult(result)
}

func marshalResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("JSON encoding failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
