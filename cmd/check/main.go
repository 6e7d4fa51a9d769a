// Package check implements the `netglance check` subcommand: a one-shot
// status query against a running monitor, for scripts and quick looks.
package check

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/saveenergy/netglance/pkg/client"
	"github.com/saveenergy/netglance/pkg/diagnostic"
	"github.com/saveenergy/netglance/pkg/types"
)

var (
	exitSuccess = 0
	exitFailure = 1
	exitUsage   = 2
)

const (
	minTimeoutSeconds = 1
	maxTimeoutSeconds = 300
)

// CheckResult is the structured output of netglance check.
type CheckResult struct {
	SchemaVersion string                 `json:"schema_version"`
	Status        string                 `json:"status"`
	MonitorURL    string                 `json:"monitor_url"`
	UploadBps     float64                `json:"upload_bps"`
	DownloadBps   float64                `json:"download_bps"`
	PingMs        *float64               `json:"ping_ms,omitempty"`
	Interface     *types.InterfaceState  `json:"interface,omitempty"`
	PublicAddress string                 `json:"public_address,omitempty"`
	Assessment    *diagnostic.Assessment `json:"assessment"`
	DurationMs    int64                  `json:"duration_ms"`
}

func Run(args []string, version string) int {
	flagSet := flag.NewFlagSet("netglance check", flag.ContinueOnError)
	flagSet.SetOutput(os.Stdout)

	var (
		monitorURL string
		jsonOut    bool
		timeout    int
	)
	flagSet.StringVar(&monitorURL, "monitor-url", "http://localhost:8090", "Monitor URL")
	flagSet.StringVar(&monitorURL, "M", "http://localhost:8090", "Monitor URL (short)")
	flagSet.BoolVar(&jsonOut, "json", false, "Output as JSON")
	flagSet.IntVar(&timeout, "timeout", 5, "Overall timeout in seconds")
	help := flagSet.Bool("help", false, "Show help")
	flagSet.BoolVar(help, "h", false, "Show help (short)")

	if err := flagSet.Parse(args); err != nil {
		return exitUsage
	}

	if *help {
		printUsage()
		return exitSuccess
	}

	if timeout < minTimeoutSeconds || timeout > maxTimeoutSeconds {
		fmt.Fprintf(os.Stderr, "netglance check: timeout must be between %d and %d seconds\n", minTimeoutSeconds, maxTimeoutSeconds)
		return exitUsage
	}

	// Positional arg = monitor URL
	rest := flagSet.Args()
	if len(rest) > 1 {
		fmt.Fprintln(os.Stderr, "netglance check: too many positional arguments")
		return exitUsage
	}
	if len(rest) > 0 {
		arg := rest[0]
		if !isValidMonitorURL(arg) {
			fmt.Fprintf(os.Stderr, "netglance check: invalid monitor URL: %q\n", arg)
			return exitUsage
		}
		monitorURL = arg
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	start := time.Now()
	result, err := runCheck(ctx, monitorURL)

	if err != nil {
		if jsonOut {
			errResp := map[string]interface{}{
				"schema_version": "1.0",
				"error":          true,
				"code":           "check_failed",
				"message":        err.Error(),
			}
			if encErr := json.NewEncoder(os.Stdout).Encode(errResp); encErr != nil {
				fmt.Fprintf(os.Stderr, "netglance check: json encode error: %v\n", encErr)
			}
		} else {
			fmt.Fprintf(os.Stderr, "netglance check: error: %v\n", err)
		}
		return exitFailure
	}
	result.DurationMs = time.Since(start).Milliseconds()

	if jsonOut {
		if encErr := json.NewEncoder(os.Stdout).Encode(result); encErr != nil {
			fmt.Fprintf(os.Stderr, "netglance check: json encode error: %v\n", encErr)
			return exitFailure
		}
	} else {
		printHuman(result, term.IsTerminal(int(os.Stdout.Fd())))
	}

	// Exit 1 if grade is D or F (degraded)
	if result.Assessment != nil && (result.Assessment.Grade == "D" || result.Assessment.Grade == "F") {
		return exitFailure
	}
	return exitSuccess
}

func runCheck(ctx context.Context, monitorURL string) (*CheckResult, error) {
	c := client.New(monitorURL)
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	assessment, err := c.Assessment(ctx)
	if err != nil {
		return nil, err
	}
	return &CheckResult{
		SchemaVersion: "1.0",
		Status:        "ok",
		MonitorURL:    monitorURL,
		UploadBps:     snap.Speed.UploadBps,
		DownloadBps:   snap.Speed.DownloadBps,
		PingMs:        snap.PingMillis,
		Interface:     snap.Interface,
		PublicAddress: snap.PublicAddress,
		Assessment:    assessment,
	}, nil
}

func printHuman(r *CheckResult, colored bool) {
	if r.Assessment != nil {
		fmt.Printf("Grade: %s - %s\n", colorGrade(r.Assessment.Grade, colored), r.Assessment.Summary)
	}
	fmt.Printf("  Download: %s\n", types.FormatRate(r.DownloadBps, types.UnitAuto))
	fmt.Printf("  Upload:   %s\n", types.FormatRate(r.UploadBps, types.UnitAuto))
	if r.PingMs != nil {
		fmt.Printf("  Ping:     %.0f ms\n", *r.PingMs)
	} else {
		fmt.Printf("  Ping:     n/a\n")
	}
	if r.Interface != nil && r.Interface.Active {
		fmt.Printf("  Path:     %s (%s)\n", r.Interface.Name, r.Interface.Kind)
	} else {
		fmt.Printf("  Path:     offline\n")
	}
	if r.Assessment != nil && len(r.Assessment.Alerts) > 0 {
		fmt.Printf("  Alerts:   %s\n", strings.Join(r.Assessment.Alerts, ", "))
	}
}

// colorGrade wraps the grade in ANSI color when stdout is a terminal.
func colorGrade(grade string, colored bool) string {
	if !colored {
		return grade
	}
	switch grade {
	case "A", "B":
		return "\033[32m" + grade + "\033[0m"
	case "C":
		return "\033[33m" + grade + "\033[0m"
	default:
		return "\033[31m" + grade + "\033[0m"
	}
}

func printUsage() {
	fmt.Fprintf(os.Stdout, `Usage: netglance check [flags] [monitor-url]

One-shot status query against a running monitor.

Flags:
  -h, --help               Show help
  -M, --monitor-url string Monitor URL (default: http://localhost:8090)
  --json                   Output as JSON
  --timeout int            Overall timeout in seconds (default: 5)

Exit codes:
  0   Healthy (grade A-C)
  1   Degraded (grade D-F) or error

Examples:
  netglance check                          # Query the local monitor
  netglance check http://192.168.1.5:8090  # Query a remote monitor
  netglance check --json                   # JSON output for scripts
`)
}

func isValidMonitorURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u == nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
