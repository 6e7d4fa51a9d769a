// Package diagnostic interprets live monitoring data into human/agent-readable
// ratings, alerts, and an overall connection grade.
package diagnostic

import (
	"fmt"

	"github.com/saveenergy/netglance/pkg/types"
)

const bytesPerMB = 1_000_000

// Assessment holds the semantic interpretation of the current network state.
type Assessment struct {
	Grade          string   `json:"grade"`
	Summary        string   `json:"summary"`
	LatencyRating  string   `json:"latency_rating"`
	LoadRating     string   `json:"load_rating"`
	PathRating     string   `json:"path_rating"`
	Alerts         []string `json:"alerts"`
	HeavyProcesses []string `json:"heavy_processes"`
}

// Params are the raw monitoring values to interpret.
type Params struct {
	Snapshot           types.NetworkSnapshot
	AvgDownloadBps     float64
	AvgUploadBps       float64
	AlertThresholdMBps float64
}

// Assess produces an Assessment from the latest snapshot and window
// statistics.
func Assess(p Params) *Assessment {
	a := &Assessment{
		Alerts:         []string{},
		HeavyProcesses: []string{},
	}

	a.LatencyRating = rateLatency(p.Snapshot.PingMillis)
	a.LoadRating = rateLoad(totalMBps(p.Snapshot.Speed), p.AlertThresholdMBps)
	a.PathRating = ratePath(p.Snapshot.Interface)

	a.Alerts = alerts(p)
	a.HeavyProcesses = heavyProcesses(p.Snapshot.TopProcesses, p.AlertThresholdMBps)

	a.Grade = computeGrade(a.LatencyRating, a.LoadRating, a.PathRating)
	a.Summary = buildSummary(a.Grade, p)

	return a
}

// ExceedsThreshold reports whether combined throughput crosses the alert
// threshold in MB/s.
func ExceedsThreshold(s types.SpeedSample, thresholdMBps float64) bool {
	if thresholdMBps <= 0 {
		return false
	}
	return (s.UploadBps+s.DownloadBps)/bytesPerMB >= thresholdMBps
}

func totalMBps(s types.SpeedSample) float64 {
	return (s.UploadBps + s.DownloadBps) / bytesPerMB
}

func rateLatency(ms *float64) string {
	if ms == nil {
		return "unknown"
	}
	switch {
	case *ms <= 20:
		return "excellent"
	case *ms <= 50:
		return "good"
	case *ms <= 100:
		return "fair"
	default:
		return "poor"
	}
}

func rateLoad(total, thresholdMBps float64) string {
	if thresholdMBps <= 0 {
		return "unknown"
	}
	switch {
	case total <= 0:
		return "idle"
	case total < thresholdMBps/2:
		return "light"
	case total < thresholdMBps:
		return "elevated"
	default:
		return "saturated"
	}
}

func ratePath(iface *types.InterfaceState) string {
	if iface == nil {
		return "unknown"
	}
	if !iface.Active {
		return "offline"
	}
	switch iface.Kind {
	case types.KindEthernet:
		return "wired"
	case types.KindWifi:
		return "wireless"
	case types.KindCellular:
		return "metered"
	default:
		return "unknown"
	}
}

func alerts(p Params) []string {
	a := []string{}

	if p.Snapshot.Interface != nil && !p.Snapshot.Interface.Active {
		a = append(a, "offline")
	}
	if ExceedsThreshold(p.Snapshot.Speed, p.AlertThresholdMBps) {
		a = append(a, "throughput_above_threshold")
	}
	if p.Snapshot.PingMillis != nil && *p.Snapshot.PingMillis > 100 {
		a = append(a, "high_latency")
	}
	if p.Snapshot.Interface != nil && p.Snapshot.Interface.Active && p.Snapshot.PingMillis == nil {
		a = append(a, "probe_unreachable")
	}

	return a
}

// heavyProcesses lists processes individually responsible for at least a
// quarter of the alert threshold.
func heavyProcesses(procs []types.ProcessUsage, thresholdMBps float64) []string {
	if thresholdMBps <= 0 {
		return []string{}
	}
	floor := thresholdMBps * bytesPerMB / 4
	names := []string{}
	for _, p := range procs {
		if p.UploadBps+p.DownloadBps >= floor && p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names
}

var ratingScore = map[string]int{
	"excellent": 4,
	"wired":     4,
	"idle":      4,
	"light":     4,
	"good":      3,
	"wireless":  3,
	"elevated":  3,
	"fair":      2,
	"metered":   2,
	"saturated": 1,
	"poor":      0,
	"offline":   0,
	"unknown":   2, // neutral default
}

func computeGrade(latency, load, path string) string {
	score := ratingScore[latency] + ratingScore[load] + ratingScore[path]
	// Max score = 12 (4+4+4)
	switch {
	case score >= 11:
		return "A"
	case score >= 9:
		return "B"
	case score >= 6:
		return "C"
	case score >= 3:
		return "D"
	default:
		return "F"
	}
}

func buildSummary(grade string, p Params) string {
	gradeDesc := map[string]string{
		"A": "Excellent",
		"B": "Good",
		"C": "Fair",
		"D": "Poor",
		"F": "Very poor",
	}

	summary := gradeDesc[grade] + " connection"

	parts := []string{}
	parts = append(parts,
		fmt.Sprintf("%s down", types.FormatRate(p.Snapshot.Speed.DownloadBps, types.UnitAuto)),
		fmt.Sprintf("%s up", types.FormatRate(p.Snapshot.Speed.UploadBps, types.UnitAuto)))
	if p.Snapshot.PingMillis != nil {
		parts = append(parts, fmt.Sprintf("%.0fms latency", *p.Snapshot.PingMillis))
	}

	summary += ": "
	for i, part := range parts {
		if i > 0 {
			summary += ", "
		}
		summary += part
	}
	return summary
}
