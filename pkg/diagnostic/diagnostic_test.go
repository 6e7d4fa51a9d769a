package diagnostic_test

import (
	"testing"
	"time"

	"github.com/saveenergy/netglance/pkg/diagnostic"
	"github.com/saveenergy/netglance/pkg/types"
)

func ms(v float64) *float64 { return &v }

func TestAssessHealthyWiredConnection(t *testing.T) {
	a := diagnostic.Assess(diagnostic.Params{
		Snapshot: types.NetworkSnapshot{
			Speed: types.SpeedSample{UploadBps: 50_000, DownloadBps: 200_000, TakenAt: time.Now()},
			Interface: &types.InterfaceState{
				Name: "eth0", Kind: types.KindEthernet, Active: true,
			},
			PingMillis: ms(12),
		},
		AlertThresholdMBps: 10,
	})

	if a.Grade != "A" {
		t.Errorf("Grade = %q, want A", a.Grade)
	}
	if a.LatencyRating != "excellent" || a.PathRating != "wired" || a.LoadRating != "light" {
		t.Errorf("ratings = %s/%s/%s, want excellent/wired/light",
			a.LatencyRating, a.LoadRating, a.PathRating)
	}
	if len(a.Alerts) != 0 {
		t.Errorf("Alerts = %v, want none", a.Alerts)
	}
	if a.Summary == "" {
		t.Error("Summary is empty")
	}
}

func TestAssessOfflinePath(t *testing.T) {
	a := diagnostic.Assess(diagnostic.Params{
		Snapshot: types.NetworkSnapshot{
			Interface: &types.InterfaceState{Name: "wlan0", Kind: types.KindWifi, Active: false},
		},
		AlertThresholdMBps: 10,
	})

	if a.PathRating != "offline" {
		t.Errorf("PathRating = %q, want offline", a.PathRating)
	}
	if len(a.Alerts) == 0 || a.Alerts[0] != "offline" {
		t.Errorf("Alerts = %v, want offline alert", a.Alerts)
	}
}

func TestAssessSaturatedLinkFlagsHeavyProcesses(t *testing.T) {
	a := diagnostic.Assess(diagnostic.Params{
		Snapshot: types.NetworkSnapshot{
			Speed: types.SpeedSample{DownloadBps: 12_000_000, TakenAt: time.Now()},
			Interface: &types.InterfaceState{
				Name: "wlan0", Kind: types.KindWifi, Active: true,
			},
			PingMillis: ms(30),
			TopProcesses: []types.ProcessUsage{
				{PID: 1, Name: "backup-agent", DownloadBps: 11_000_000},
				{PID: 2, Name: "chat", DownloadBps: 2_000},
			},
		},
		AlertThresholdMBps: 10,
	})

	if a.LoadRating != "saturated" {
		t.Errorf("LoadRating = %q, want saturated", a.LoadRating)
	}
	found := false
	for _, alert := range a.Alerts {
		if alert == "throughput_above_threshold" {
			found = true
		}
	}
	if !found {
		t.Errorf("Alerts = %v, want throughput_above_threshold", a.Alerts)
	}
	if len(a.HeavyProcesses) != 1 || a.HeavyProcesses[0] != "backup-agent" {
		t.Errorf("HeavyProcesses = %v, want [backup-agent]", a.HeavyProcesses)
	}
}

func TestExceedsThreshold(t *testing.T) {
	tests := []struct {
		name      string
		sample    types.SpeedSample
		threshold float64
		want      bool
	}{
		{
			name:      "combined rate above threshold",
			sample:    types.SpeedSample{UploadBps: 6_000_000, DownloadBps: 5_000_000},
			threshold: 10,
			want:      true,
		},
		{
			name:      "exactly at threshold",
			sample:    types.SpeedSample{DownloadBps: 10_000_000},
			threshold: 10,
			want:      true,
		},
		{
			name:      "below threshold",
			sample:    types.SpeedSample{DownloadBps: 9_000_000},
			threshold: 10,
			want:      false,
		},
		{
			name:      "zero threshold never fires",
			sample:    types.SpeedSample{DownloadBps: 1e12},
			threshold: 0,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := diagnostic.ExceedsThreshold(tt.sample, tt.threshold); got != tt.want {
				t.Errorf("ExceedsThreshold() = %v, want %v", got, tt.want)
			}
		})
	}
}
