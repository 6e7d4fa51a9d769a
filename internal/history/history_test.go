package history_test

import (
	"testing"
	"time"

	"github.com/saveenergy/netglance/internal/history"
	"github.com/saveenergy/netglance/pkg/types"
)

func sampleAt(up, down float64, at time.Time) types.SpeedSample {
	return types.NewSpeedSample(up, down, at)
}

func TestAppendEvictsOldestAtCapacity(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := history.NewBuffer(3)

	for i := 0; i < 4; i++ {
		b.Append(sampleAt(float64(i), 0, base.Add(time.Duration(i)*time.Second)))
	}

	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want capacity 3", b.Len())
	}
	got := b.Samples()
	if got[0].UploadBps != 1 {
		t.Errorf("oldest sample UploadBps = %v, want 1 (sample 0 evicted)", got[0].UploadBps)
	}
	if got[2].UploadBps != 3 {
		t.Errorf("newest sample UploadBps = %v, want 3", got[2].UploadBps)
	}
}

func TestNeverExceedsCapacity(t *testing.T) {
	b := history.NewBuffer(60)
	base := time.Now()

	for i := 0; i < 200; i++ {
		b.Append(sampleAt(1, 1, base.Add(time.Duration(i)*time.Second)))
		if b.Len() > 60 {
			t.Fatalf("Len() = %d after %d appends, exceeds capacity", b.Len(), i+1)
		}
	}
	if b.Len() != 60 {
		t.Errorf("Len() = %d, want 60", b.Len())
	}
}

func TestResizeKeepsNewest(t *testing.T) {
	base := time.Now()
	b := history.NewBuffer(10)
	for i := 0; i < 10; i++ {
		b.Append(sampleAt(float64(i), 0, base.Add(time.Duration(i)*time.Second)))
	}

	b.Resize(4)
	if b.Len() != 4 {
		t.Fatalf("Len() after Resize = %d, want 4", b.Len())
	}
	got := b.Samples()
	if got[0].UploadBps != 6 || got[3].UploadBps != 9 {
		t.Errorf("Resize kept samples %v..%v, want 6..9", got[0].UploadBps, got[3].UploadBps)
	}

	// Growing again must not resurrect evicted samples.
	b.Resize(20)
	if b.Len() != 4 {
		t.Errorf("Len() after growing Resize = %d, want 4", b.Len())
	}
	if b.Capacity() != 20 {
		t.Errorf("Capacity() = %d, want 20", b.Capacity())
	}
}

func TestComputeStats(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := history.NewBuffer(10)
	b.Append(sampleAt(100, 200, base))
	b.Append(sampleAt(300, 400, base.Add(time.Second)))
	b.Append(sampleAt(200, 600, base.Add(2*time.Second)))

	stats := b.ComputeStats(time.Second)
	if stats.SampleCount != 3 {
		t.Errorf("SampleCount = %d, want 3", stats.SampleCount)
	}
	if stats.AvgUploadBps != 200 {
		t.Errorf("AvgUploadBps = %v, want 200", stats.AvgUploadBps)
	}
	if stats.AvgDownloadBps != 400 {
		t.Errorf("AvgDownloadBps = %v, want 400", stats.AvgDownloadBps)
	}
	if stats.PeakUploadBps != 300 {
		t.Errorf("PeakUploadBps = %v, want 300", stats.PeakUploadBps)
	}
	if stats.PeakDownloadBps != 600 {
		t.Errorf("PeakDownloadBps = %v, want 600", stats.PeakDownloadBps)
	}
	if stats.TotalUploadBytes != 600 {
		t.Errorf("TotalUploadBytes = %v, want 600", stats.TotalUploadBytes)
	}
	if stats.TotalDownloadBytes != 1200 {
		t.Errorf("TotalDownloadBytes = %v, want 1200", stats.TotalDownloadBytes)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	b := history.NewBuffer(5)
	stats := b.ComputeStats(time.Second)
	if stats.SampleCount != 0 || stats.AvgUploadBps != 0 || stats.PeakDownloadBps != 0 {
		t.Errorf("empty buffer stats = %+v, want all zero", stats)
	}
}
